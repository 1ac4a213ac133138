package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/userdir/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// DirectoryService is the health check name of the user directory.
const DirectoryService = "userdir.v1.Directory"

// Directory reports whether the user directory loaded its database.
type Directory interface {
	LoadErr() error
}

type GRPCServer struct {
	address string
	dir     Directory
	logger  logging.Logger
	health  *health.Server
}

func NewGRPCServer(a string, l logging.Logger, dir Directory) *GRPCServer {
	return &GRPCServer{
		address: a,
		logger:  l.With("module", "grpc_server"),
		dir:     dir,
		health:  health.NewServer(),
	}
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.serve(ctx, listen)
}

func (s *GRPCServer) serve(ctx context.Context, listen net.Listener) error {

	// creates gRPC-server
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor))

	// registers service
	healthpb.RegisterHealthServer(srv, s.health)
	s.updateHealth(ctx)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gPRC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}

func (s *GRPCServer) updateHealth(ctx context.Context) {
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	if err := s.dir.LoadErr(); err != nil {
		s.logger.Warn(ctx, "user directory is not serving", "error", err)
		s.health.SetServingStatus(DirectoryService, healthpb.HealthCheckResponse_NOT_SERVING)
		return
	}
	s.health.SetServingStatus(DirectoryService, healthpb.HealthCheckResponse_SERVING)
}
