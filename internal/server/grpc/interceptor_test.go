package grpc

import (
	"context"
	"sync"
	"testing"

	"github.com/dmitrijs2005/userdir/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ---- test logger ----

type entry struct {
	level string
	msg   string
	args  []any
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []entry
}

func (l *recordingLogger) add(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry{level, msg, args})
}

func (l *recordingLogger) Debug(_ context.Context, msg string, args ...any) { l.add("debug", msg, args) }
func (l *recordingLogger) Info(_ context.Context, msg string, args ...any)  { l.add("info", msg, args) }
func (l *recordingLogger) Warn(_ context.Context, msg string, args ...any)  { l.add("warn", msg, args) }
func (l *recordingLogger) Error(_ context.Context, msg string, args ...any) { l.add("error", msg, args) }
func (l *recordingLogger) With(...any) logging.Logger                       { return l }

func newTestServer(l logging.Logger) *GRPCServer {
	return &GRPCServer{logger: l, dir: fakeDirectory{}}
}

func TestInterceptor_PassesThrough(t *testing.T) {
	log := &recordingLogger{}
	s := newTestServer(log)

	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}
	handlerCalled := false

	h := func(ctx context.Context, req interface{}) (interface{}, error) {
		handlerCalled = true
		return "ok", nil
	}

	resp, err := s.loggingInterceptor(context.Background(), nil, info, h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !handlerCalled {
		t.Fatal("handler was not called")
	}
	if resp != "ok" {
		t.Fatalf("unexpected handler resp: %v", resp)
	}

	entries := log.entries
	if len(entries) != 1 || entries[0].level != "debug" {
		t.Fatalf("expected one debug entry, got %+v", entries)
	}
	if entries[0].args[1] != info.FullMethod {
		t.Fatalf("method not logged: %+v", entries[0].args)
	}
}

func TestInterceptor_LogsFailure(t *testing.T) {
	log := &recordingLogger{}
	s := newTestServer(log)

	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}
	h := func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, status.Error(codes.NotFound, "unknown service")
	}

	_, err := s.loggingInterceptor(context.Background(), nil, info, h)
	if status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound, got %v", status.Code(err))
	}

	entries := log.entries
	if len(entries) != 1 || entries[0].level != "warn" {
		t.Fatalf("expected one warn entry, got %+v", entries)
	}
	if entries[0].args[3] != "NotFound" {
		t.Fatalf("expected code NotFound, got %v", entries[0].args[3])
	}
}
