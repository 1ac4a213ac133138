// Package backup copies the on-disk user database to an S3 compatible bucket.
package backup

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/userdir/internal/logging"
	srvconfig "github.com/dmitrijs2005/userdir/internal/server/config"
)

// test seams
var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}
)

const timestampLayout = "20060102T150405Z"

// Source is a snapshot that can be read as raw bytes. *filedb.DB implements it.
type Source interface {
	ReadRaw(ctx context.Context) ([]byte, error)
	Path() string
}

type Archiver struct {
	config *srvconfig.Config
	source Source
	logger logging.Logger
	now    func() time.Time
}

func NewArchiver(cfg *srvconfig.Config, source Source, logger logging.Logger) *Archiver {
	return &Archiver{
		config: cfg,
		source: source,
		logger: logger.With("module", "backup"),
		now:    time.Now,
	}
}

func (a *Archiver) client(ctx context.Context) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(a.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			a.config.S3RootUser,
			a.config.S3RootPassword,
			"",
		)),
	)
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(a.config.S3BaseEndpoint)
		o.UsePathStyle = true
	}), nil
}

// Key names the object for a snapshot of path taken at t.
func Key(path string, t time.Time) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return fmt.Sprintf("%s-%s.json", stem, t.UTC().Format(timestampLayout))
}

// Backup uploads the current snapshot and returns its object key.
func (a *Archiver) Backup(ctx context.Context) (string, error) {
	data, err := a.source.ReadRaw(ctx)
	if err != nil {
		return "", fmt.Errorf("read snapshot: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		data = []byte("[]")
	}

	client, err := a.client(ctx)
	if err != nil {
		return "", fmt.Errorf("s3 client: %w", err)
	}

	key := Key(a.source.Path(), a.now())

	_, err = putObject(client, ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.config.S3Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		a.logger.Error(ctx, "backup upload failed", "bucket", a.config.S3Bucket, "key", key, "error", err)
		return "", fmt.Errorf("upload %s: %w", key, err)
	}

	a.logger.Info(ctx, "backup uploaded", "bucket", a.config.S3Bucket, "key", key, "bytes", len(data))
	return key, nil
}
