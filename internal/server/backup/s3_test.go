package backup

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/userdir/internal/logging"
	srvconfig "github.com/dmitrijs2005/userdir/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	data []byte
	err  error
}

func (f fakeSource) ReadRaw(context.Context) ([]byte, error) { return f.data, f.err }
func (f fakeSource) Path() string                            { return "fileDatabases/usersDB.json" }

func testConfig() *srvconfig.Config {
	return &srvconfig.Config{
		S3Region:       "us-east-1",
		S3RootUser:     "minioadmin",
		S3RootPassword: "minioadmin",
		S3BaseEndpoint: "http://127.0.0.1:9000",
		S3Bucket:       "userdir-backups",
	}
}

func stubAWS(t *testing.T, put func(in *s3.PutObjectInput) error) *string {
	t.Helper()

	origLoad := loadDefaultAWSConfig
	origNewS3 := newS3ClientFromConfig
	origPut := putObject
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
		putObject = origPut
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "us-east-1", lo.Region)
		return aws.Config{}, nil
	}

	var endpoint string
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		var opts s3.Options
		for _, fn := range optFns {
			fn(&opts)
		}
		require.NotNil(t, opts.BaseEndpoint)
		endpoint = *opts.BaseEndpoint
		assert.True(t, opts.UsePathStyle)
		return &s3.Client{}
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		if err := put(in); err != nil {
			return nil, err
		}
		return &s3.PutObjectOutput{}, nil
	}

	return &endpoint
}

func TestKey(t *testing.T) {
	ts := time.Date(2025, 3, 4, 5, 6, 7, 0, time.FixedZone("X", 3*3600))
	assert.Equal(t, "usersDB-20250304T020607Z.json", Key("/var/db/usersDB.json", ts))
}

func TestBackup_Uploads(t *testing.T) {
	var gotBucket, gotKey, gotBody string
	endpoint := stubAWS(t, func(in *s3.PutObjectInput) error {
		gotBucket, gotKey = *in.Bucket, *in.Key
		b, err := io.ReadAll(in.Body)
		require.NoError(t, err)
		gotBody = string(b)
		return nil
	})

	a := NewArchiver(testConfig(), fakeSource{data: []byte(`[{"id":"u1"}]`)}, logging.Nop())
	a.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }

	key, err := a.Backup(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "usersDB-20250102T030405Z.json", key)
	assert.Equal(t, key, gotKey)
	assert.Equal(t, "userdir-backups", gotBucket)
	assert.Equal(t, `[{"id":"u1"}]`, gotBody)
	assert.Equal(t, "http://127.0.0.1:9000", *endpoint)
}

func TestBackup_EmptySnapshotUploadsEmptyArray(t *testing.T) {
	var gotBody string
	stubAWS(t, func(in *s3.PutObjectInput) error {
		b, _ := io.ReadAll(in.Body)
		gotBody = string(b)
		return nil
	})

	_, err := NewArchiver(testConfig(), fakeSource{}, logging.Nop()).Backup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "[]", gotBody)
}

func TestBackup_Errors(t *testing.T) {
	t.Run("read", func(t *testing.T) {
		stubAWS(t, func(*s3.PutObjectInput) error { t.Fatal("must not upload"); return nil })

		_, err := NewArchiver(testConfig(), fakeSource{err: errors.New("gone")}, logging.Nop()).Backup(context.Background())
		assert.ErrorContains(t, err, "gone")
	})

	t.Run("load config", func(t *testing.T) {
		stubAWS(t, nil)
		loadDefaultAWSConfig = func(context.Context, ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
			return aws.Config{}, errors.New("load-fail")
		}

		_, err := NewArchiver(testConfig(), fakeSource{data: []byte("[]")}, logging.Nop()).Backup(context.Background())
		assert.ErrorContains(t, err, "load-fail")
	})

	t.Run("upload", func(t *testing.T) {
		stubAWS(t, func(*s3.PutObjectInput) error { return errors.New("denied") })

		_, err := NewArchiver(testConfig(), fakeSource{data: []byte("[]")}, logging.Nop()).Backup(context.Background())
		assert.ErrorContains(t, err, "denied")
	})
}
