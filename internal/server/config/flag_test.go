package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		expected *Config
		name     string
		args     []string
		wantErr  bool
	}{
		{name: "all flags", args: []string{
			"-a", "127.0.0.1:9090", "-f", "data", "-n", "u.json", "-i", "10", "-m", "5", "-l", "debug",
			"-s", "secret", "-t", "60", "-r", "5", "-u", "user", "-p", "password", "-b", "bucket", "-g", "us-west-1", "-e", "http://endpoint",
		},
			expected: &Config{
				EndpointAddrGRPC:           "127.0.0.1:9090",
				DatabaseDir:                "data",
				DatabaseFile:               "u.json",
				PollInterval:               10 * time.Millisecond,
				PollAttempts:               5,
				LogLevel:                   "debug",
				SecretKey:                  "secret",
				AuthTokenValidityDuration:  time.Hour,
				ResetTokenValidityDuration: 5 * time.Minute,
				S3RootUser:                 "user",
				S3RootPassword:             "password",
				S3Bucket:                   "bucket",
				S3Region:                   "us-west-1",
				S3BaseEndpoint:             "http://endpoint",
			}},
		{name: "foreign flags are ignored", args: []string{"-email", "a@b.c", "-n", "u.json"},
			expected: &Config{DatabaseFile: "u.json"}},
		{name: "bad integer", args: []string{"-m", "many"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := &Config{}
			err := parseFlags(config, tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tt.expected, config))
		})
	}
}
