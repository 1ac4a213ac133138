package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/userdir/internal/flagx"
	"github.com/dmitrijs2005/userdir/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so both "100ms" and integer nanoseconds are accepted.
// Absent keys leave the corresponding Config field untouched.
type JsonConfig struct {
	EndpointAddrGRPC           *string         `json:"endpoint_addr_grpc"`
	DatabaseDir                *string         `json:"database_dir"`
	DatabaseFile               *string         `json:"database_file"`
	PollInterval               *timex.Duration `json:"poll_interval"`
	PollAttempts               *int            `json:"poll_attempts"`
	LogLevel                   *string         `json:"log_level"`
	SecretKey                  *string         `json:"secret_key"`
	AuthTokenValidityDuration  *timex.Duration `json:"auth_token_validity_duration"`
	ResetTokenValidityDuration *timex.Duration `json:"reset_token_validity_duration"`
	S3RootUser                 *string         `json:"s3_root_user"`
	S3RootPassword             *string         `json:"s3_root_password"`
	S3Bucket                   *string         `json:"s3_bucket"`
	S3Region                   *string         `json:"s3_region"`
	S3BaseEndpoint             *string         `json:"s3_base_endpoint"`
}

// parseJson overlays values from the JSON file named by -c/-config.
// Without the flag nothing is loaded.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigFile(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDir, c.DatabaseDir)
	setString(&config.DatabaseFile, c.DatabaseFile)
	if c.PollInterval != nil {
		config.PollInterval = c.PollInterval.Duration
	}
	if c.PollAttempts != nil {
		config.PollAttempts = *c.PollAttempts
	}
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.SecretKey, c.SecretKey)
	if c.AuthTokenValidityDuration != nil {
		config.AuthTokenValidityDuration = c.AuthTokenValidityDuration.Duration
	}
	if c.ResetTokenValidityDuration != nil {
		config.ResetTokenValidityDuration = c.ResetTokenValidityDuration.Duration
	}
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
