// Package config handles configuration for the user directory server and the
// admin CLI, including defaults, JSON overlay, and command-line flags.
package config

import (
	"path/filepath"
	"time"
)

// Config holds runtime settings.
//
// Fields:
//   - EndpointAddrGRPC: bind address for the gRPC health endpoint.
//   - DatabaseDir / DatabaseFile: location of the JSON user database.
//   - PollInterval / PollAttempts: how long the file database waits for the
//     database file to reappear while another writer holds it.
//   - LogLevel: debug, info, warn or error.
//   - SecretKey: HMAC secret for signing JWTs (HS256). Do not use test defaults in prod.
//   - AuthTokenValidityDuration / ResetTokenValidityDuration: token lifetimes.
//   - S3*: object storage settings for snapshot backups.
type Config struct {
	EndpointAddrGRPC           string
	DatabaseDir                string
	DatabaseFile               string
	PollInterval               time.Duration
	PollAttempts               int
	LogLevel                   string
	SecretKey                  string
	AuthTokenValidityDuration  time.Duration
	ResetTokenValidityDuration time.Duration
	S3RootUser                 string
	S3RootPassword             string
	S3Bucket                   string
	S3Region                   string
	S3BaseEndpoint             string
}

// LoadDefaults populates Config with development defaults.
// NOTE: the secret and S3 credentials are insecure and must be overridden.
func (c *Config) LoadDefaults() {
	c.EndpointAddrGRPC = ":50051"
	c.DatabaseDir = "fileDatabases"
	c.DatabaseFile = "usersDB.json"
	c.PollInterval = 100 * time.Millisecond
	c.PollAttempts = 20
	c.LogLevel = "info"
	c.SecretKey = "secretKey"
	c.AuthTokenValidityDuration = 24 * time.Hour
	c.ResetTokenValidityDuration = 15 * time.Minute
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = "userdir-backups"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
}

// DatabasePath is the live path of the user database file.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DatabaseDir, c.DatabaseFile)
}

// Load builds a Config by applying defaults, then overlaying values from an
// optional JSON file (-c/-config) and finally from command-line flags.
// args are the process arguments without the program name.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}
