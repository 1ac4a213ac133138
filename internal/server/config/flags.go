package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/userdir/internal/flagx"
)

// Flags lists every short flag owned by this package. Other components use it
// to tell configuration flags apart from their own arguments.
var Flags = []string{"-c", "-config", "-a", "-f", "-n", "-i", "-m", "-l", "-s", "-t", "-r", "-u", "-p", "-b", "-g", "-e"}

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-f string   database directory
//	-n string   database file name
//	-i int      file poll interval, milliseconds
//	-m int      file poll attempts
//	-l string   log level
//	-s string   JWT HMAC secret key
//	-t int      auth token validity, minutes
//	-r int      password reset token validity, minutes
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, Flags[2:])

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.DatabaseDir, "f", config.DatabaseDir, "database directory")
	fs.StringVar(&config.DatabaseFile, "n", config.DatabaseFile, "database file name")

	pollInterval := fs.Int("i", int(config.PollInterval.Milliseconds()), "file poll interval (in milliseconds)")
	fs.IntVar(&config.PollAttempts, "m", config.PollAttempts, "file poll attempts")

	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	authTokenValidity := fs.Int("t", int(config.AuthTokenValidityDuration.Minutes()), "auth_token_validity_duration (in minutes)")
	resetTokenValidity := fs.Int("r", int(config.ResetTokenValidityDuration.Minutes()), "reset_token_validity_duration (in minutes)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	config.PollInterval = time.Duration(*pollInterval) * time.Millisecond
	config.AuthTokenValidityDuration = time.Duration(*authTokenValidity) * time.Minute
	config.ResetTokenValidityDuration = time.Duration(*resetTokenValidity) * time.Minute
	return nil
}
