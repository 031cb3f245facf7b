package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/flagx"
)

// serverFlags lists every flag parseFlags understands; anything else on the
// command line (for example -c) is filtered out before parsing.
var serverFlags = []string{
	"-a", "-m", "-d", "-s", "-t", "-r", "-x", "-hash",
	"-bootstrap-user", "-bootstrap-password",
	"-u", "-p", "-b", "-g", "-e", "-l",
}

// parseFlags populates Config fields from command-line flags.
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-m string   metrics bind address (empty disables /metrics)
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-r int      refresh token validity, minutes
//	-x int      password expiry, days
//	-hash       password hash algorithm (hmac-sha512, argon2id)
//	-bootstrap-user / -bootstrap-password   reserved admin account
//	-u / -p     S3 root user / password
//	-b / -g     S3 bucket / region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-l string   log level
//
// Durations are given as integers and converted to time.Duration.
func parseFlags(config *Config, args []string) {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.MetricsAddr, "m", config.MetricsAddr, "address and port for /metrics")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidity := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	refreshTokenValidity := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh token validity (in minutes)")
	passwordExpiry := fs.Int("x", int(config.PasswordExpiry/(24*time.Hour)), "password expiry (in days)")

	fs.StringVar(&config.PasswordHashAlgorithm, "hash", config.PasswordHashAlgorithm, "password hash algorithm")
	fs.StringVar(&config.BootstrapUsername, "bootstrap-user", config.BootstrapUsername, "reserved admin username")
	fs.StringVar(&config.BootstrapAdminPassword, "bootstrap-password", config.BootstrapAdminPassword, "create the admin account with this password if missing")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket with account-owned objects")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(flagx.FilterArgs(args, serverFlags)); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidity) * time.Minute
	config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidity) * time.Minute
	config.PasswordExpiry = time.Duration(*passwordExpiry) * 24 * time.Hour
}
