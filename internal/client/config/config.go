// Package config handles configuration for the AccountKeeper CLI: defaults,
// an optional JSON file, environment variables and command-line flags.
package config

import (
	"os"
	"time"
)

// Config holds runtime settings for the AccountKeeper CLI.
//
// Fields:
//   - ServerEndpointAddr: host:port of the backend gRPC endpoint.
//   - Timeout: deadline applied to every RPC.
//   - AccessToken: bearer token for authenticated commands.
//   - RefreshToken: used to renew an expired access token once.
type Config struct {
	ServerEndpointAddr string
	Timeout            time.Duration
	AccessToken        string
	RefreshToken       string
}

// Environment variables honoured by the CLI, next to common.AccessTokenEnvName.
const (
	EnvServer       = "ACCOUNTKEEPER_SERVER"
	EnvRefreshToken = "ACCOUNTKEEPER_REFRESH_TOKEN"
)

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.Timeout = 10 * time.Second
	c.AccessToken = ""
	c.RefreshToken = ""
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present), the environment and command-line flags. Later sources
// take precedence over earlier ones. It also returns the arguments left after
// the flags: the subcommand and its operands.
func LoadConfig() (*Config, []string) {
	return load(os.Args[1:], os.LookupEnv)
}

func load(args []string, lookupEnv func(string) (string, bool)) (*Config, []string) {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg, args)
	parseEnv(cfg, lookupEnv)
	rest := parseFlags(cfg, args)
	return cfg, rest
}
