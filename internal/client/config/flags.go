package config

import (
	"flag"
	"io"
	"time"
)

// parseFlags populates Config fields from command-line flags and returns the
// remaining positional arguments.
//
//	-a string        address and port of the backend server
//	-timeout int     RPC timeout in seconds
//	-token string    access token
//	-refresh string  refresh token
//	-c / -config     JSON config file (read by parseJson)
func parseFlags(cfg *Config, args []string) []string {
	fs := flag.NewFlagSet("accountkeeper", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var configFile string
	fs.StringVar(&configFile, "c", "", "JSON config file")
	fs.StringVar(&configFile, "config", "", "JSON config file")

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	timeout := fs.Int("timeout", int(cfg.Timeout.Seconds()), "RPC timeout (in seconds)")
	fs.StringVar(&cfg.AccessToken, "token", cfg.AccessToken, "access token")
	fs.StringVar(&cfg.RefreshToken, "refresh", cfg.RefreshToken, "refresh token")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.Timeout = time.Duration(*timeout) * time.Second
	return fs.Args()
}
