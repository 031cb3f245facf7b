package config

import "github.com/dmitrijs2005/accountkeeper/internal/common"

func parseEnv(cfg *Config, lookup func(string) (string, bool)) {
	if lookup == nil {
		return
	}
	if v, ok := lookup(EnvServer); ok && v != "" {
		cfg.ServerEndpointAddr = v
	}
	if v, ok := lookup(common.AccessTokenEnvName); ok && v != "" {
		cfg.AccessToken = v
	}
	if v, ok := lookup(EnvRefreshToken); ok && v != "" {
		cfg.RefreshToken = v
	}
}
