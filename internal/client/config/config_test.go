package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
)

func envFrom(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "127.0.0.1:50051", c.ServerEndpointAddr)
	assert.Equal(t, 10*time.Second, c.Timeout)
	assert.Empty(t, c.AccessToken)
}

func TestLoad_NoArgs(t *testing.T) {
	c, rest := load(nil, nil)

	var want Config
	want.LoadDefaults()
	if diff := cmp.Diff(want, *c); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, rest)
}

func TestLoad_FlagsAndSubcommand(t *testing.T) {
	c, rest := load([]string{"-a", "ak:6000", "-timeout", "3", "-token", "tok", "role", "bob", "Admin"}, nil)

	assert.Equal(t, "ak:6000", c.ServerEndpointAddr)
	assert.Equal(t, 3*time.Second, c.Timeout)
	assert.Equal(t, "tok", c.AccessToken)
	assert.Equal(t, []string{"role", "bob", "Admin"}, rest)
}

func TestLoad_EnvThenFlags(t *testing.T) {
	env := envFrom(map[string]string{
		common.AccessTokenEnvName: "env-token",
		EnvServer:                 "env:50051",
		EnvRefreshToken:           "env-refresh",
	})

	c, _ := load([]string{"ping"}, env)
	assert.Equal(t, "env-token", c.AccessToken)
	assert.Equal(t, "env:50051", c.ServerEndpointAddr)
	assert.Equal(t, "env-refresh", c.RefreshToken)

	c, _ = load([]string{"-token", "flag-token", "ping"}, env)
	assert.Equal(t, "flag-token", c.AccessToken)
}

func TestLoad_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"server_endpoint_addr":"json:1","timeout":"2s"}`), 0o600))

	c, rest := load([]string{"-c", path, "ping"}, nil)
	assert.Equal(t, "json:1", c.ServerEndpointAddr)
	assert.Equal(t, 2*time.Second, c.Timeout)
	assert.Equal(t, []string{"ping"}, rest)
}

func TestLoad_BadJSONPanics(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.json")
	require.NoError(t, os.WriteFile(path, []byte(`{`), 0o600))

	assert.Panics(t, func() { load([]string{"-c", path}, nil) })
}

func TestLoad_UnknownFlagPanics(t *testing.T) {
	assert.Panics(t, func() { load([]string{"-nope"}, nil) })
}
