package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/iov-one/cosign/cosigntest/assert"
	"github.com/iov-one/cosign/errors"
	"github.com/iov-one/cosign/store"
	"github.com/spf13/pflag"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	v := New()
	v.Set(KeyHome, home)

	c, err := Load(v)
	assert.Nil(t, err)
	assert.Equal(t, home, c.Home)
	assert.Equal(t, store.BackendBolt, c.Store.Backend)
	assert.Equal(t, filepath.Join(home, "proposals.db"), c.Store.Path)
	assert.Equal(t, 10*time.Second, c.Node.Timeout)
	assert.Equal(t, uint32(100), c.Node.NetworkID)
	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, "plain", c.Log.Format)
	assert.Equal(t, "", c.Metrics.Listen)
}

func TestLoadSources(t *testing.T) {
	home := t.TempDir()
	file := `
[store]
backend = "leveldb"

[node]
endpoint = "http://localhost:9095"
timeout = "3s"

[log]
level = "debug"
format = "json"
`
	assert.Nil(t, os.WriteFile(filepath.Join(home, FileName), []byte(file), 0o600))
	t.Setenv("COSIGN_LOG_LEVEL", "error")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("metrics", "", "")
	assert.Nil(t, flags.Parse([]string{"--metrics", "localhost:9100"}))

	v := New()
	v.Set(KeyHome, home)
	assert.Nil(t, v.BindPFlag(KeyMetricsListen, flags.Lookup("metrics")))

	c, err := Load(v)
	assert.Nil(t, err)
	assert.Equal(t, store.BackendLevelDB, c.Store.Backend)
	assert.Equal(t, filepath.Join(home, "proposals"), c.Store.Path)
	assert.Equal(t, "http://localhost:9095", c.Node.Endpoint)
	assert.Equal(t, 3*time.Second, c.Node.Timeout)
	assert.Equal(t, "error", c.Log.Level)
	assert.Equal(t, "json", c.Log.Format)
	assert.Equal(t, "localhost:9100", c.Metrics.Listen)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Home:  "/tmp/cosign",
			Store: Store{Backend: store.BackendMemory},
			Node:  Node{Endpoint: "http://localhost:9095", Timeout: time.Second},
			Log:   Log{Level: "info", Format: "plain"},
		}
	}

	cases := map[string]struct {
		mutate  func(c *Config)
		field   string
		wantErr *errors.Error
	}{
		"valid": {
			mutate:  func(c *Config) {},
			field:   "Store.Backend",
			wantErr: nil,
		},
		"unknown backend": {
			mutate:  func(c *Config) { c.Store.Backend = "sqlite" },
			field:   "Store.Backend",
			wantErr: errors.ErrInput,
		},
		"missing home": {
			mutate:  func(c *Config) { c.Home = "" },
			field:   "Home",
			wantErr: errors.ErrInput,
		},
		"endpoint is not a url": {
			mutate:  func(c *Config) { c.Node.Endpoint = "localhost 9095" },
			field:   "Node.Endpoint",
			wantErr: errors.ErrInput,
		},
		"zero timeout": {
			mutate:  func(c *Config) { c.Node.Timeout = 0 },
			field:   "Node.Timeout",
			wantErr: errors.ErrInput,
		},
		"unknown log level": {
			mutate:  func(c *Config) { c.Log.Level = "trace" },
			field:   "Log.Level",
			wantErr: errors.ErrInput,
		},
		"metrics without port": {
			mutate:  func(c *Config) { c.Metrics.Listen = "localhost" },
			field:   "Metrics.Listen",
			wantErr: errors.ErrInput,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			c := valid()
			tc.mutate(&c)
			assert.FieldError(t, c.Validate(), tc.field, tc.wantErr)
		})
	}
}

func TestLoadInvalid(t *testing.T) {
	v := New()
	v.Set(KeyHome, t.TempDir())
	v.Set(KeyLogFormat, "xml")

	_, err := Load(v)
	assert.FieldError(t, err, "Log.Format", errors.ErrInput)
}

func TestWrite(t *testing.T) {
	home := filepath.Join(t.TempDir(), "nested")
	v := New()
	v.Set(KeyHome, home)
	v.Set(KeyNodeEndpoint, "http://node:9095")
	assert.Nil(t, Write(v))

	loaded := New()
	loaded.Set(KeyHome, home)
	c, err := Load(loaded)
	assert.Nil(t, err)
	assert.Equal(t, "http://node:9095", c.Node.Endpoint)
}
