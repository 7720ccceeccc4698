/*
Package config loads the cosign configuration.

Values are read, in order of precedence, from command line flags bound to
the viper instance, COSIGN_ prefixed environment variables, the config.toml
file found in the home directory, and defaults.
*/
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/iov-one/cosign/errors"
	"github.com/iov-one/cosign/store"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes all environment variables.
	EnvPrefix = "COSIGN"
	// FileName is the name of the config file in the home directory.
	FileName = "config.toml"
)

// Keys of all configuration values.
const (
	KeyHome          = "home"
	KeyStoreBackend  = "store.backend"
	KeyStorePath     = "store.path"
	KeyNodeEndpoint  = "node.endpoint"
	KeyNodeTimeout   = "node.timeout"
	KeyNodeNetworkID = "node.network_id"
	KeyLogLevel      = "log.level"
	KeyLogFormat     = "log.format"
	KeyMetricsListen = "metrics.listen"
)

// Config is the configuration of the cosign command.
type Config struct {
	Home    string  `mapstructure:"home" validate:"required"`
	Store   Store   `mapstructure:"store"`
	Node    Node    `mapstructure:"node"`
	Log     Log     `mapstructure:"log"`
	Metrics Metrics `mapstructure:"metrics"`
}

// Store selects where proposals are kept.
type Store struct {
	Backend string `mapstructure:"backend" validate:"oneof=memory bolt leveldb"`
	// Path defaults to a file or directory in the home directory.
	Path string `mapstructure:"path"`
}

// Node is the connection to the node.
type Node struct {
	Endpoint  string        `mapstructure:"endpoint" validate:"omitempty,url"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"gt=0"`
	NetworkID uint32        `mapstructure:"network_id"`
}

// Log configures the logger.
type Log struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info error none"`
	Format string `mapstructure:"format" validate:"oneof=plain json"`
}

// Metrics configures the prometheus endpoint of the watch command.
type Metrics struct {
	Listen string `mapstructure:"listen" validate:"omitempty,hostname_port"`
}

// DefaultHome returns $HOME/.cosign, or .cosign if the home directory is
// unknown.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cosign"
	}
	return filepath.Join(home, ".cosign")
}

// New returns a viper instance with all defaults set that reads COSIGN_
// prefixed environment variables.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyHome, DefaultHome())
	v.SetDefault(KeyStoreBackend, store.BackendBolt)
	v.SetDefault(KeyStorePath, "")
	v.SetDefault(KeyNodeEndpoint, "")
	v.SetDefault(KeyNodeTimeout, 10*time.Second)
	v.SetDefault(KeyNodeNetworkID, 100)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "plain")
	v.SetDefault(KeyMetricsListen, "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file of the home directory, if there is one, and
// returns the validated configuration.
func Load(v *viper.Viper) (*Config, error) {
	home := v.GetString(KeyHome)
	v.SetConfigFile(filepath.Join(home, FileName))
	if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
		return nil, errors.Wrapf(errors.ErrInput, "config file: %s", err)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "config: %s", err)
	}
	if c.Store.Path == "" {
		c.Store.Path = defaultStorePath(c.Home, c.Store.Backend)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// isNotExist returns true if the config file is missing. A missing file is
// not an error.
func isNotExist(err error) bool {
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		return true
	}
	return os.IsNotExist(err)
}

func defaultStorePath(home, backend string) string {
	switch backend {
	case store.BackendBolt:
		return filepath.Join(home, "proposals.db")
	case store.BackendLevelDB:
		return filepath.Join(home, "proposals")
	default:
		return ""
	}
}

var validate = validator.New()

// Validate returns a field error for every invalid value.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.Wrap(errors.ErrInput, err.Error())
	}
	var errs error
	for _, fe := range verrs {
		errs = errors.AppendField(errs, fieldName(fe.Namespace()),
			errors.Wrapf(errors.ErrInput, "%v fails %s %s", fe.Value(), fe.Tag(), fe.Param()))
	}
	return errs
}

// fieldName strips the struct name from a validator namespace, for example
// "Config.Node.Timeout" becomes "Node.Timeout".
func fieldName(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// Write stores the configuration in the config file of its home directory.
func Write(v *viper.Viper) error {
	home := v.GetString(KeyHome)
	if err := os.MkdirAll(home, 0o700); err != nil {
		return errors.Wrap(errors.ErrInput, err.Error())
	}
	if err := v.WriteConfigAs(filepath.Join(home, FileName)); err != nil {
		return errors.Wrapf(errors.ErrInput, "write config: %s", err)
	}
	return nil
}
