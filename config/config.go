package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	DefaultConfigDir   = "config"
	DefaultDataDir     = "data"
	DefaultConfigFile  = "config.toml"
	DefaultGenesisFile = "genesis.json"
	DefaultKeyFile     = "node_key.json"
	DefaultIndexDB     = "index.db"
)

// Config is the daemon's runtime configuration, loaded from
// <home>/config/config.toml.
type Config struct {
	Home string `mapstructure:"-"`

	ListenAddr string `mapstructure:"listen_addr"`
	IndexDB    string `mapstructure:"index_db"`
	LogLevel   string `mapstructure:"log_level"`
}

func DefaultConfig(home string) *Config {
	if len(home) == 0 {
		home = os.ExpandEnv("$HOME/.daod")
	}
	return &Config{
		Home:       home,
		ListenAddr: "0.0.0.0:8545",
		IndexDB:    DefaultIndexDB,
		LogLevel:   "info",
	}
}

func (c *Config) ConfigDir() string   { return filepath.Join(c.Home, DefaultConfigDir) }
func (c *Config) DataDir() string     { return filepath.Join(c.Home, DefaultDataDir) }
func (c *Config) ConfigFile() string  { return filepath.Join(c.ConfigDir(), DefaultConfigFile) }
func (c *Config) GenesisFile() string { return filepath.Join(c.ConfigDir(), DefaultGenesisFile) }
func (c *Config) KeyFile() string     { return filepath.Join(c.ConfigDir(), DefaultKeyFile) }
func (c *Config) IndexDBFile() string { return filepath.Join(c.DataDir(), c.IndexDB) }

// Load reads <home>/config/config.toml over the defaults.
func Load(home string) (*Config, error) {
	cfg := DefaultConfig(home)
	v := viper.New()
	v.SetConfigFile(cfg.ConfigFile())
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	cfg.Home = home
	return cfg, nil
}
