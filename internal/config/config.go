package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/vovakirdan/loungecore/internal/core"
)

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat         string        `mapstructure:"log_format" yaml:"log_format"`

	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`
	LogsDir      string `mapstructure:"logs_dir" yaml:"logs_dir"`
	StorageDir   string `mapstructure:"storage_dir" yaml:"storage_dir"`

	Public          bool   `mapstructure:"public" yaml:"public"`
	MaxHistory      int    `mapstructure:"max_history" yaml:"max_history"`
	Prefetch        bool   `mapstructure:"prefetch" yaml:"prefetch"`
	PrefetchStorage bool   `mapstructure:"prefetch_storage" yaml:"prefetch_storage"`
	LobbyLogTarget  string `mapstructure:"lobby_log_target" yaml:"lobby_log_target"`

	JWTSecret   string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	TokenTTL    time.Duration `mapstructure:"token_ttl" yaml:"token_ttl"`

	HistoryRate      float64 `mapstructure:"history_rate" yaml:"history_rate"`
	HistoryBurst     int     `mapstructure:"history_burst" yaml:"history_burst"`
	InboundPerMinute int     `mapstructure:"inbound_per_minute" yaml:"inbound_per_minute"`
	WritebackQueue   int     `mapstructure:"writeback_queue" yaml:"writeback_queue"`

	Accounts []AccountConfig `mapstructure:"accounts" yaml:"accounts"`
}

// AccountConfig describes one bouncer user.
type AccountConfig struct {
	Name       string          `mapstructure:"name" yaml:"name"`
	Password   string          `mapstructure:"password" yaml:"password"`
	Log        bool            `mapstructure:"log" yaml:"log"`
	Highlights []string        `mapstructure:"highlights" yaml:"highlights,omitempty"`
	Networks   []NetworkConfig `mapstructure:"networks" yaml:"networks"`
}

// NetworkConfig describes one IRC network of an account.
type NetworkConfig struct {
	ID     string   `mapstructure:"id" yaml:"id,omitempty"`
	Name   string   `mapstructure:"name" yaml:"name"`
	Host   string   `mapstructure:"host" yaml:"host"`
	Nick   string   `mapstructure:"nick" yaml:"nick"`
	Prefix []string `mapstructure:"prefix" yaml:"prefix,omitempty"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":9000",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		LogFormat:         "console",
		DatabasePath:      "lounge.db",
		LogsDir:           "logs",
		StorageDir:        "storage",
		MaxHistory:        10000,
		LobbyLogTarget:    string(core.LogTargetHost),
		JWTSecret:         "change-me",
		JWTIssuer:         "loungecore",
		JWTAudience:       "loungecore-clients",
		TokenTTL:          24 * time.Hour,
		HistoryRate:       2,
		HistoryBurst:      5,
		InboundPerMinute:  600,
		WritebackQueue:    1024,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
}

// Options returns the channel core settings.
func (c *Config) Options() core.Options {
	return core.Options{
		Public:          c.Public,
		MaxHistory:      c.MaxHistory,
		Prefetch:        c.Prefetch,
		PrefetchStorage: c.PrefetchStorage,
		LobbyLogTarget:  core.LogTargetRule(c.LobbyLogTarget),
	}
}

// Validate reports every problem that would prevent the server from
// starting.
func (c *Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if err := c.Options().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("jwt_secret is required"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("token_ttl must be positive"))
	}
	if !c.Public && c.DatabasePath == "" {
		errs = append(errs, errors.New("database_path is required unless public"))
	}
	if c.PrefetchStorage && c.StorageDir == "" {
		errs = append(errs, errors.New("storage_dir is required with prefetch_storage"))
	}

	seen := make(map[string]bool, len(c.Accounts))
	for i, a := range c.Accounts {
		switch {
		case a.Name == "":
			errs = append(errs, fmt.Errorf("accounts[%d]: name is required", i))
		case seen[a.Name]:
			errs = append(errs, fmt.Errorf("accounts[%d]: duplicate account %q", i, a.Name))
		}
		seen[a.Name] = true
		if a.Password == "" {
			errs = append(errs, fmt.Errorf("accounts[%d]: password hash is required", i))
		}
		for j, n := range a.Networks {
			if n.Name == "" || n.Host == "" || n.Nick == "" {
				errs = append(errs, fmt.Errorf("accounts[%d].networks[%d]: name, host and nick are required", i, j))
			}
		}
	}
	return errors.Join(errs...)
}
