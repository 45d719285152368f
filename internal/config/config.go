// Package config loads the service configuration of the authtree server.
package config

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/aretw0/authtree/internal/sealing"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
	BackendMySQL  = "mysql"
)

// Environment variables that override secrets from the file.
const (
	EnvContinuationKey = "AUTHTREE_CONTINUATION_KEY"
	EnvVaultKey        = "AUTHTREE_VAULT_KEY"
)

// Duration is a time.Duration written as "30s", "5m" in every format.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Config is the server configuration.
type Config struct {
	Addr         string             `yaml:"addr" json:"addr" toml:"addr"`
	TreesDir     string             `yaml:"trees_dir" json:"trees_dir" toml:"trees_dir"`
	LogLevel     string             `yaml:"log_level" json:"log_level" toml:"log_level"`
	RateLimit    RateLimitConfig    `yaml:"rate_limit" json:"rate_limit" toml:"rate_limit"`
	Store        StoreConfig        `yaml:"store" json:"store" toml:"store"`
	Continuation ContinuationConfig `yaml:"continuation" json:"continuation" toml:"continuation"`
	// VaultKey, when set, encrypts session records at rest.
	VaultKey string `yaml:"vault_key" json:"vault_key" toml:"vault_key"`
}

// RateLimitConfig bounds authenticate calls per client IP. Zero rps disables it.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps" json:"rps" toml:"rps"`
	Burst int     `yaml:"burst" json:"burst" toml:"burst"`
}

// StoreConfig selects and configures the session vault.
type StoreConfig struct {
	Backend       string   `yaml:"backend" json:"backend" toml:"backend"`
	Path          string   `yaml:"path" json:"path" toml:"path"`
	RedisAddr     string   `yaml:"redis_addr" json:"redis_addr" toml:"redis_addr"`
	RedisPassword string   `yaml:"redis_password" json:"redis_password" toml:"redis_password"`
	RedisDB       int      `yaml:"redis_db" json:"redis_db" toml:"redis_db"`
	DSN           string   `yaml:"dsn" json:"dsn" toml:"dsn"`
	TTL           Duration `yaml:"ttl" json:"ttl" toml:"ttl"`
}

// ContinuationConfig holds the keys sealing continuation tokens, base64 encoded.
type ContinuationConfig struct {
	Key          string   `yaml:"key" json:"key" toml:"key"`
	FallbackKeys []string `yaml:"fallback_keys" json:"fallback_keys" toml:"fallback_keys"`
	TTL          Duration `yaml:"ttl" json:"ttl" toml:"ttl"`
}

// Default returns the configuration used for absent fields.
func Default() *Config {
	return &Config{
		Addr:     ":8080",
		TreesDir: "trees",
		LogLevel: "info",
		RateLimit: RateLimitConfig{
			RPS:   10,
			Burst: 20,
		},
		Store: StoreConfig{
			Backend:   BackendMemory,
			RedisAddr: "localhost:6379",
			TTL:       Duration(30 * time.Minute),
		},
		Continuation: ContinuationConfig{
			TTL: Duration(5 * time.Minute),
		},
	}
}

// Load reads the file at path, picking the format by extension (.yaml/.yml, .json,
// .toml). Fields the file leaves out keep their defaults; a missing file yields the
// defaults. Secrets may be overridden from the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := decodeFile(cfg, path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, cfg)
	case ".toml":
		_, err = toml.Decode(string(data), cfg)
	case ".yaml", ".yml", "":
		err = yaml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("failed to decode config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvContinuationKey); v != "" {
		c.Continuation.Key = v
	}
	if v := os.Getenv(EnvVaultKey); v != "" {
		c.VaultKey = v
	}
}

// Validate checks backend names and key sizes.
func (c *Config) Validate() error {
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.Store.Backend {
	case BackendMemory, BackendFile, BackendRedis:
	case BackendSQLite:
		if c.Store.Path == "" {
			return errors.New("store.path is required for the sqlite backend")
		}
	case BackendMySQL:
		if c.Store.DSN == "" {
			return errors.New("store.dsn is required for the mysql backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Continuation.Key != "" {
		if _, err := c.ContinuationKey(); err != nil {
			return err
		}
	}
	if _, err := c.FallbackKeys(); err != nil {
		return err
	}
	if c.VaultKey != "" {
		if _, err := c.VaultKeyBytes(); err != nil {
			return err
		}
	}
	return nil
}

// ContinuationKey decodes the active continuation key. It returns nil when none is set.
func (c *Config) ContinuationKey() ([]byte, error) {
	if c.Continuation.Key == "" {
		return nil, nil
	}
	return decodeKey("continuation.key", c.Continuation.Key)
}

// FallbackKeys decodes the retired continuation keys still accepted on open.
func (c *Config) FallbackKeys() ([][]byte, error) {
	keys := make([][]byte, 0, len(c.Continuation.FallbackKeys))
	for i, k := range c.Continuation.FallbackKeys {
		key, err := decodeKey(fmt.Sprintf("continuation.fallback_keys[%d]", i), k)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// VaultKeyBytes decodes the at-rest vault key. It returns nil when none is set.
func (c *Config) VaultKeyBytes() ([]byte, error) {
	if c.VaultKey == "" {
		return nil, nil
	}
	return decodeKey("vault_key", c.VaultKey)
}

func decodeKey(field, encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%s is not valid base64: %w", field, err)
	}
	if err := sealing.CheckKey(key); err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return key, nil
}

// ParseLevel maps a level name onto a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q", name)
	}
	return level, nil
}
