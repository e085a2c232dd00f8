// Package config loads the editor's YAML configuration and applies
// WORKSHEET_* environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"worksheet/internal/domain"
	"worksheet/internal/gateway/openai"
	"worksheet/internal/service"
	"worksheet/internal/storage"
)

const EnvPrefix = "WORKSHEET_"

// Config represents the application configuration.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Storage StorageConfig `yaml:"storage"`
	History HistoryConfig `yaml:"history"`
	Gateway GatewayConfig `yaml:"gateway"`
	Edit    EditConfig    `yaml:"edit"`
}

type LogConfig struct {
	Mode  string `yaml:"mode"` // "dev" or "prod"
	Level string `yaml:"level"`
}

type StorageConfig struct {
	Driver  string `yaml:"driver"` // sqlite, postgres, mysql
	DSN     string `yaml:"dsn"`
	DataDir string `yaml:"dataDir"`
}

// HistoryConfig selects where edit records are persisted.
type HistoryConfig struct {
	Backend         string `yaml:"backend"` // sql, mongo, memory
	SessionID       string `yaml:"sessionId"`
	MongoURI        string `yaml:"mongoUri"`
	MongoDatabase   string `yaml:"mongoDatabase"`
	MongoCollection string `yaml:"mongoCollection"`
}

type GatewayConfig struct {
	Provider        string `yaml:"provider"` // openai, scripted
	APIKeyEnv       string `yaml:"apiKeyEnv"`
	KeychainService string `yaml:"keychainService"`

	openai.Options `yaml:",inline"`
}

type EditConfig struct {
	PatchPolicy string                      `yaml:"patchPolicy"`
	Context     domain.WorksheetEditContext `yaml:"context"`
}

const (
	HistorySQL    = "sql"
	HistoryMongo  = "mongo"
	HistoryMemory = "memory"

	ProviderOpenAI   = "openai"
	ProviderScripted = "scripted"
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{Mode: "prod", Level: "info"},
		Storage: StorageConfig{
			Driver:  string(storage.DialectSQLite),
			DataDir: DefaultDataDir(),
		},
		History: HistoryConfig{
			Backend:         HistorySQL,
			SessionID:       "default",
			MongoDatabase:   "worksheet",
			MongoCollection: "edits",
		},
		Gateway: GatewayConfig{
			Provider:  ProviderOpenAI,
			APIKeyEnv: "OPENAI_API_KEY",
			Options: openai.Options{
				BaseURL:           "https://api.openai.com/v1",
				Model:             "gpt-4.1-mini",
				Timeout:           60 * time.Second,
				MaxRetries:        2,
				RequestsPerMinute: 30,
			},
		},
		Edit: EditConfig{PatchPolicy: string(service.PatchPolicyPermissive)},
	}
}

// DefaultDataDir is ~/.local/share/worksheet.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "worksheet")
	}
	return filepath.Join(home, ".local", "share", "worksheet")
}

// DefaultPath is the config file read when no path is given.
func DefaultPath() string {
	return filepath.Join(DefaultDataDir(), "config.yaml")
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path reads DefaultPath if it exists.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("load config: %w", err)
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overrides fields from WORKSHEET_* variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	str("LOG_MODE", &c.Log.Mode)
	str("LOG_LEVEL", &c.Log.Level)
	str("STORAGE_DRIVER", &c.Storage.Driver)
	str("STORAGE_DSN", &c.Storage.DSN)
	str("DATA_DIR", &c.Storage.DataDir)
	str("HISTORY_BACKEND", &c.History.Backend)
	str("SESSION_ID", &c.History.SessionID)
	str("MONGO_URI", &c.History.MongoURI)
	str("GATEWAY_PROVIDER", &c.Gateway.Provider)
	str("GATEWAY_BASE_URL", &c.Gateway.BaseURL)
	str("GATEWAY_MODEL", &c.Gateway.Model)
	str("GATEWAY_API_KEY_ENV", &c.Gateway.APIKeyEnv)
	str("PATCH_POLICY", &c.Edit.PatchPolicy)

	if v, ok := lookup(EnvPrefix + "GATEWAY_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sGATEWAY_TIMEOUT: %w", EnvPrefix, err)
		}
		c.Gateway.Timeout = d
	}
	if v, ok := lookup(EnvPrefix + "GATEWAY_RPM"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sGATEWAY_RPM: %w", EnvPrefix, err)
		}
		c.Gateway.RequestsPerMinute = n
	}
	return nil
}

// Validate checks enumerations and required combinations.
func (c *Config) Validate() error {
	var errs []error
	switch c.Log.Mode {
	case "dev", "development", "prod", "production", "":
	default:
		errs = append(errs, fmt.Errorf("log.mode: unknown mode %q", c.Log.Mode))
	}
	dialect, err := storage.ParseDialect(c.Storage.Driver)
	if err != nil {
		errs = append(errs, fmt.Errorf("storage.driver: %w", err))
	}
	if dialect != storage.DialectSQLite && c.Storage.DSN == "" {
		errs = append(errs, fmt.Errorf("storage.dsn: required for %s", dialect))
	}
	if dialect == storage.DialectSQLite && c.Storage.DSN == "" && c.Storage.DataDir == "" {
		errs = append(errs, errors.New("storage: dataDir or dsn required"))
	}

	switch strings.ToLower(c.History.Backend) {
	case HistorySQL, HistoryMemory:
	case HistoryMongo:
		if c.History.MongoURI == "" {
			errs = append(errs, errors.New("history.mongoUri: required for mongo backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("history.backend: unknown backend %q", c.History.Backend))
	}

	switch strings.ToLower(c.Gateway.Provider) {
	case ProviderOpenAI, ProviderScripted:
	default:
		errs = append(errs, fmt.Errorf("gateway.provider: unknown provider %q", c.Gateway.Provider))
	}
	if c.Gateway.Timeout < 0 {
		errs = append(errs, errors.New("gateway.timeout: must not be negative"))
	}
	if c.Gateway.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("gateway.requestsPerMinute: must not be negative"))
	}
	if _, err := service.ParsePatchPolicy(c.Edit.PatchPolicy); err != nil {
		errs = append(errs, fmt.Errorf("edit.patchPolicy: %w", err))
	}
	return errors.Join(errs...)
}

// SQLiteDSN returns the database path for the sqlite driver.
func (s StorageConfig) SQLiteDSN() string {
	if s.DSN != "" {
		return s.DSN
	}
	return filepath.Join(s.DataDir, "worksheet.db")
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
