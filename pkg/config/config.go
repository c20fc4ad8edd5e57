// Package config loads the smartspend process configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// DefaultWhitelist is the character set the OCR engine may emit.
const DefaultWhitelist = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz.:/$ "

// Config holds the application configuration loaded from environment variables.
// It is built once at start-up and handed to each component by value.
type Config struct {
	// Addr is the HTTP listen address.
	// Environment variable: SMARTSPEND_ADDR
	Addr string `koanf:"SMARTSPEND_ADDR"`

	// Store selects the record store backend: memory, postgres or redis.
	// Environment variable: SMARTSPEND_STORE
	Store string `koanf:"SMARTSPEND_STORE"`

	PostgresHost     string `koanf:"POSTGRES_HOST"`
	PostgresPort     int    `koanf:"POSTGRES_PORT"`
	PostgresDB       string `koanf:"POSTGRES_DB"`
	PostgresUser     string `koanf:"POSTGRES_USER"`
	PostgresPassword string `koanf:"POSTGRES_PASSWORD"`
	PostgresSSLMode  string `koanf:"POSTGRES_SSLMODE"`

	RedisAddr     string `koanf:"REDIS_ADDR"`
	RedisPassword string `koanf:"REDIS_PASSWORD"`
	RedisDB       int    `koanf:"REDIS_DB"`

	// ModelPath is the trained classifier artifact.
	// Environment variable: SMARTSPEND_MODEL_PATH
	ModelPath string `koanf:"SMARTSPEND_MODEL_PATH"`

	// OCR selects the recognizer plugin: tesseract or vision.
	// Environment variable: SMARTSPEND_OCR
	OCR string `koanf:"SMARTSPEND_OCR"`
	// TesseractBin is the tesseract executable.
	TesseractBin string `koanf:"SMARTSPEND_TESSERACT_BIN"`
	// Whitelist restricts the characters OCR may return. Ranges like 0-9 are allowed.
	Whitelist string `koanf:"SMARTSPEND_OCR_WHITELIST"`

	// GoogleCredentials is a service account JSON file used by the vision
	// recognizer and the sheets mirror. Empty means application default credentials.
	GoogleCredentials string `koanf:"SMARTSPEND_GOOGLE_CREDENTIALS"`

	// Mirror selects the record log mirror: none, csv, json or sheets.
	// Environment variable: SMARTSPEND_MIRROR
	Mirror string `koanf:"SMARTSPEND_MIRROR"`
	// MirrorPath is the output file of the csv and json mirrors. The default
	// extension follows the mirror.
	MirrorPath string `koanf:"SMARTSPEND_MIRROR_PATH"`

	GSheetsID    string `koanf:"GSHEETS_ID"`
	GSheetsTitle string `koanf:"GSHEETS_TITLE"`
	GSheetsName  string `koanf:"GSHEETS_NAME"`

	// GeminiAPIKey enables savings tips. Empty disables them.
	GeminiAPIKey string `koanf:"GEMINI_API_KEY"`
	GeminiModel  string `koanf:"SMARTSPEND_GEMINI_MODEL"`

	// Timezone is the location whose calendar dates records are bucketed by.
	// Environment variable: SMARTSPEND_TIMEZONE
	Timezone string `koanf:"SMARTSPEND_TIMEZONE"`
}

// PostgresConfig holds PostgreSQL connection configuration.
type PostgresConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Load reads the configuration from the process environment and applies defaults.
func Load() (Config, error) {
	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", nil), nil); err != nil {
		return Config{}, fmt.Errorf("loading config from environment: %w", err)
	}
	return FromKoanf(k)
}

// FromKoanf unmarshals an already loaded koanf instance.
func FromKoanf(k *koanf.Koanf) (Config, error) {
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf", FlatPaths: true}); err != nil {
		return Config{}, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Addr == "" {
		c.Addr = ":8000"
	}
	if c.Store == "" {
		c.Store = StoreMemory
	}
	if c.PostgresPort == 0 {
		c.PostgresPort = 5432
	}
	if c.PostgresSSLMode == "" {
		c.PostgresSSLMode = "disable"
	}
	if c.RedisAddr == "" {
		c.RedisAddr = "localhost:6379"
	}
	if c.ModelPath == "" {
		c.ModelPath = "data/classifier.gob"
	}
	if c.OCR == "" {
		c.OCR = "tesseract"
	}
	if c.TesseractBin == "" {
		c.TesseractBin = "tesseract"
	}
	if c.Whitelist == "" {
		c.Whitelist = DefaultWhitelist
	}
	if c.Mirror == "" {
		c.Mirror = "csv"
	}
	if c.MirrorPath == "" {
		c.MirrorPath = "uploads/expense_log.csv"
		if c.Mirror == "json" {
			c.MirrorPath = "uploads/expense_log.json"
		}
	}
	if c.GSheetsName == "" {
		c.GSheetsName = "Expenses"
	}
	if c.GeminiModel == "" {
		c.GeminiModel = "gemini-2.0-flash"
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
}

// Validate checks that the selected backends have what they need.
// Plugin names are checked against the registry by the caller.
func (c Config) Validate() error {
	switch c.Store {
	case StoreMemory, StoreRedis:
	case StorePostgres:
		if c.PostgresHost == "" {
			return fmt.Errorf("POSTGRES_HOST is required when SMARTSPEND_STORE=postgres")
		}
	default:
		return fmt.Errorf("unknown SMARTSPEND_STORE %q", c.Store)
	}

	if c.Mirror == "sheets" && c.GSheetsID == "" && c.GSheetsTitle == "" {
		return fmt.Errorf("either GSHEETS_ID or GSHEETS_TITLE environment variable is required")
	}

	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves Timezone.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("SMARTSPEND_TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Postgres returns the PostgreSQL connection settings.
func (c Config) Postgres() PostgresConfig {
	return PostgresConfig{
		Host:     c.PostgresHost,
		Port:     c.PostgresPort,
		Database: c.PostgresDB,
		User:     c.PostgresUser,
		Password: c.PostgresPassword,
		SSLMode:  c.PostgresSSLMode,
	}
}

// Redis returns the Redis connection settings.
func (c Config) Redis() RedisConfig {
	return RedisConfig{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}
