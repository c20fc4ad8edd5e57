package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SMARTSPEND_STORE", "")
	t.Setenv("SMARTSPEND_ADDR", "")
	t.Setenv("SMARTSPEND_MIRROR", "")
	t.Setenv("SMARTSPEND_MIRROR_PATH", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Addr != ":8000" {
		t.Errorf("addr: got %q, want :8000", cfg.Addr)
	}
	if cfg.Store != StoreMemory {
		t.Errorf("store: got %q, want %q", cfg.Store, StoreMemory)
	}
	if cfg.Whitelist != DefaultWhitelist {
		t.Errorf("whitelist: got %q", cfg.Whitelist)
	}
	if cfg.Timezone != "UTC" {
		t.Errorf("timezone: got %q, want UTC", cfg.Timezone)
	}
	if cfg.MirrorPath != "uploads/expense_log.csv" {
		t.Errorf("csv mirror path: got %q", cfg.MirrorPath)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SMARTSPEND_STORE", "postgres")
	t.Setenv("POSTGRES_HOST", "db")
	t.Setenv("POSTGRES_PORT", "6543")
	t.Setenv("POSTGRES_DB", "smartspend")
	t.Setenv("SMARTSPEND_MIRROR", "json")
	t.Setenv("SMARTSPEND_MIRROR_PATH", "")
	t.Setenv("REDIS_DB", "2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	pg := cfg.Postgres()
	if pg.Host != "db" || pg.Port != 6543 || pg.Database != "smartspend" {
		t.Errorf("postgres: got %+v", pg)
	}
	if pg.SSLMode != "disable" {
		t.Errorf("sslmode default: got %q", pg.SSLMode)
	}
	if cfg.Mirror != "json" {
		t.Errorf("mirror: got %q, want json", cfg.Mirror)
	}
	if cfg.MirrorPath != "uploads/expense_log.json" {
		t.Errorf("json mirror path: got %q", cfg.MirrorPath)
	}
	if cfg.Redis().DB != 2 {
		t.Errorf("redis db: got %d, want 2", cfg.Redis().DB)
	}
}

func TestValidate(t *testing.T) {
	base := Config{}
	base.applyDefaults()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"unknown store", func(c *Config) { c.Store = "mongo" }, true},
		{"postgres without host", func(c *Config) { c.Store = StorePostgres }, true},
		{"postgres with host", func(c *Config) { c.Store = StorePostgres; c.PostgresHost = "db" }, false},
		{"sheets without id or title", func(c *Config) { c.Mirror = "sheets" }, true},
		{"sheets with title", func(c *Config) { c.Mirror = "sheets"; c.GSheetsTitle = "Expenses" }, false},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("got err=%v, wantErr=%v", err, tc.wantErr)
			}
		})
	}
}
