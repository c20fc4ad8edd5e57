package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ArionMiles/smartspend/internal/plugins"
	"github.com/ArionMiles/smartspend/pkg/config"
	"github.com/ArionMiles/smartspend/pkg/logging"
	"github.com/ArionMiles/smartspend/pkg/store/memory"
)

func TestLoadConfigPluginNames(t *testing.T) {
	tests := []struct {
		name    string
		ocr     string
		mirror  string
		wantErr bool
	}{
		{name: "defaults"},
		{name: "mirror disabled", mirror: "none"},
		{name: "json mirror", ocr: "vision", mirror: "json"},
		{name: "unknown ocr", ocr: "paddle", wantErr: true},
		{name: "unknown mirror", mirror: "mongo", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SMARTSPEND_STORE", "memory")
			t.Setenv("SMARTSPEND_OCR", tt.ocr)
			t.Setenv("SMARTSPEND_MIRROR", tt.mirror)
			_, err := loadConfig(plugins.Default())
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOpenStoreDefaultsToMemory(t *testing.T) {
	st, err := openStore(context.Background(), config.Config{Store: config.StoreMemory}, logging.Discard())
	if err != nil {
		t.Fatalf("openStore: %v", err)
	}
	if _, ok := st.(*memory.Store); !ok {
		t.Errorf("got %T, want *memory.Store", st)
	}
}

func TestLoadClassifierTrainsWhenMissing(t *testing.T) {
	cfg := config.Config{ModelPath: filepath.Join(t.TempDir(), "missing.gob")}
	b, err := loadClassifier(cfg, logging.Discard())
	if err != nil {
		t.Fatalf("loadClassifier: %v", err)
	}
	if len(b.Classes()) < 2 {
		t.Errorf("classes = %v", b.Classes())
	}
}

func TestGoogleClientNotNeeded(t *testing.T) {
	c, err := googleClient(context.Background(), plugins.Default(), config.Config{}, "tesseract", "csv")
	if err != nil || c != nil {
		t.Errorf("got %v, %v; want nil client", c, err)
	}
}
