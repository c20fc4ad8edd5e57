package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ArionMiles/smartspend/internal/plugins"
	"github.com/ArionMiles/smartspend/pkg/categorizer"
	"github.com/ArionMiles/smartspend/pkg/client"
	"github.com/ArionMiles/smartspend/pkg/config"
	"github.com/ArionMiles/smartspend/pkg/logging"
	"github.com/ArionMiles/smartspend/pkg/ocr/tesseract"
)

const statusTimeout = 10 * time.Second

// runStatus checks the configuration and the reachability of each backend.
func runStatus(_ []string) error {
	fmt.Println("=== SmartSpend Status ===")
	fmt.Println()

	allGood := true
	reg := plugins.Default()

	fmt.Print("Configuration: ")
	cfg, err := loadConfig(reg)
	if err != nil {
		fmt.Printf("✗ %v\n", err)
		printFinalStatus(false)
		return nil
	}
	fmt.Printf("✓ Valid (store=%s, ocr=%s, mirror=%s, timezone=%s)\n", cfg.Store, cfg.OCR, cfg.Mirror, cfg.Timezone)

	checkStore(cfg, &allGood)
	checkModel(cfg, &allGood)
	checkOCR(cfg, &allGood)
	checkMirror(cfg, &allGood)
	checkCredentials(reg, cfg, &allGood)

	fmt.Print("Advisor: ")
	if cfg.GeminiAPIKey == "" {
		fmt.Println("– Disabled (GEMINI_API_KEY not set)")
	} else {
		fmt.Printf("✓ Configured (%s)\n", cfg.GeminiModel)
	}

	printFinalStatus(allGood)
	return nil
}

func checkStore(cfg config.Config, allGood *bool) {
	fmt.Printf("Record store (%s): ", cfg.Store)
	if cfg.Store == config.StoreMemory {
		fmt.Println("⚠ In-memory (records are lost on exit)")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), statusTimeout)
	defer cancel()
	st, err := openStore(ctx, cfg, logging.Discard())
	if err != nil {
		fmt.Printf("✗ %v\n", err)
		*allGood = false
		return
	}
	defer st.Close()
	if err := st.Ping(ctx); err != nil {
		fmt.Printf("✗ %v\n", err)
		*allGood = false
		return
	}
	fmt.Println("✓ Connected")
}

func checkModel(cfg config.Config, allGood *bool) {
	fmt.Printf("Classifier model (%s): ", cfg.ModelPath)
	if _, err := os.Stat(cfg.ModelPath); errors.Is(err, os.ErrNotExist) {
		fmt.Println("⚠ Not found (bundled corpus will be trained at start-up)")
		return
	}
	b, err := categorizer.LoadBayes(cfg.ModelPath)
	if err != nil {
		fmt.Printf("✗ Invalid: %v\n", err)
		*allGood = false
		return
	}
	fmt.Printf("✓ %d categories\n", len(b.Classes()))
}

func checkOCR(cfg config.Config, allGood *bool) {
	fmt.Printf("OCR engine (%s): ", cfg.OCR)
	if cfg.OCR != "tesseract" {
		fmt.Println("✓ Remote (see credentials below)")
		return
	}
	if err := tesseract.New(cfg.TesseractBin, logging.Discard()).Available(); err != nil {
		fmt.Printf("✗ %v\n", err)
		*allGood = false
		return
	}
	fmt.Println("✓ Found")
}

func checkMirror(cfg config.Config, allGood *bool) {
	fmt.Printf("Mirror (%s): ", cfg.Mirror)
	switch cfg.Mirror {
	case mirrorNone:
		fmt.Println("– Disabled")
	case "sheets":
		if cfg.GSheetsID != "" {
			fmt.Printf("✓ Spreadsheet %s, tab %s\n", cfg.GSheetsID, cfg.GSheetsName)
		} else {
			fmt.Printf("✓ New spreadsheet %q, tab %s\n", cfg.GSheetsTitle, cfg.GSheetsName)
		}
	default:
		dir := filepath.Dir(cfg.MirrorPath)
		if info, err := os.Stat(dir); err == nil && !info.IsDir() {
			fmt.Printf("✗ %s is not a directory\n", dir)
			*allGood = false
			return
		}
		fmt.Printf("✓ %s\n", cfg.MirrorPath)
	}
}

func checkCredentials(reg *plugins.Registry, cfg config.Config, allGood *bool) {
	mirror := cfg.Mirror
	if mirror == mirrorNone {
		mirror = ""
	}
	scopes, err := reg.Scopes(cfg.OCR, mirror)
	if err != nil || len(scopes) == 0 {
		return
	}

	fmt.Print("Google credentials: ")
	if cfg.GoogleCredentials == "" {
		fmt.Println("⚠ Application default credentials")
	} else if _, err := os.Stat(cfg.GoogleCredentials); err != nil {
		fmt.Printf("✗ %s not found\n", cfg.GoogleCredentials)
		*allGood = false
		return
	} else {
		fmt.Printf("✓ %s\n", cfg.GoogleCredentials)
	}

	if tok, err := client.TokenFromFile(client.TokenFile); err == nil {
		fmt.Printf("OAuth token (%s): ", client.TokenFile)
		if tok.Expiry.Before(time.Now()) {
			fmt.Println("⚠ Expired (will refresh on next run)")
		} else {
			fmt.Printf("✓ Valid (expires: %s)\n", tok.Expiry.Format(time.RFC3339))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), statusTimeout)
	defer cancel()
	fmt.Print("Google API client: ")
	if _, err := client.New(ctx, cfg.GoogleCredentials, scopes...); err != nil {
		fmt.Printf("✗ %v\n", err)
		*allGood = false
		return
	}
	fmt.Println("✓ Ready")
}

func printFinalStatus(allGood bool) {
	fmt.Println()
	if allGood {
		fmt.Println("Status: ✓ Ready to run")
		fmt.Println()
		fmt.Println("Run 'smartspend serve' to start the API.")
	} else {
		fmt.Println("Status: ✗ Configuration issues detected")
		fmt.Println()
		fmt.Println("Fix the issues above, then run 'smartspend status' again.")
	}
}
