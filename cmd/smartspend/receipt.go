package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// runReceipt runs one receipt image through the full pipeline and prints
// the stored result as JSON.
func runReceipt(logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("receipt", flag.ExitOnError)
	owner := fs.String("owner", "", "email of the expense owner")
	file := fs.String("file", "", "receipt image (png, jpeg, gif, bmp, tiff or webp)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *owner == "" || *file == "" {
		return errors.New("usage: smartspend receipt -owner EMAIL -file IMAGE")
	}

	f, err := os.Open(*file)
	if err != nil {
		return fmt.Errorf("opening receipt: %w", err)
	}
	defer f.Close()

	ctx := context.Background()
	a, err := newApp(ctx, logger, appOptions{recognizer: true, mirror: true})
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.svc.ProcessReceipt(ctx, *owner, f)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"file":    filepath.Base(*file),
		"date":    res.Date,
		"items":   res.Items,
		"records": res.Records,
	})
}
