package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// runImport stores the rows of a CSV or Excel file, or re-imports a mirror
// log with -sync.
func runImport(logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	owner := fs.String("owner", "", "email of the expense owner")
	file := fs.String("file", "", "CSV or Excel file with Date, Description and Amount columns")
	sync := fs.Bool("sync", false, "treat the file as a mirror log (date,description,amount,category,owner_id)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *owner == "" || *file == "" {
		return errors.New("usage: smartspend import -owner EMAIL -file PATH [-sync]")
	}

	f, err := os.Open(*file)
	if err != nil {
		return fmt.Errorf("opening %s: %w", *file, err)
	}
	defer f.Close()

	ctx := context.Background()
	a, err := newApp(ctx, logger, appOptions{mirror: !*sync})
	if err != nil {
		return err
	}
	defer a.Close()

	if *sync {
		res, err := a.svc.Sync(ctx, *owner, f)
		if err != nil {
			return err
		}
		fmt.Printf("%d records synced, %d skipped.\n", res.Synced, res.Skipped)
		return nil
	}

	res, err := a.svc.ImportSpreadsheet(ctx, *owner, filepath.Base(*file), f)
	if err != nil {
		return err
	}
	fmt.Printf("%d entries uploaded and categorized successfully (%d dropped).\n", res.Inserted, res.Dropped)
	return nil
}
