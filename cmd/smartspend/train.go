package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/ArionMiles/smartspend/pkg/categorizer"
	"github.com/ArionMiles/smartspend/pkg/config"
)

// runTrain fits the classifier on a labelled CSV (or the bundled corpus) and
// saves it where serve will load it.
func runTrain(logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	in := fs.String("in", "", "labelled CSV with text,category rows (default: bundled corpus)")
	out := fs.String("out", "", "model output path (default: SMARTSPEND_MODEL_PATH)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *out == "" {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		*out = cfg.ModelPath
	}

	var (
		examples []categorizer.Example
		err      error
	)
	if *in == "" {
		examples, err = categorizer.DefaultExamples()
	} else {
		var f *os.File
		if f, err = os.Open(*in); err != nil {
			return fmt.Errorf("opening training data: %w", err)
		}
		defer f.Close()
		examples, err = categorizer.ReadExamples(f)
	}
	if err != nil {
		return err
	}

	cl, err := categorizer.Train(examples)
	if err != nil {
		return err
	}
	if err := categorizer.SaveBayes(cl, *out); err != nil {
		return err
	}

	logger.Info("classifier trained", "examples", len(examples), "path", *out)
	fmt.Printf("Model written to %s (%d examples)\n", *out, len(examples))
	return nil
}
