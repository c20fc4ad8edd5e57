package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/ArionMiles/smartspend/pkg/service"
)

// runSeed inserts generated demo records for one owner.
func runSeed(logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	owner := fs.String("owner", "", "email of the expense owner")
	n := fs.Int("n", 50, "records per month")
	seed := fs.Uint64("seed", 0, "random seed (default: current time)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *owner == "" {
		return errors.New("usage: smartspend seed -owner EMAIL [-n 50] [-seed N]")
	}
	if *seed == 0 {
		*seed = uint64(time.Now().UnixNano())
	}

	ctx := context.Background()
	a, err := newApp(ctx, logger, appOptions{mirror: true})
	if err != nil {
		return err
	}
	defer a.Close()

	rng := rand.New(rand.NewPCG(*seed, *seed>>1))
	count, err := a.svc.Seed(ctx, *owner, *n, rng)
	if err != nil {
		return err
	}
	fmt.Printf("Inserted %d demo expenses for %s over the last %d months.\n", count, *owner, service.SeedMonths)
	return nil
}
