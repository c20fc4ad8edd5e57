package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/ArionMiles/smartspend/internal/plugins"
	"github.com/ArionMiles/smartspend/pkg/client"
	"github.com/ArionMiles/smartspend/pkg/config"
)

// runAuthorize obtains a user token for an OAuth client secret, covering the
// scopes of every built-in plugin.
func runAuthorize(logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("authorize", flag.ExitOnError)
	secret := fs.String("secret", "", "OAuth client secret JSON (default: SMARTSPEND_GOOGLE_CREDENTIALS)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *secret == "" {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		*secret = cfg.GoogleCredentials
	}
	if *secret == "" {
		return errors.New("usage: smartspend authorize -secret CLIENT_SECRET.json")
	}

	reg := plugins.Default()
	var scopes []string
	for _, p := range reg.ListRecognizers() {
		scopes = append(scopes, p.RequiredScopes()...)
	}
	for _, p := range reg.ListMirrors() {
		scopes = append(scopes, p.RequiredScopes()...)
	}

	tok, err := client.Authorize(context.Background(), *secret, client.TokenFile, os.Stdin, os.Stdout, scopes...)
	if err != nil {
		return err
	}
	logger.Info("token saved", "path", client.TokenFile, "expiry", tok.Expiry)
	fmt.Println("Authentication successful!")
	return nil
}
