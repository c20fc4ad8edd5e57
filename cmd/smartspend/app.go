package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/ArionMiles/smartspend/internal/plugins"
	"github.com/ArionMiles/smartspend/pkg/advisor"
	"github.com/ArionMiles/smartspend/pkg/api"
	"github.com/ArionMiles/smartspend/pkg/auth"
	"github.com/ArionMiles/smartspend/pkg/categorizer"
	"github.com/ArionMiles/smartspend/pkg/client"
	"github.com/ArionMiles/smartspend/pkg/config"
	"github.com/ArionMiles/smartspend/pkg/service"
	"github.com/ArionMiles/smartspend/pkg/store/memory"
	"github.com/ArionMiles/smartspend/pkg/store/postgres"
	"github.com/ArionMiles/smartspend/pkg/store/redis"
	"github.com/ArionMiles/smartspend/pkg/writer"
)

const mirrorNone = "none"

type recordStore interface {
	api.Store
	api.UserStore
}

// app holds the components shared by the commands.
type app struct {
	cfg    config.Config
	store  recordStore
	svc    *service.Service
	auth   *auth.Service
	fanout *writer.Fanout
	mirror api.Mirror
	done   chan error
	logger *slog.Logger
}

// appOptions selects the optional parts a command needs.
type appOptions struct {
	recognizer bool
	mirror     bool
	advisor    bool
}

func loadConfig(reg *plugins.Registry) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	if _, err := reg.GetRecognizer(cfg.OCR); err != nil {
		return config.Config{}, fmt.Errorf("SMARTSPEND_OCR: %w", err)
	}
	if cfg.Mirror != mirrorNone {
		if _, err := reg.GetMirror(cfg.Mirror); err != nil {
			return config.Config{}, fmt.Errorf("SMARTSPEND_MIRROR: %w", err)
		}
	}
	return cfg, nil
}

func newApp(ctx context.Context, logger *slog.Logger, opts appOptions) (*app, error) {
	reg := plugins.Default()
	cfg, err := loadConfig(reg)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	logger.Info("configuration loaded",
		"store", cfg.Store,
		"ocr", cfg.OCR,
		"mirror", cfg.Mirror,
		"timezone", cfg.Timezone,
	)

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, store: st, logger: logger}

	classifier, err := loadClassifier(cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	svcOpts := []service.Option{
		service.WithLocation(loc),
		service.WithWhitelist(cfg.Whitelist),
	}

	var recognizerName, mirrorName string
	if opts.recognizer {
		recognizerName = cfg.OCR
	}
	if opts.mirror && cfg.Mirror != mirrorNone {
		mirrorName = cfg.Mirror
	}
	httpClient, err := googleClient(ctx, reg, cfg, recognizerName, mirrorName)
	if err != nil {
		a.Close()
		return nil, err
	}
	env := plugins.Env{Config: cfg, HTTPClient: httpClient, Logger: logger}

	if recognizerName != "" {
		rec, err := reg.CreateRecognizer(ctx, recognizerName, env)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("creating %s recognizer: %w", recognizerName, err)
		}
		svcOpts = append(svcOpts, service.WithRecognizer(rec))
	}

	if mirrorName != "" {
		m, err := reg.CreateMirror(ctx, mirrorName, env)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("creating %s mirror: %w", mirrorName, err)
		}
		a.mirror = m
		a.fanout = writer.NewFanout(writer.DefaultQueueSize, logger)
		svcOpts = append(svcOpts, service.WithMirror(a.fanout))
	}

	if opts.advisor && cfg.GeminiAPIKey != "" {
		adv, err := advisor.New(ctx, advisor.Config{APIKey: cfg.GeminiAPIKey, Model: cfg.GeminiModel}, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("creating advisor: %w", err)
		}
		svcOpts = append(svcOpts, service.WithAdvisor(adv))
	}

	a.svc = service.New(st, categorizer.New(classifier), logger, svcOpts...)
	a.auth = auth.New(st, logger)
	a.startMirror()
	return a, nil
}

// startMirror runs the mirror until Close drains it. The mirror does not
// follow the command context so queued records are flushed on shutdown.
func (a *app) startMirror() {
	if a.mirror == nil {
		return
	}
	a.done = make(chan error, 1)
	go func() {
		a.done <- a.fanout.Run(context.Background(), a.mirror)
	}()
}

// Close drains the mirror and closes the store.
func (a *app) Close() {
	if a.fanout != nil {
		a.fanout.Close()
	}
	if a.done != nil {
		if err := <-a.done; err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("mirror error", "error", err)
		}
	}
	if err := a.store.Close(); err != nil {
		a.logger.Error("closing store", "error", err)
	}
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (recordStore, error) {
	switch cfg.Store {
	case config.StorePostgres:
		pg := cfg.Postgres()
		s, err := postgres.New(ctx, postgres.Config{
			Host:     pg.Host,
			Port:     pg.Port,
			Database: pg.Database,
			User:     pg.User,
			Password: pg.Password,
			SSLMode:  pg.SSLMode,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("opening postgres store: %w", err)
		}
		return s, nil
	case config.StoreRedis:
		rc := cfg.Redis()
		s, err := redis.New(ctx, redis.Config{
			Addr:     rc.Addr,
			Password: rc.Password,
			DB:       rc.DB,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("opening redis store: %w", err)
		}
		return s, nil
	default:
		logger.Warn("using in-memory store, records are lost on exit")
		return memory.New(), nil
	}
}

// loadClassifier reads the trained model, training one from the bundled
// corpus when no model file exists yet.
func loadClassifier(cfg config.Config, logger *slog.Logger) (*categorizer.Bayes, error) {
	if _, err := os.Stat(cfg.ModelPath); errors.Is(err, os.ErrNotExist) {
		logger.Warn("classifier model not found, training from bundled corpus", "path", cfg.ModelPath)
		return categorizer.TrainDefault()
	}
	return categorizer.LoadBayes(cfg.ModelPath)
}

// googleClient authorizes an HTTP client for the scopes the selected
// plugins need. It returns nil when they need none.
func googleClient(ctx context.Context, reg *plugins.Registry, cfg config.Config, recognizer, mirror string) (*http.Client, error) {
	scopes, err := reg.Scopes(recognizer, mirror)
	if err != nil {
		return nil, err
	}
	if len(scopes) == 0 {
		return nil, nil
	}
	c, err := client.New(ctx, cfg.GoogleCredentials, scopes...)
	if err != nil {
		return nil, fmt.Errorf("creating http client: %w", err)
	}
	return c, nil
}
