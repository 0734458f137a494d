package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"bindrop/cfg"
	"bindrop/svc/api"
	"bindrop/svc/db"
	"bindrop/svc/svc"
	"bindrop/svc/util"
)

func main() {
	c, err := cfg.Load()
	if err != nil {
		util.Fatal().Err(err).Msg("failed to load configuration")
		os.Exit(1)
	}
	if err := cfg.Validate(c); err != nil {
		util.Fatal().Err(err).Msg("invalid configuration")
		os.Exit(1)
	}
	util.InitLog(c.LogLevel, c.Environment == "development")
	util.Info().Str("backend", c.Backend).Msg("starting bindrop")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := openStore(ctx, c)
	if err != nil {
		util.Fatal().Err(err).Str("backend", c.Backend).Msg("failed to open storage backend")
		os.Exit(1)
	}
	defer store.Close()
	util.Info().
		Str("backend", c.Backend).
		Int64("max_data_size", store.MaxDataSize()).
		Msg("storage backend ready")

	templates, err := api.LoadTemplates(c.TemplateDir)
	if err != nil {
		util.Fatal().Err(err).Msg("failed to load templates")
		os.Exit(1)
	}

	pasteSvc := svc.NewPaste(store, c.DefaultTTL)
	if svc.StartCleaner(ctx, store, c.CleanerInterval) {
		util.Info().Dur("interval", c.CleanerInterval).Msg("expired paste cleanup worker started")
	}

	server := api.NewServer(c, pasteSvc, templates, store)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		select {
		case <-sigCh:
			util.Info().Msg("shutting down gracefully")
		case <-gctx.Done():
		}
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		util.Error().Err(err).Msg("server exited with error")
		os.Exit(1)
	}
	util.Info().Msg("shutdown complete")
}

func openStore(ctx context.Context, c *cfg.Cfg) (db.Store, error) {
	switch c.Backend {
	case cfg.BackendMongo:
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return db.NewMongo(connectCtx, c.MongoURI, c.MongoDatabase, c.MongoCollection)
	case cfg.BackendRedis:
		return db.NewRedis(c.RedisURL, c.MaxPasteSize)
	case cfg.BackendSQLite:
		return db.NewSQLite(c.DatabasePath, c.MaxPasteSize, c.DBMaxOpenConns, c.DBMaxIdleConns)
	default:
		return db.NewMemory(c.MaxPasteSize), nil
	}
}
