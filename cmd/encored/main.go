// Command encored is the score import daemon: it owns the database, runs
// the import worker pool and serves the HTTP API.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/joho/godotenv"

	"encore/internal/config"
	"encore/internal/events"
	"encore/internal/jobs"
	"encore/internal/logging"
	"encore/internal/scoreimport"
	"encore/internal/server"
	"encore/internal/sessions"
	"encore/internal/sources"
	"encore/internal/sources/barbatos"
	"encore/internal/sources/batchmanual"
	"encore/internal/sources/beatoraja"
	"encore/internal/sources/eamusement"
	"encore/internal/sources/kai"
	"encore/internal/storage"
	"encore/internal/userstats"
)

func main() {
	// .env is optional; real deployments configure via the toml file.
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	dlog := logging.WithSubject(logger, "daemon")

	lock := flock.New(cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		dlog.Error("daemon lock", logging.Error(err))
		os.Exit(1)
	}
	if !locked {
		dlog.Error("another encored instance holds the lock", "path", cfg.LockPath())
		os.Exit(1)
	}
	defer lock.Unlock() //nolint:errcheck

	store, err := storage.Open(cfg)
	if err != nil {
		dlog.Error("open store", logging.Error(err))
		os.Exit(1)
	}
	defer store.Close()

	publisher := events.NewPublisher(cfg.Events.Addr, cfg.Events.Channel, logger)
	defer publisher.Close()

	registry, err := buildRegistry(cfg, store)
	if err != nil {
		dlog.Error("build source registry", logging.Error(err))
		os.Exit(1)
	}

	importer := scoreimport.NewImporter(
		store,
		registry,
		sessions.NewBuilder(store, time.Duration(cfg.Import.SessionGapMinutes)*time.Minute),
		userstats.NewUpdater(store, publisher),
		cfg.Import.Workers,
	)

	runner := jobs.NewRunner(importer, store, logger)
	runner.Start(ctx, cfg.Import.JobWorkers)

	srv := server.New(cfg, store, runner, registry, logger)
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			dlog.Error("http server", logging.Error(err))
			cancel()
		}
	}()

	dlog.Info("encored started", "importTypes", registry.ImportTypes())
	<-ctx.Done()

	dlog.Info("encored shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		dlog.Warn("http shutdown", logging.Error(err))
	}
	runner.Stop()
}

// buildRegistry wires every import source the daemon serves. The Kai
// sources only register when their service base URL is configured.
func buildRegistry(cfg *config.Config, store *storage.Store) (*scoreimport.Registry, error) {
	srcs := []sources.Source{
		batchmanual.New(store, "ir/direct-manual"),
		batchmanual.New(store, "file/batch-manual"),
		eamusement.New(store),
		barbatos.New(store),
		beatoraja.New(store),
	}

	timeout := time.Duration(cfg.Kai.RequestTimeout) * time.Second
	if cfg.Kai.FLOBaseURL != "" {
		client := kai.NewClient(cfg.Kai.FLOBaseURL, kai.StaticToken(cfg.Kai.FLOToken), timeout)
		srcs = append(srcs, kai.NewIIDX(store, "FLO", client), kai.NewSDVX(store, "FLO", client))
	}
	if cfg.Kai.EAGBaseURL != "" {
		client := kai.NewClient(cfg.Kai.EAGBaseURL, kai.StaticToken(cfg.Kai.EAGToken), timeout)
		srcs = append(srcs, kai.NewIIDX(store, "EAG", client), kai.NewSDVX(store, "EAG", client))
	}

	return scoreimport.NewRegistry(srcs...)
}
