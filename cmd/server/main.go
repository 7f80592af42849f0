package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/beatroom/beatroom/internal/adapters/http"
	"github.com/beatroom/beatroom/internal/app"
	"github.com/beatroom/beatroom/internal/app/orch"
	"github.com/beatroom/beatroom/internal/config"
	"github.com/beatroom/beatroom/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	snapshots := selectSnapshotStore(ctx, cfg)
	defer snapshots.Close()

	registry := app.NewRegistry()
	rooms := app.NewRoomManager()

	o := &orch.Orchestrator{
		Registry:     registry,
		Rooms:        rooms,
		Snapshots:    snapshots,
		Policy:       app.DropPolicy{},
		StoreTimeout: cfg.StoreTimeout,
	}

	r := router.SetupRouter(ctx, cfg, o)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Beatroom server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}

// selectSnapshotStore picks Redis, then SQLite, then memory.
func selectSnapshotStore(ctx context.Context, cfg *config.Config) store.SnapshotStore {
	if cfg.RedisURL != "" {
		s, err := store.NewRedisStore(ctx, cfg.RedisURL, cfg.SnapshotTTL)
		if err == nil {
			log.Info().Str("module", "main").Msg("using redis snapshot store")
			return s
		}
		log.Error().Err(err).Msg("redis unavailable, falling back")
	}
	if cfg.SnapshotPath != "" {
		s, err := store.NewSQLiteStore(ctx, cfg.SnapshotPath, cfg.SnapshotTTL)
		if err == nil {
			log.Info().Str("module", "main").Str("path", cfg.SnapshotPath).Msg("using sqlite snapshot store")
			return s
		}
		log.Error().Err(err).Msg("sqlite unavailable, falling back")
	}
	log.Info().Str("module", "main").Msg("using in-memory snapshot store")
	return store.NewMemoryStore(cfg.SnapshotTTL)
}
