package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/p-n-ai/cloudmaster/internal/api"
	"github.com/p-n-ai/cloudmaster/internal/catalog"
	"github.com/p-n-ai/cloudmaster/internal/coursestatus"
	"github.com/p-n-ai/cloudmaster/internal/exam"
	"github.com/p-n-ai/cloudmaster/internal/favorites"
	"github.com/p-n-ai/cloudmaster/internal/ingest"
	"github.com/p-n-ai/cloudmaster/internal/platform/cache"
	"github.com/p-n-ai/cloudmaster/internal/platform/config"
	"github.com/p-n-ai/cloudmaster/internal/platform/database"
	"github.com/p-n-ai/cloudmaster/internal/questionset"
	"github.com/p-n-ai/cloudmaster/internal/training"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg.Log))

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	app, err := newApp(ctx, cfg)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer app.close()

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      app.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr, "data_dir", cfg.DataDir)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	if err := app.ingest.Shutdown(shutdownCtx); err != nil {
		slog.Error("ingestion shutdown error", "error", err)
	}
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	level, _ := cfg.SlogLevel()
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

type app struct {
	handler http.Handler
	ingest  *ingest.Service
	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newApp builds the services. Without a database URL training, exam
// history and favorites live in memory; without a cache URL so do course statuses.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}
	checks := map[string]api.CheckFunc{}

	courses, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}

	var (
		trainingStore training.Store     = training.NewMemoryStore()
		examStore     exam.Store         = exam.NewMemoryStore()
		favoriteStore favorites.Store    = favorites.NewMemoryStore()
		statusStore   coursestatus.Store = coursestatus.NewMemoryStore()
	)

	if cfg.Database.URL != "" {
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		checks["database"] = db.HealthCheck

		if cfg.Database.Migrate {
			if err := db.Migrate(ctx); err != nil {
				a.close()
				return nil, err
			}
		}
		pgTraining, err := training.NewPostgresStore(db.Pool)
		if err != nil {
			a.close()
			return nil, err
		}
		pgExams, err := exam.NewPostgresStore(db.Pool)
		if err != nil {
			a.close()
			return nil, err
		}
		pgFavorites, err := favorites.NewPostgresStore(db.Pool)
		if err != nil {
			a.close()
			return nil, err
		}
		trainingStore, examStore, favoriteStore = pgTraining, pgExams, pgFavorites
		slog.Info("using postgres for training, exam history and favorites")
	}

	if cfg.Cache.URL != "" {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, func() { c.Close() })
		checks["cache"] = c.HealthCheck

		redisStatus, err := coursestatus.NewRedisStore(c.Client)
		if err != nil {
			a.close()
			return nil, err
		}
		statusStore = redisStatus
		slog.Info("using cache for course status")
	}

	sets := questionset.NewStore(questionset.Layout{Root: cfg.DataDir}, trainingStore)
	a.ingest = ingest.NewService(sets,
		ingest.WithHTTPClient(&http.Client{Timeout: cfg.Fetch.Timeout}),
		ingest.WithUserAgent(cfg.Fetch.UserAgent),
		ingest.WithStatusStore(statusStore),
		ingest.WithBatchConcurrency(cfg.Fetch.BatchConcurrency),
	)

	srv := api.NewServer(ctx, api.Deps{
		Catalog:   courses,
		Ingest:    a.ingest,
		Sets:      sets,
		Training:  trainingStore,
		Exams:     examStore,
		Status:    statusStore,
		Favorites: favoriteStore,
		Checks:    checks,
	})
	a.handler = srv.Handler()
	return a, nil
}
