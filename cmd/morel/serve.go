package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/morel-ai/morel/internal/api"
	"github.com/morel-ai/morel/internal/catalog"
	"github.com/morel-ai/morel/internal/config"
	"github.com/morel-ai/morel/internal/metrics"
	"github.com/morel-ai/morel/internal/ratelimit"
	"github.com/morel-ai/morel/internal/recommend"
	"github.com/morel-ai/morel/internal/report"
	"github.com/morel-ai/morel/internal/usage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Morel routing server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return err
	}
	slog.Info("connected to database")

	modelStore := catalog.NewStore(pool)
	models, err := modelStore.List(ctx)
	if err != nil {
		return err
	}
	cat, err := catalog.New(models)
	if err != nil {
		return err
	}
	slog.Info("catalog loaded", "models", cat.Len())

	eventStore := usage.NewStore(pool)
	recorder := usage.NewRecorder(cat, eventStore, cfg.Recorder.CachedFree)
	scorer := recommend.NewScorer(cat)
	aggregator := report.NewAggregator(eventStore)

	limiter := ratelimit.New(cfg.RateLimit.Default, cfg.RateLimit.Window)

	m := metrics.New()
	m.SetCatalogModels(cat.Len())
	m.RegisterDBPoolCollector(func() (total, idle, acquired int32) {
		stat := pool.Stat()
		return stat.TotalConns(), stat.IdleConns(), stat.AcquiredConns()
	})

	router := api.NewRouter(api.RouterDeps{
		Catalog:        cat,
		ModelStore:     modelStore,
		Scorer:         scorer,
		Recorder:       recorder,
		Aggregator:     aggregator,
		Limiter:        limiter,
		Metrics:        m,
		DefaultTopN:    cfg.Recommend.DefaultTopN,
		AdminKeyHash:   cfg.Auth.AdminKeyHash,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		DBPing:         pool.Ping,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-sigCh
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	return srv.Shutdown(shutdownCtx)
}
