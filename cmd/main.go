package main

import (
	"context"
	stdlog "log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"github.com/tubenotes/tubenotes/internal/catalog"
	"github.com/tubenotes/tubenotes/internal/config"
	"github.com/tubenotes/tubenotes/internal/httpapi"
	"github.com/tubenotes/tubenotes/internal/persistence"
	"github.com/tubenotes/tubenotes/internal/proxy"
	"github.com/tubenotes/tubenotes/internal/summary"
	"github.com/tubenotes/tubenotes/internal/transcript"
	"github.com/tubenotes/tubenotes/pkg/icron"
	"github.com/tubenotes/tubenotes/pkg/log"
)

type cronEngine interface {
	Start()
	Stop() context.Context
}

type httpServer interface {
	ListenAndServe(addr string) error
	Shutdown(ctx context.Context) error
}

func main() {
	// Optional .env for local development; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	cfg, err := config.NewFromEnv()
	if err != nil {
		stdlog.Fatal("Failed to load configuration:", err)
	}

	level := log.ParseLevel(cfg.Server.LogLevel)
	if cfg.Server.LogFile != "" {
		fileLogger, err := log.NewFileLogger(cfg.Server.LogFile, level)
		if err != nil {
			stdlog.Fatal("Failed to open log file:", err)
		}
		defer fileLogger.Close()
		log.SetGlobal(fileLogger.Logger)
	} else {
		log.InitLogger(level)
	}

	store, err := persistence.NewSQLiteStore(cfg.Cache.DBPath, time.Duration(cfg.Cache.TTLHours)*time.Hour)
	if err != nil {
		stdlog.Fatal("Failed to open transcript cache:", err)
	}
	defer store.Close()

	sweeper := cron.New()
	if _, err := sweeper.AddFunc(cfg.Cache.SweepCron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if n, err := store.PurgeExpired(ctx); err != nil {
			log.Warn("cache sweep failed: %v", err)
		} else if n > 0 {
			log.Info("cache sweep purged %d expired transcripts", n)
		}
	}); err != nil {
		stdlog.Fatal("Invalid CACHE_SWEEP_CRON:", err)
	}
	if trigger, err := icron.GetTriggerInfo(cfg.Cache.SweepCron, time.Now()); err == nil {
		log.Info("first cache sweep at %s (in %s)", trigger.Next.Format(time.RFC3339), trigger.TimeUntilNext.Round(time.Second))
	}

	endpoint := proxy.Resolve(cfg.Proxy)
	log.Info("transcript egress proxy: %s", endpoint.Redacted())

	httpTimeout := time.Duration(cfg.Transcript.HTTPTimeout) * time.Second
	limiter := rate.NewLimiter(rate.Every(time.Second), 2)

	service := transcript.NewService(
		[]transcript.Strategy{
			transcript.NewWatchPageStrategy(cfg.Transcript.Languages, httpTimeout, limiter),
			transcript.NewTimedTextStrategy(cfg.Transcript.Languages, httpTimeout, limiter),
		},
		endpoint,
		transcript.WithCache(store),
		transcript.WithMaxAttempts(cfg.Transcript.MaxAttempts),
		transcript.WithOverallTimeout(time.Duration(cfg.Transcript.Timeout)*time.Second),
	)

	videos := catalog.NewClient(cfg.Catalog.APIKey)

	summarizer, err := summary.NewClient(&summary.Config{
		APIKey:  cfg.Summarizer.APIKey,
		APIURL:  cfg.Summarizer.APIURL,
		Model:   cfg.Summarizer.Model,
		Timeout: cfg.Summarizer.Timeout,
	})
	if err != nil {
		stdlog.Fatal("Failed to build summarizer:", err)
	}

	server := httpapi.NewServer(videos, service, summarizer,
		httpapi.WithUI(cfg.Server.StaticDir, true))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := runWithComponents(ctx, cfg, sweeper, server); err != nil {
		stdlog.Fatal("Server failed:", err)
	}
	log.Info("server stopped")
}

// runWithComponents wires the cron sweeper and the HTTP server together
// and blocks until the context is cancelled or the server fails.
func runWithComponents(ctx context.Context, cfg *config.Config, sweeper cronEngine, server httpServer) error {
	sweeper.Start()
	defer sweeper.Stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening on %s", cfg.Server.Addr)
		errCh <- server.ListenAndServe(cfg.Server.Addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
