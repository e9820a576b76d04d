package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/hamed0406/netwatch/internal/config"
	"github.com/hamed0406/netwatch/internal/dispatch"
	"github.com/hamed0406/netwatch/internal/health"
	"github.com/hamed0406/netwatch/internal/httpapi"
	apimw "github.com/hamed0406/netwatch/internal/httpapi/middleware"
	"github.com/hamed0406/netwatch/internal/logging"
	"github.com/hamed0406/netwatch/internal/metrics"
	"github.com/hamed0406/netwatch/internal/monitor"
	"github.com/hamed0406/netwatch/internal/notify"
	"github.com/hamed0406/netwatch/internal/probe"
	"github.com/hamed0406/netwatch/internal/repo"
	"github.com/hamed0406/netwatch/internal/repo/memory"
	"github.com/hamed0406/netwatch/internal/repo/postgres"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to config file (YAML)")
		debug      = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(cfg.LogDir, *debug)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logging:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("netwatch_failed", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		alerts repo.AlertStore
		tlog   repo.TransitionLog
	)
	if cfg.DatabaseURL != "" {
		pg, err := postgres.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pg.Close()
		alerts, tlog = pg, pg
		logger.Info("store_postgres")
	} else {
		mem := memory.New()
		alerts, tlog = mem, mem
		logger.Info("store_memory")
	}

	met := metrics.New()

	var limiter *rate.Limiter
	if cfg.ProbeRate.PerSecond > 0 {
		burst := cfg.ProbeRate.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.ProbeRate.PerSecond), burst)
	}

	checker := probe.NewAutoChecker(cfg.ProbeTimeout())
	mon := monitor.New(monitor.Options{
		Logger:        logger,
		Targets:       cfg.Targets,
		Checker:       checker,
		Alerts:        alerts,
		TransitionLog: tlog,
		Notifier:      buildNotifier(cfg, logger),
		Metrics:       met,
		Interval:      cfg.Interval(),
		Timeout:       cfg.ProbeTimeout(),
		MaxConcurrent: cfg.MaxConcurrent,
		ProbeLimiter:  limiter,
		Health: health.Config{
			Thresholds:     cfg.Thresholds,
			DebounceCount:  cfg.DebounceCount,
			LossWindowSize: cfg.LossWindowSize,
		},
		Dispatch: dispatch.Config{
			OnRecovery:  cfg.Notify.OnRecovery,
			Cooldown:    cfg.Notify.Cooldown(),
			MaxAttempts: cfg.Notify.MaxAttempts,
			Backoff:     cfg.Notify.Backoff(),
			MaxBackoff:  cfg.Notify.MaxBackoff(),
		},
	})

	api := httpapi.NewServer(logger, mon, checker, met.Handler())
	keys := apimw.Keys{Public: cfg.API.PublicAPIKeys, Admin: cfg.API.AdminAPIKeys}
	srv := &http.Server{
		Addr:              cfg.API.Addr,
		Handler:           api.Router(keys, cfg.API.RatePerMin, cfg.API.RateBurst),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("netwatch_started",
		zap.Int("targets", len(cfg.Targets)),
		zap.Duration("interval", cfg.Interval()),
		zap.Duration("probe_timeout", cfg.ProbeTimeout()),
		zap.Int("max_concurrent", cfg.MaxConcurrent),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := mon.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("api_listen", zap.String("addr", cfg.API.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			// stragglers (websocket streams) get cut off
			return srv.Close()
		}
		return nil
	})

	err := g.Wait()
	logger.Info("netwatch_stopped")
	return err
}

func buildNotifier(cfg config.Config, logger *zap.Logger) notify.Notifier {
	sinks := notify.Multi{notify.NewLog(logger)}
	if cfg.Notify.SlackWebhook != "" {
		sinks = append(sinks, notify.NewSlack(cfg.Notify.SlackWebhook))
	}
	if cfg.Notify.WebhookURL != "" {
		sinks = append(sinks, notify.NewWebhook(cfg.Notify.WebhookURL))
	}
	return notify.NewRateLimited(sinks, cfg.Notify.RatePerMin)
}
