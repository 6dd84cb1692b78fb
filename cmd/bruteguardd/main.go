package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/bruteguard"
	"github.com/MrEthical07/bruteguard/internal/adminapi"
	"github.com/MrEthical07/bruteguard/internal/config"
	"github.com/MrEthical07/bruteguard/store"
	"github.com/redis/go-redis/v9"
)

// sweepInterval is how often the in-process store drops expired entries.
const sweepInterval = time.Minute

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to bruteguardd YAML config (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return 1
	}

	logger := cfg.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, closeBackend, err := buildEngine(ctx, cfg, logger)
	if err != nil {
		slog.Error("failed to build engine", slog.Any("err", err))
		return 1
	}
	defer closeBackend()
	defer engine.Close()

	logInfoLints(logger, cfg)

	api := adminapi.New(engine, buildSettings(cfg), logger)
	srv := &http.Server{
		Addr:         cfg.Server.ListenAddr,
		Handler:      api.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout() + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("bruteguardd listening", slog.String("addr", cfg.Server.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		slog.Error("server error", slog.Any("err", err))
		return 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", slog.Any("err", err))
	}
	return 0
}

// buildEngine connects the configured backend. Without Redis addresses it runs on the
// in-process store and sweeps it until ctx is done.
func buildEngine(ctx context.Context, cfg config.Config, logger *slog.Logger) (*bruteguard.Engine, func(), error) {
	builder := bruteguard.New().
		WithConfig(cfg.ToEngineConfig()).
		WithLogger(logger)
	if cfg.Audit.Enabled {
		builder = builder.WithAuditSink(bruteguard.NewSlogSink(logger))
	}

	if len(cfg.Redis.Addrs) == 0 {
		mem := store.NewMemory()
		engine, err := builder.WithStore(mem).Build()
		if err != nil {
			return nil, nil, err
		}
		go sweep(ctx, mem, sweepInterval)
		logger.Warn("no redis configured, using in-process store")
		return engine, func() {}, nil
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    cfg.Redis.Addrs,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	engine, err := builder.WithRedis(client).Build()
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	if h := engine.Health(ctx); !h.Available {
		logger.Warn("redis not reachable at startup", slog.String("error", h.Error))
	}
	return engine, func() { _ = client.Close() }, nil
}

func sweep(ctx context.Context, mem *store.Memory, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			mem.Sweep()
		}
	}
}

// logInfoLints logs the informational findings; Build already logs warn and above.
func logInfoLints(logger *slog.Logger, cfg config.Config) {
	engineCfg := cfg.ToEngineConfig()
	for _, w := range engineCfg.Lint().Below(bruteguard.LintWarn) {
		logger.Info("config lint", slog.String("code", w.Code), slog.String("severity", w.Severity.String()), slog.String("message", w.Message))
	}
}

func buildSettings(cfg config.Config) adminapi.Settings {
	return adminapi.Settings{
		RateLimit:      cfg.Server.AdminRateLimit,
		RateWindow:     cfg.AdminRateWindow(),
		RequestTimeout: cfg.RequestTimeout(),
	}
}
