package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/maltehedderich/steam-api-go/internal/api"
	"github.com/maltehedderich/steam-api-go/internal/auth"
	"github.com/maltehedderich/steam-api-go/internal/cache"
	"github.com/maltehedderich/steam-api-go/internal/config"
	"github.com/maltehedderich/steam-api-go/internal/health"
	"github.com/maltehedderich/steam-api-go/internal/logger"
	"github.com/maltehedderich/steam-api-go/internal/metrics"
	"github.com/maltehedderich/steam-api-go/internal/ratelimit"
	"github.com/maltehedderich/steam-api-go/internal/server"
	"github.com/maltehedderich/steam-api-go/internal/steam"
	"github.com/maltehedderich/steam-api-go/internal/tracing"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	version    = "1.0.0"
	buildTime  = "unknown"
	gitCommit  = "unknown"
)

func main() {
	flag.Parse()

	fmt.Printf("Steam API gateway v%s (commit: %s, built: %s)\n", version, gitCommit, buildTime)

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	closeLog, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	log := logger.Get().WithComponent("main")
	log.Info("starting Steam API gateway", logger.Fields{
		"version":    version,
		"git_commit": gitCommit,
		"build_time": buildTime,
	})

	if err := run(cfg); err != nil {
		log.Error("gateway error", logger.Fields{
			"error": err.Error(),
		})
		os.Exit(1)
	}

	log.Info("Steam API gateway stopped")
}

func run(cfg *config.Config) error {
	ctx := context.Background()
	log := logger.Get().WithComponent("main")

	cfg.Observability.Tracing.ServiceVersion = version
	if err := tracing.Init(ctx, &cfg.Observability.Tracing); err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		if err := tracing.Shutdown(context.Background()); err != nil {
			log.Warn("tracing shutdown failed", logger.Fields{"error": err.Error()})
		}
	}()

	if cfg.Observability.MetricsEnabled {
		metrics.Init()
	}

	store, err := cache.New(ctx, cfg.Cache.StoreConfig())
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	steamCfg := &steam.Config{
		APIKey:            cfg.Steam.APIKey,
		BaseURL:           cfg.Steam.BaseURL,
		StoreURL:          cfg.Steam.StoreURL,
		Timeout:           cfg.Steam.Timeout,
		Cache:             store,
		CacheTTL:          cfg.Steam.CacheTTL,
		RetryWindow:       cfg.Steam.RetryWindow,
		RequestsPerSecond: cfg.Steam.RequestsPerSecond,
		Burst:             cfg.Steam.Burst,
	}
	if cfg.Steam.CircuitBreaker.Enabled {
		steamCfg.CircuitBreaker = &cfg.Steam.CircuitBreaker.Config
	}
	client, err := steam.New(steamCfg)
	if err != nil {
		return err
	}

	healthMgr := health.NewManager()
	healthMgr.Register("steam_rate_limit", health.RateLimitChecker(client.RateLimitStatus))
	healthMgr.Register("steam_circuit_breaker", health.CircuitBreakerChecker(client.BreakerStats))
	if store != nil {
		healthMgr.Register("cache", health.PingChecker("cache", store.Ping))
	}

	var validator *auth.TokenValidator
	if cfg.Auth.Enabled {
		validator, err = auth.NewTokenValidator(&cfg.Auth, nil)
		if err != nil {
			return fmt.Errorf("failed to create token validator: %w", err)
		}
	}

	var limiter *ratelimit.Limiter
	if cfg.ClientLimit.Enabled {
		limitStore, err := cache.New(ctx, cfg.ClientLimit.Store.StoreConfig())
		if err != nil {
			return fmt.Errorf("failed to create client limit store: %w", err)
		}
		limiter, err = ratelimit.NewLimiter(limitStore, ratelimit.Limit{
			Requests: cfg.ClientLimit.Requests,
			Window:   cfg.ClientLimit.Window,
			Burst:    cfg.ClientLimit.Burst,
		}, cfg.ClientLimit.FailureMode, nil)
		if err != nil {
			_ = limitStore.Close()
			return fmt.Errorf("failed to create client limiter: %w", err)
		}
		defer limiter.Close()
		healthMgr.Register("client_limit_store", health.PingChecker("client_limit_store", limiter.Ping))
	}

	log.Info("configuration loaded successfully", logger.Fields{
		"http_port":     cfg.Server.HTTPPort,
		"cache_backend": cfg.Cache.Backend,
		"auth_enabled":  cfg.Auth.Enabled,
		"client_limit":  cfg.ClientLimit.Enabled,
	})

	srv := server.New(cfg, api.New(client), healthMgr,
		auth.Middleware(validator),
		ratelimit.Middleware(limiter, ratelimit.NewKeyGenerator(cfg.ClientLimit.Key, auth.Subject)),
	)

	// Blocks until shutdown
	return srv.Start()
}

func initLogger(cfg config.LoggingConfig) (func(), error) {
	logLevel, err := logger.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	closeFn := func() {}
	var logOutput *os.File
	switch cfg.Output {
	case "", "stdout":
		logOutput = os.Stdout
	case "stderr":
		logOutput = os.Stderr
	default:
		logOutput, err = os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		closeFn = func() { _ = logOutput.Close() }
	}

	logger.Init(logLevel, cfg.Format, logOutput)

	if len(cfg.SanitizePatterns) > 0 {
		if err := logger.Get().SetSanitizePatterns(cfg.SanitizePatterns); err != nil {
			closeFn()
			return nil, fmt.Errorf("invalid sanitize patterns: %w", err)
		}
	}

	log := logger.Get().WithComponent("main")
	for component, levelStr := range cfg.ComponentLevels {
		level, err := logger.ParseLevel(levelStr)
		if err != nil {
			log.Warn("invalid component log level", logger.Fields{
				"component": component,
				"level":     levelStr,
				"error":     err.Error(),
			})
			continue
		}
		logger.Get().SetComponentLevel(component, level)
	}

	return closeFn, nil
}
