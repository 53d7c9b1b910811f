package main

import (
	"context"
	"finance-tracker-client/config"
	"finance-tracker-client/internal/api"
	"finance-tracker-client/internal/metrics"
	"finance-tracker-client/internal/ports"
	"finance-tracker-client/internal/repository"
	"finance-tracker-client/internal/security"
	"finance-tracker-client/internal/service"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// app : собранный клиент, все зависимости создаются один раз на запуск
type app struct {
	cfg        *config.AppConfig
	store      *service.TokenStore
	sessions   *service.SessionService
	entries    *api.EntryAPI
	tags       *api.TagAPI
	categories *api.CategoryAPI
	statistics *service.StatisticsService
	reports    func(ctx context.Context) (*service.ReportService, error)
	closers    []func() error
}

func newApp(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg}

	if cfg.Metrics.Textfile != "" {
		registry := prometheus.NewRegistry()
		metrics.RegisterGateway(registry)
		a.closers = append(a.closers, func() error {
			return metrics.WriteTextfile(cfg.Metrics.Textfile, registry)
		})
	}

	tokenRepository, err := a.tokenRepository(ctx)
	if err != nil {
		a.close()
		return nil, err
	}
	a.store = service.NewTokenStore(tokenRepository, logger)

	baseHTTP := config.SetupHTTPClient(&cfg.API)

	// refresh ходит через клиент без шлюза
	plain, err := api.NewClient(cfg.API.BaseURL, baseHTTP, cfg.API.UserAgent)
	if err != nil {
		a.close()
		return nil, err
	}
	coordinator := service.NewRefreshCoordinator(a.store, api.NewAuthenticationAPI(plain), cfg.API.RefreshTimeout, logger)

	gatewayHTTP, err := service.NewGatewayClient(baseHTTP, cfg.API.BaseURL, a.store, coordinator, service.WithLogger(logger))
	if err != nil {
		a.close()
		return nil, err
	}
	authed, err := api.NewClient(cfg.API.BaseURL, gatewayHTTP, cfg.API.UserAgent)
	if err != nil {
		a.close()
		return nil, err
	}

	a.sessions = service.NewSessionService(api.NewAuthenticationAPI(authed), a.store)
	a.entries = api.NewEntryAPI(authed)
	a.tags = api.NewTagAPI(authed)
	a.categories = api.NewCategoryAPI(authed)
	a.statistics = service.NewStatisticsService(api.NewStatisticsAPI(authed))

	// S3 нужен только для export
	a.reports = func(ctx context.Context) (*service.ReportService, error) {
		s3Service, err := service.NewS3Service(ctx, &cfg.S3Config)
		if err != nil {
			return nil, err
		}
		return service.NewReportService(a.statistics, s3Service, cfg.S3Config.LinkTTL), nil
	}

	return a, nil
}

func (a *app) tokenRepository(ctx context.Context) (ports.TokenRepository, error) {
	cfg := a.cfg

	switch cfg.TokenStore.Backend {
	case "memory":
		return repository.NewMemoryTokenRepository(), nil

	case "file":
		var sealer *security.Sealer
		if cfg.TokenStore.SecretKey != "" {
			var err error
			if sealer, err = security.NewSealer(cfg.TokenStore.SecretKey); err != nil {
				return nil, err
			}
		}
		return repository.NewFileTokenRepository(cfg.TokenStore.FilePath, sealer), nil

	case "redis":
		redisClient, err := config.SetupRedis(&cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, redisClient.Close)
		return repository.NewRedisTokenRepository(redisClient, cfg.RedisConfig.Prefix, cfg.TokenStore.SessionKey, cfg.RedisConfig.TTL), nil

	case "postgres":
		database, err := config.SetupDatabase(cfg.DatabaseConfig.DSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, database.Close)

		tokenRepository := repository.NewPostgresTokenRepository(database, cfg.TokenStore.SessionKey)
		if err := tokenRepository.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return tokenRepository, nil

	default:
		return nil, fmt.Errorf("неизвестное хранилище сессии %q (memory, file, redis, postgres)", cfg.TokenStore.Backend)
	}
}

func (a *app) close() {
	for _, closer := range a.closers {
		if err := closer(); err != nil {
			slog.Warn("ошибка при завершении работы", slog.Any("error", err))
		}
	}
}
