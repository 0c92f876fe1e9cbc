package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"anipass-feed/internal/adapters/anipass"
	"anipass-feed/internal/adapters/web"
	"anipass-feed/internal/domain"
	"anipass-feed/internal/infra/cache"
	"anipass-feed/internal/infra/config"
	httpinfra "anipass-feed/internal/infra/http"
	applog "anipass-feed/internal/infra/log"
	"anipass-feed/internal/infra/metrics"
	"anipass-feed/internal/usecase/images"
	"anipass-feed/internal/usecase/session"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Backend.BaseURL == "" {
		logger.Fatal().Msg("gateway: не задан ANIPASS_API_URL")
	}

	var sessionCache domain.Cache
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Msg("gateway: нет подключения к Redis")
		}
		sessionCache = cache.NewRedis(client)
	} else {
		logger.Warn().Msg("gateway: Redis не сконфигурирован, кэш в памяти процесса")
		sessionCache = cache.NewMemory()
	}

	factory := func(token string) (session.Backend, error) {
		opts := []anipass.Option{anipass.WithTimeout(cfg.Backend.Timeout)}
		if token != "" {
			opts = append(opts, anipass.WithToken(token))
		}
		return anipass.New(cfg.Backend.BaseURL, opts...)
	}

	manager := session.NewManager(factory, sessionCache, session.Config{
		PageSize: cfg.Feed.PageSize,
		CacheTTL: cfg.Feed.CacheTTL,
		IdleTTL:  cfg.Sessions.IdleTTL,
	}, logger.With().Str("component", "sessions").Logger())

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				manager.Sweep(now)
			}
		}
	}()

	resolver := images.NewResolver(cfg.Backend.BaseURL, cfg.Images.BaseURL)
	handler := web.NewHandler(manager, resolver, logger.With().Str("component", "web").Logger())

	server := httpinfra.NewServer(logger)
	handler.Routes(server.Router)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("gateway: ошибка при остановке сервера")
		}
	}()

	if err := server.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil {
		logger.Info().Err(err).Msg("gateway: сервер остановлен")
	}
}
