package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jasurdev/portfolio-api/internal/auth"
	"github.com/jasurdev/portfolio-api/internal/cache"
	"github.com/jasurdev/portfolio-api/internal/config"
	"github.com/jasurdev/portfolio-api/internal/database"
	"github.com/jasurdev/portfolio-api/internal/events"
	"github.com/jasurdev/portfolio-api/internal/logging"
	"github.com/jasurdev/portfolio-api/internal/reactions"
	"github.com/jasurdev/portfolio-api/internal/server"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.Open(appConfig.DatabaseDriver, appConfig.DatabaseDSN, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := database.Migrate(db, logger); err != nil {
		return err
	}

	var homeCache cache.Store = cache.Nop{}
	if appConfig.RedisAddress != "" {
		redisCache, err := cache.NewRedis(ctx, cache.Options{
			Address:  appConfig.RedisAddress,
			Password: appConfig.RedisPassword,
			DB:       appConfig.RedisDB,
		})
		if err != nil {
			return err
		}
		defer redisCache.Close()
		homeCache = redisCache
		logger.Info("home cache enabled", zap.String("redis", appConfig.RedisAddress))
	}

	realtime := server.NewRealtimeDispatcher()
	publishers := reactions.Publishers{realtime}
	if appConfig.AMQPURL != "" {
		amqpPublisher, err := events.DialAMQP(appConfig.AMQPURL, appConfig.AMQPQueue, logger.Named("events"))
		if err != nil {
			return err
		}
		defer amqpPublisher.Close()
		publishers = append(publishers, amqpPublisher)
		logger.Info("reaction events enabled", zap.String("queue", appConfig.AMQPQueue))
	}

	domain, err := buildServices(db, serviceOptions{
		Logger:     logger,
		Cache:      homeCache,
		CacheTTL:   appConfig.HomeCacheTTL,
		Publishers: publishers,
	})
	if err != nil {
		return err
	}

	if appConfig.AdminPassword != "" {
		if _, err := domain.accounts.EnsureAccount(ctx, appConfig.AdminUsername, appConfig.AdminPassword); err != nil {
			return err
		}
		logger.Info("admin account ready", zap.String("username", appConfig.AdminUsername))
	} else {
		logger.Warn("admin.password not set; write endpoints are only usable with an existing account")
	}

	tokenManager, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(appConfig.SigningSecret),
		Issuer:        auth.DefaultIssuer,
		Audience:      auth.DefaultAudience,
		TokenTTL:      appConfig.TokenTTL,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		TokenManager:     tokenManager,
		Authenticator:    domain.accounts,
		PostsService:     domain.posts,
		ProjectsService:  domain.projects,
		PostReactions:    domain.postReactions,
		ProjectReactions: domain.projectReactions,
		TagsService:      domain.tags,
		ProfileService:   domain.profile,
		HomeService:      domain.home,
		Identity:         reactions.IdentityResolver{TrustForwardedFor: appConfig.TrustForwardedFor},
		Realtime:         realtime,
		AllowedOrigins:   appConfig.AllowedOrigins,
		MediaRoot:        appConfig.MediaRoot,
		MediaURLPrefix:   appConfig.MediaURLPrefix,
		Logger:           logger,
	})
	if err != nil {
		return err
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Reaction streams end with the signal context so Shutdown is not held open.
	httpServer := &http.Server{
		Addr:        appConfig.HTTPAddress,
		Handler:     handler,
		BaseContext: func(net.Listener) context.Context { return signalCtx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
