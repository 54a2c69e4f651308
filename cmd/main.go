package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"clouddesign.com.br/storefront/internal/router"
	"clouddesign.com.br/storefront/pkg/ai"
	"clouddesign.com.br/storefront/pkg/catalog"
	"clouddesign.com.br/storefront/pkg/coupon"
	"clouddesign.com.br/storefront/pkg/global"
	"clouddesign.com.br/storefront/pkg/mongo"
	"clouddesign.com.br/storefront/pkg/redis"
	"clouddesign.com.br/storefront/pkg/tracking"
)

func main() {
	// .env is optional; in production the variables come from the host.
	envErr := godotenv.Load()

	settings := global.LoadSettings()
	logger := global.InitLogger(settings.Env)
	defer func() { _ = logger.Sync() }()
	if envErr != nil {
		zap.L().Info("no .env file loaded", zap.Error(envErr))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mongoClient, err := mongo.NewClient(global.GetMongoURI())
	if err != nil {
		zap.L().Fatal("mongo client", zap.Error(err))
	}
	startCtx, cancel := global.GetDefaultTimer()
	if err := mongo.Ping(startCtx, mongoClient); err != nil {
		zap.L().Fatal("mongo unreachable", zap.Error(err))
	}
	db := mongoClient.Database(global.GetDatabaseName())
	if err := mongo.EnsureIndexes(startCtx, db); err != nil {
		zap.L().Fatal("mongo indexes", zap.Error(err))
	}

	redisClient := redis.NewClient(settings)
	if err := redis.Ping(startCtx, redisClient); err != nil {
		zap.L().Fatal("redis unreachable", zap.Error(err))
	}
	cancel()

	repo := mongo.NewRepository(db)
	var validator coupon.Validator = coupon.NewRepositoryValidator(repo)
	if settings.CouponValidationURL != "" {
		client, err := coupon.NewClient(settings.CouponValidationURL, settings.HTTPTimeout)
		if err != nil {
			zap.L().Fatal("coupon validation client", zap.Error(err))
		}
		validator = client
		zap.L().Info("validating coupons remotely", zap.String("url", settings.CouponValidationURL))
	}

	tracker, err := tracking.NewClient(settings.TrackingAPIURL, settings.HTTPTimeout)
	if err != nil {
		zap.L().Fatal("tracking client", zap.Error(err))
	}

	h := &router.Handler{
		Catalog:  catalog.NewService(repo, redis.NewCache(redisClient, settings.CacheTTL), settings.PixDiscountPercent),
		Carts:    redis.NewStorage(redisClient, settings.CartTTL),
		Coupons:  validator,
		Sessions: redis.NewSessions(redisClient, settings.AdminSessionTTL),
		Tracker:  tracker,
		AI:       ai.NewClient(settings),
		Settings: settings,
		HealthChecks: map[string]func(context.Context) error{
			"database": func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) },
			"redis":    func(ctx context.Context) error { return redis.Ping(ctx, redisClient) },
		},
	}

	engine := router.NewEngine(settings)
	router.RegisterRoutes(engine, h)

	srv := &http.Server{
		Addr:              ":" + settings.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		zap.L().Info("server is running", zap.String("port", settings.Port), zap.String("env", settings.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("failed to run server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zap.L().Info("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("server shutdown", zap.Error(err))
	}
	if err := redisClient.Close(); err != nil {
		zap.L().Warn("redis close", zap.Error(err))
	}
	if err := mongoClient.Disconnect(shutdownCtx); err != nil {
		zap.L().Warn("mongo disconnect", zap.Error(err))
	}
}
