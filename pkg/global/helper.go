package global

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvDecimal parses a monetary or percentage value, falling back to the
// default when the variable is unset or malformed.
func GetEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		zap.L().Warn("invalid decimal in environment, using default",
			zap.String("key", key), zap.String("value", raw), zap.Error(err))
		return defaultValue
	}
	return value
}

func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		zap.L().Warn("invalid duration in environment, using default",
			zap.String("key", key), zap.String("value", raw), zap.Error(err))
		return defaultValue
	}
	return value
}

func GetDefaultTimer() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

func GetMongoURI() string {
	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI == "" {
		zap.L().Fatal("MONGODB_URI is not set in environment variables")
	}
	return mongoURI
}

func GetDatabaseName() string {
	return GetEnvOrDefault("MONGODB_DATABASE", "clouddesign")
}
