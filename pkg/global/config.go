package global

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Settings is the process configuration, read once from the environment
// (after godotenv has loaded .env) and passed down explicitly.
type Settings struct {
	Env  string
	Port string

	RedisAddress  string
	RedisPassword string
	CartTTL       time.Duration
	CacheTTL      time.Duration

	// Remote coupon validation endpoint. Empty means coupons are validated
	// against the local catalog database.
	CouponValidationURL string
	FreeShippingGoal    decimal.Decimal
	PixDiscountPercent  decimal.Decimal

	TrackingAPIURL string
	HTTPTimeout    time.Duration

	AdminUsername     string
	AdminPasswordHash string
	AdminSessionTTL   time.Duration

	AllowedOrigins []string

	// Dashboard insights are disabled when either is empty.
	AIEndpoint string
	AIAPIKey   string
	AIModel    string
}

func (s Settings) IsProduction() bool {
	return s.Env == "production"
}

func LoadSettings() Settings {
	return Settings{
		Env:  GetEnvOrDefault("ENV", "development"),
		Port: GetEnvOrDefault("PORT", "8000"),

		RedisAddress:  GetEnvOrDefault("REDIS_ADDRESS", "localhost:6379"),
		RedisPassword: GetEnvOrDefault("REDIS_PASSWORD", ""),
		CartTTL:       GetEnvDuration("CART_TTL", 30*24*time.Hour),
		CacheTTL:      GetEnvDuration("CACHE_TTL", 24*time.Hour),

		CouponValidationURL: GetEnvOrDefault("COUPON_VALIDATION_URL", ""),
		FreeShippingGoal:    GetEnvDecimal("FREE_SHIPPING_GOAL", decimal.NewFromInt(300)),
		PixDiscountPercent:  GetEnvDecimal("PIX_DISCOUNT_PERCENT", decimal.NewFromInt(5)),

		TrackingAPIURL: GetEnvOrDefault("TRACKING_API_URL", "http://localhost:8001/api/rastreio"),
		HTTPTimeout:    GetEnvDuration("HTTP_TIMEOUT", 5*time.Second),

		AdminUsername:     GetEnvOrDefault("ADMIN_USERNAME", "admin"),
		AdminPasswordHash: GetEnvOrDefault("ADMIN_PASSWORD_HASH", ""),
		AdminSessionTTL:   GetEnvDuration("ADMIN_SESSION_TTL", 12*time.Hour),

		AllowedOrigins: splitList(GetEnvOrDefault("CORS_ORIGINS", "http://localhost:3000")),

		AIEndpoint: GetEnvOrDefault("AI_ENDPOINT", ""),
		AIAPIKey:   GetEnvOrDefault("AI_API_KEY", ""),
		AIModel:    GetEnvOrDefault("AI_MODEL", "gpt-4o-mini"),
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
