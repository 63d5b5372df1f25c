package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Application
	AppName      string
	AppEnv       string
	AppURL       string
	Port         string
	SupportEmail string

	// Database (optional driver switch via ENV, default: sqlite)
	DBDriver     string
	DBConnection string

	// Sessions are issued by the login service and verified here
	JWTSecret string
	JWTExpiry time.Duration

	// Email
	EmailFrom    string
	ResendAPIKey string

	// Payment
	PaymentProvider string // "polar" or "stripe"
	// Payment - Polar
	PolarAPIKey               string
	PolarWebhookSecret        string
	PolarSandboxMode          bool
	PolarProductIDTokensSmall string
	PolarProductIDTokensLarge string
	// Payment - Stripe
	StripeSecretKey          string
	StripeWebhookSecret      string
	StripePriceIDTokensSmall string
	StripePriceIDTokensLarge string

	// Token packages sold through checkout
	TokensSmall int
	TokensLarge int

	// Refunds
	RefundTimeout    time.Duration // Upper bound for a single processor refund call
	RefundStaleAfter time.Duration // REFUNDING rows older than this are reverted on startup

	// Coupons
	CouponBatchMax int

	// Rate limiting (REDIS_URL optional, falls back to in-memory)
	RedisURL        string
	RateLimitCount  int
	RateLimitWindow time.Duration

	// Observability (optional)
	SentryDSN string

	// Storage (S3-compatible, optional: coupon exports are disabled without a bucket)
	S3Region              string
	S3Bucket              string
	S3AccessKey           string
	S3SecretKey           string
	S3Endpoint            string        // Optional: for S3-compatible services (MinIO, DO Spaces, R2, etc.)
	S3PresignExpiryExport time.Duration // Expiry for export download links - default: 15 minutes
}

// RefundFinalizeWindow is how long a refund keeps retrying the REFUNDING ->
// REFUNDED write after the processor accepted it.
const RefundFinalizeWindow = 30 * time.Second

func Load() *Config {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg := &Config{
		// Application
		AppName:      envString("APP_NAME", "Pawcare"),
		AppEnv:       envRequired("APP_ENV"), // Required: 'development' or 'production'
		AppURL:       envRequired("APP_URL"), // Required: base URL for checkout redirects
		Port:         envString("PORT", "8090"),
		SupportEmail: envString("SUPPORT_EMAIL", "hello@example.com"),

		// Database
		DBDriver:     envString("DB_DRIVER", "sqlite"),
		DBConnection: envString("DB_CONNECTION", "./data/pawcare.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_time_format=sqlite"),

		// Security
		JWTSecret: envRequired("JWT_SECRET"),
		JWTExpiry: envDuration("JWT_EXPIRY", 168*time.Hour), // 7 days

		// Email (RESEND_API_KEY optional in development, required in production)
		EmailFrom:    envString("EMAIL_FROM", "noreply@example.com"),
		ResendAPIKey: envString("RESEND_API_KEY", ""),

		// Payment
		PaymentProvider:           envString("PAYMENT_PROVIDER", "stripe"),
		PolarAPIKey:               envString("POLAR_API_KEY", ""),
		PolarWebhookSecret:        envString("POLAR_WEBHOOK_SECRET", ""),
		PolarSandboxMode:          envBool("POLAR_SANDBOX_MODE", envString("APP_ENV", "development") == "development"),
		PolarProductIDTokensSmall: envString("POLAR_PRODUCT_ID_TOKENS_SMALL", ""),
		PolarProductIDTokensLarge: envString("POLAR_PRODUCT_ID_TOKENS_LARGE", ""),
		StripeSecretKey:           envString("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret:       envString("STRIPE_WEBHOOK_SECRET", ""),
		StripePriceIDTokensSmall:  envString("STRIPE_PRICE_ID_TOKENS_SMALL", ""),
		StripePriceIDTokensLarge:  envString("STRIPE_PRICE_ID_TOKENS_LARGE", ""),

		TokensSmall: envInt("TOKENS_SMALL", 10),
		TokensLarge: envInt("TOKENS_LARGE", 50),

		// Refunds
		RefundTimeout:    envDuration("REFUND_TIMEOUT", 15*time.Second),
		RefundStaleAfter: envDuration("REFUND_STALE_AFTER", 10*time.Minute),

		// Coupons
		CouponBatchMax: envInt("COUPON_BATCH_MAX", 1000),

		// Rate limiting
		RedisURL:        envString("REDIS_URL", ""),
		RateLimitCount:  envInt("RATE_LIMIT_COUNT", 10),
		RateLimitWindow: envDuration("RATE_LIMIT_WINDOW", time.Minute),

		// Observability
		SentryDSN: envString("SENTRY_DSN", ""),

		// Storage
		S3Region:              envString("S3_REGION", "us-east-1"),
		S3Bucket:              envString("S3_BUCKET", ""),
		S3AccessKey:           envString("S3_ACCESS_KEY", ""),
		S3SecretKey:           envString("S3_SECRET_KEY", ""),
		S3Endpoint:            envString("S3_ENDPOINT", ""),
		S3PresignExpiryExport: envDuration("S3_PRESIGN_EXPIRY_EXPORT", 15*time.Minute),
	}

	err = validateRefunds(cfg)
	if err != nil {
		slog.Error("invalid refund configuration", "error", err)
		os.Exit(1)
	}

	// Production: validate required services
	if cfg.IsProduction() {
		validateProduction(cfg)
	}

	return cfg
}

// MinRefundStaleAfter is the shortest age at which a REFUNDING row can no
// longer belong to a live refund call.
func (c *Config) MinRefundStaleAfter() time.Duration {
	return c.RefundTimeout + RefundFinalizeWindow
}

// validateRefunds rejects a stale threshold that would let recovery revert a
// refund still waiting on the processor or finalizing.
func validateRefunds(cfg *Config) error {
	if cfg.RefundTimeout <= 0 {
		return fmt.Errorf("REFUND_TIMEOUT must be positive, got %s", cfg.RefundTimeout)
	}
	if cfg.RefundStaleAfter <= cfg.MinRefundStaleAfter() {
		return fmt.Errorf("REFUND_STALE_AFTER (%s) must exceed REFUND_TIMEOUT plus %s (%s)",
			cfg.RefundStaleAfter, RefundFinalizeWindow, cfg.MinRefundStaleAfter())
	}
	return nil
}

// validateProduction ensures all required services are configured for production deployments.
// Development allows email to run in log mode.
func validateProduction(cfg *Config) {
	if cfg.ResendAPIKey == "" {
		slog.Error("production deployment requires RESEND_API_KEY",
			"hint", "set APP_ENV=development for local testing with email log mode")
		os.Exit(1)
	}
	if cfg.CouponBatchMax < 1 || cfg.CouponBatchMax > 1000 {
		slog.Error("COUPON_BATCH_MAX must be between 1 and 1000", "value", cfg.CouponBatchMax)
		os.Exit(1)
	}
}

func envString(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		value = def
	}
	return value
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("config invalid bool, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("config invalid int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

func envRequired(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	slog.Error("config required env var missing", "key", key)
	os.Exit(1)
	return ""
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// ExportsEnabled reports whether an S3 bucket is configured for coupon exports.
func (c *Config) ExportsEnabled() bool {
	return c.S3Bucket != ""
}

// Sanitized returns a copy of the config with only public/safe fields.
// All secrets, credentials, and sensitive data are excluded.
func (c *Config) Sanitized() *Config {
	return &Config{
		AppName:      c.AppName,
		AppEnv:       c.AppEnv,
		AppURL:       c.AppURL,
		Port:         c.Port,
		SupportEmail: c.SupportEmail,

		PaymentProvider: c.PaymentProvider,
		TokensSmall:     c.TokensSmall,
		TokensLarge:     c.TokensLarge,
		CouponBatchMax:  c.CouponBatchMax,
	}
}
