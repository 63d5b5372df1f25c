package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/templui/pawcare/internal/config"
	"github.com/templui/pawcare/internal/db"
	"github.com/templui/pawcare/internal/middleware"
	"github.com/templui/pawcare/internal/repository"
	"github.com/templui/pawcare/internal/service"
	"github.com/templui/pawcare/internal/service/payment"
	"github.com/templui/pawcare/internal/storage"
)

type App struct {
	Cfg            *config.Config
	DB             *sqlx.DB
	AuthService    *service.AuthService
	UserService    *service.UserService
	EmailService   *service.EmailService
	CouponService  *service.CouponService
	LedgerService  *service.LedgerService
	RefundService  *service.RefundService
	ExportService  *service.ExportService
	PaymentService payment.Provider
	RateLimiter    middleware.Limiter

	closers []func() error
}

func New(cfg *config.Config) (*App, error) {
	// Initialize database
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %v", err)
	}

	// Run database migrations
	err = db.RunMigrations(database.DB, cfg.DBDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %v", err)
	}

	// Repositories
	userRepository := repository.NewUserRepository(database)
	couponRepository := repository.NewCouponRepository(database)
	transactionRepository := repository.NewTransactionRepository(database)

	// Storage (exports stay disabled without a bucket)
	var exportStorage storage.Storage
	if cfg.ExportsEnabled() {
		exportStorage, err = storage.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %v", err)
		}
	}

	// Services
	emailService := service.NewEmailService(
		cfg.ResendAPIKey,
		cfg.EmailFrom,
		cfg.AppURL,
		cfg.AppName,
		cfg.IsDevelopment(),
	)
	authService := service.NewAuthService(userRepository, cfg.JWTSecret, cfg.JWTExpiry)
	userService := service.NewUserService(userRepository, emailService)
	couponService := service.NewCouponService(couponRepository, service.NewCodeGenerator(), cfg.CouponBatchMax)
	ledgerService := service.NewLedgerService(transactionRepository)
	exportService := service.NewExportService(couponService, exportStorage, cfg.S3PresignExpiryExport)

	// Initialize payment provider based on config
	paymentProvider, err := payment.NewProvider(cfg, ledgerService)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize payment provider: %v", err)
	}

	refundService := service.NewRefundService(
		transactionRepository,
		paymentProvider,
		service.NewRefundReceipts(userRepository, emailService),
		cfg.RefundTimeout,
	)

	a := &App{
		Cfg:            cfg,
		DB:             database,
		AuthService:    authService,
		UserService:    userService,
		EmailService:   emailService,
		CouponService:  couponService,
		LedgerService:  ledgerService,
		RefundService:  refundService,
		ExportService:  exportService,
		PaymentService: paymentProvider,
	}

	// Rate limiting: Redis shares counters across instances
	if cfg.RedisURL != "" {
		limiter, err := middleware.NewRedisRateLimiter(cfg.RedisURL, cfg.RateLimitCount, cfg.RateLimitWindow)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize rate limiter: %v", err)
		}
		a.RateLimiter = limiter
		a.closers = append(a.closers, limiter.Close)
	} else {
		a.RateLimiter = middleware.NewRateLimiter(cfg.RateLimitCount, cfg.RateLimitWindow)
	}

	return a, nil
}

// RecoverRefunds reverts refunds abandoned by a previous process.
func (a *App) RecoverRefunds(ctx context.Context) {
	reverted, err := a.RefundService.RecoverStale(ctx, a.Cfg.RefundStaleAfter)
	if err != nil {
		slog.Error("failed to recover stale refunds", "error", err)
		return
	}
	if len(reverted) > 0 {
		slog.Warn("reverted stale refunds", "count", len(reverted))
	}
}

func (a *App) Close() error {
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			slog.Error("failed to close resource", "error", err)
		}
	}
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
