package routes

import (
	"net/http"

	"github.com/templui/pawcare/internal/app"
	"github.com/templui/pawcare/internal/handler"
	"github.com/templui/pawcare/internal/middleware"
	"github.com/templui/pawcare/internal/model"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	health := handler.NewHealthHandler(app.DB)
	coupon := handler.NewCouponHandler(app.CouponService, app.ExportService)
	payment := handler.NewPaymentHandler(app.LedgerService, app.RefundService, app.PaymentService)
	user := handler.NewUserHandler(app.UserService)

	mux := http.NewServeMux()

	// ============================================================================
	// PUBLIC ROUTES
	// ============================================================================

	mux.HandleFunc("GET /healthz", health.Healthz)

	// Payment provider callbacks (signature verified by the provider)
	mux.HandleFunc("POST /webhooks/payment", payment.Webhook)

	// ============================================================================
	// ACCOUNT ROUTES
	// ============================================================================

	mux.HandleFunc("GET /me", middleware.RequireAuth(user.Me))

	redeemLimit := middleware.RateLimit(app.RateLimiter, "redeem")
	mux.HandleFunc("POST /coupons/redeem", middleware.RequireAuth(redeemLimit(coupon.Redeem)))

	mux.HandleFunc("POST /tokens/checkout", middleware.RequireAuth(payment.CreateCheckout))
	mux.HandleFunc("GET /paypal/list", middleware.RequireAuth(payment.List))

	// ============================================================================
	// ADMIN ROUTES
	// ============================================================================

	requireCoupons := middleware.RequireAdmin(model.AdminFlagCoupons)
	requirePayments := middleware.RequireAdmin(model.AdminFlagPayments)
	requireUsers := middleware.RequireAdmin(model.AdminFlagUsers)

	// Coupons
	mux.HandleFunc("POST /admin/coupons", requireCoupons(coupon.Create))
	mux.HandleFunc("GET /admin/coupons", requireCoupons(coupon.List))
	mux.HandleFunc("GET /admin/coupons/export", requireCoupons(coupon.Export))
	mux.HandleFunc("GET /admin/coupons/{id}", requireCoupons(coupon.Get))
	mux.HandleFunc("PATCH /admin/coupons/{id}/active", requireCoupons(coupon.SetActive))

	// Payments
	refundLimit := middleware.RateLimit(app.RateLimiter, "refund")
	mux.HandleFunc("POST /paypal/refund", requirePayments(refundLimit(payment.Refund)))
	mux.HandleFunc("GET /admin/transactions", requirePayments(payment.Transactions))
	mux.HandleFunc("GET /admin/transactions/{id}", requirePayments(payment.Transaction))

	// Users
	mux.HandleFunc("GET /admin/users", requireUsers(user.List))
	mux.HandleFunc("PATCH /admin/users/{id}/make-admin", requireUsers(user.MakeAdmin))
	mux.HandleFunc("PATCH /admin/users/{id}/revoke-admin", requireUsers(user.RevokeAdmin))
	mux.HandleFunc("PATCH /admin/users/{id}/admin-flags", requireUsers(user.SetAdminFlags))

	// Global middleware: the session is resolved before logging so the
	// request log carries the user id.
	return middleware.Chain(
		mux,
		middleware.AuthMiddleware(app.AuthService),
		middleware.RequestLogging,
		middleware.Config(app.Cfg),
	)
}
