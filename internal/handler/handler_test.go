package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/templui/pawcare/internal/ctxkeys"
	"github.com/templui/pawcare/internal/db"
	"github.com/templui/pawcare/internal/model"
	"github.com/templui/pawcare/internal/repository"
	"github.com/templui/pawcare/internal/service"
)

type fakeProvider struct {
	refundErr  error
	webhookErr error
	refunds    int
}

func (p *fakeProvider) CreateCheckoutURL(_ context.Context, accountID, _, pkg string) (string, error) {
	return "https://checkout.example.com/" + pkg + "?account=" + accountID, nil
}

func (p *fakeProvider) Refund(_ context.Context, _ *model.TokenTransaction) error {
	p.refunds++
	return p.refundErr
}

func (p *fakeProvider) HandleWebhook(_ context.Context, _ []byte, _ http.Header) error {
	return p.webhookErr
}

func (p *fakeProvider) Name() string {
	return "fake"
}

type testEnv struct {
	db       *sqlx.DB
	provider *fakeProvider
	coupons  *CouponHandler
	payments *PaymentHandler
	users    *UserHandler
	health   *HealthHandler
	ledger   *service.LedgerService
	couponSv *service.CouponService
	userSv   *service.UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db") + "?_pragma=foreign_keys(1)&_time_format=sqlite"
	database, err := db.Init("sqlite", dsn)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = database.Close() })
	if err := db.RunMigrations(database.DB, "sqlite"); err != nil {
		t.Fatal(err)
	}

	userRepo := repository.NewUserRepository(database)
	txRepo := repository.NewTransactionRepository(database)

	provider := &fakeProvider{}
	couponSv := service.NewCouponService(repository.NewCouponRepository(database), service.NewCodeGenerator(), 0)
	ledger := service.NewLedgerService(txRepo)
	refunds := service.NewRefundService(txRepo, provider, nil, time.Second)
	userSv := service.NewUserService(userRepo, nil)

	return &testEnv{
		db:       database,
		provider: provider,
		coupons:  NewCouponHandler(couponSv, service.NewExportService(couponSv, nil, time.Minute)),
		payments: NewPaymentHandler(ledger, refunds, provider),
		users:    NewUserHandler(userSv),
		health:   NewHealthHandler(database),
		ledger:   ledger,
		couponSv: couponSv,
		userSv:   userSv,
	}
}

var (
	adminSession = &model.Session{UserID: "admin-1", Email: "admin@example.com", Role: model.RoleAdmin, Flags: model.AdminFlagsAll}
	userSession  = &model.Session{UserID: "user-1", Email: "user@example.com", Role: model.RoleUser}
)

func request(method, target string, body any, session *model.Session) *http.Request {
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if session != nil {
		req = req.WithContext(ctxkeys.WithSession(req.Context(), session))
	}
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return body
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func fieldErrors(body map[string]any) map[string]map[string]any {
	out := map[string]map[string]any{}
	list, _ := body["errors"].([]any)
	for _, item := range list {
		f := item.(map[string]any)
		out[f["field"].(string)] = f
	}
	return out
}

func TestWriteError_StatusMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{service.ErrNotFound, http.StatusNotFound, "not_found"},
		{service.ErrAlreadyRefunded, http.StatusConflict, "already_refunded"},
		{service.ErrConflict, http.StatusConflict, "conflict"},
		{service.ErrUpstreamUnavailable, http.StatusBadGateway, "upstream_unavailable"},
		{service.ErrExportsDisabled, http.StatusServiceUnavailable, "unavailable"},
		{service.ErrInvalidArgument, http.StatusBadRequest, "invalid_argument"},
		{errors.New("db exploded"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		writeError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err, nil)

		if rec.Code != tt.status {
			t.Errorf("%v: status = %d, want %d", tt.err, rec.Code, tt.status)
		}
		body := decode(t, rec)
		if got := errorCode(body); got != tt.code {
			t.Errorf("%v: code = %q, want %q", tt.err, got, tt.code)
		}
	}
}

func TestWriteError_InternalHidesDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("pq: password authentication failed"), nil)

	if bytes.Contains(rec.Body.Bytes(), []byte("password")) {
		t.Errorf("internal error leaked: %s", rec.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.health.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if decode(t, rec)["status"] != "ok" {
		t.Errorf("body = %s", rec.Body.String())
	}
}
