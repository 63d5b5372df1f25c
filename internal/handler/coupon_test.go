package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func futureDate() string {
	return time.Now().UTC().Add(48 * time.Hour).Format("2006-01-02")
}

func TestCouponHandler_Create(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.coupons.Create(rec, request(http.MethodPost, "/admin/coupons", map[string]any{
		"tokens": 100,
		"endsAt": futureDate(),
		"count":  3,
	}, adminSession))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["count"].(float64) != 3 {
		t.Errorf("count = %v", body["count"])
	}
	items := body["items"].([]any)
	first := items[0].(map[string]any)
	if first["status"] != "valid" || len(first["code"].(string)) != 12 {
		t.Errorf("item = %v", first)
	}
}

func TestCouponHandler_Create_ValidationErrors(t *testing.T) {
	env := newTestEnv(t)

	req := request(http.MethodPost, "/admin/coupons", map[string]any{
		"tokens": 0,
		"endsAt": "2001-01-01",
		"count":  5000,
	}, adminSession)
	req.Header.Set("Accept-Language", "ko-KR")
	rec := httptest.NewRecorder()
	env.coupons.Create(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode(t, rec)
	if errorCode(body) != "invalid_argument" {
		t.Errorf("code = %q", errorCode(body))
	}

	fields := fieldErrors(body)
	want := map[string]string{"tokens": "must_be_positive", "endsAt": "must_be_future", "count": "out_of_range"}
	for field, reason := range want {
		if fields[field]["reason"] != reason {
			t.Errorf("%s reason = %v, want %s", field, fields[field]["reason"], reason)
		}
	}
	if fields["tokens"]["message"] != "0보다 커야 합니다." {
		t.Errorf("message not localized: %v", fields["tokens"]["message"])
	}
}

func TestCouponHandler_Create_MalformedJSON(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.coupons.Create(rec, request(http.MethodPost, "/admin/coupons", `{"tokens":`, adminSession))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCouponHandler_List(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.coupons.Create(rec, request(http.MethodPost, "/admin/coupons", map[string]any{
		"tokens": 1, "endsAt": futureDate(), "count": 25,
	}, adminSession))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	env.coupons.List(rec, request(http.MethodGet, "/admin/coupons?page=2&limit=10&sort=code%20asc&status=valid", nil, adminSession))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	body := decode(t, rec)
	pagination := body["pagination"].(map[string]any)
	if pagination["total"].(float64) != 25 || pagination["pages"].(float64) != 3 || pagination["page"].(float64) != 2 {
		t.Errorf("pagination = %v", pagination)
	}
	if len(body["items"].([]any)) != 10 {
		t.Errorf("items = %d", len(body["items"].([]any)))
	}

	rec = httptest.NewRecorder()
	env.coupons.List(rec, request(http.MethodGet, "/admin/coupons?limit=abc", nil, adminSession))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad limit: status = %d", rec.Code)
	}
	if fieldErrors(decode(t, rec))["limit"]["reason"] != "invalid_format" {
		t.Errorf("bad limit reason missing")
	}

	rec = httptest.NewRecorder()
	env.coupons.List(rec, request(http.MethodGet, "/admin/coupons?limit=100&page=92233720368547760", nil, adminSession))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("huge page: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if fieldErrors(decode(t, rec))["page"]["reason"] != "out_of_range" {
		t.Errorf("huge page reason missing")
	}
}

func TestCouponHandler_GetAndSetActive(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.coupons.Create(rec, request(http.MethodPost, "/admin/coupons", map[string]any{
		"tokens": 1, "endsAt": futureDate(), "count": 1,
	}, adminSession))
	id := decode(t, rec)["items"].([]any)[0].(map[string]any)["id"].(string)

	req := request(http.MethodGet, "/admin/coupons/"+id, nil, adminSession)
	req.SetPathValue("id", id)
	rec = httptest.NewRecorder()
	env.coupons.Get(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	req = request(http.MethodPatch, "/admin/coupons/"+id+"/active", map[string]any{}, adminSession)
	req.SetPathValue("id", id)
	rec = httptest.NewRecorder()
	env.coupons.SetActive(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("missing isActive: status = %d", rec.Code)
	}

	req = request(http.MethodPatch, "/admin/coupons/"+id+"/active", map[string]any{"isActive": false}, adminSession)
	req.SetPathValue("id", id)
	rec = httptest.NewRecorder()
	env.coupons.SetActive(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("set active status = %d", rec.Code)
	}
	if decode(t, rec)["isActive"] != false {
		t.Errorf("coupon still active")
	}

	req = request(http.MethodGet, "/admin/coupons/missing", nil, adminSession)
	req.SetPathValue("id", "missing")
	rec = httptest.NewRecorder()
	env.coupons.Get(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing coupon: status = %d", rec.Code)
	}
}

func TestCouponHandler_ExportDisabled(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.coupons.Export(rec, request(http.MethodGet, "/admin/coupons/export", nil, adminSession))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestCouponHandler_Redeem(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.coupons.Create(rec, request(http.MethodPost, "/admin/coupons", map[string]any{
		"tokens": 30, "endsAt": futureDate(), "count": 1,
	}, adminSession))
	code := decode(t, rec)["items"].([]any)[0].(map[string]any)["code"].(string)

	rec = httptest.NewRecorder()
	env.coupons.Redeem(rec, request(http.MethodPost, "/coupons/redeem", map[string]string{"code": code}, userSession))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if decode(t, rec)["tokens"].(float64) != 30 {
		t.Errorf("tokens mismatch")
	}

	rec = httptest.NewRecorder()
	env.coupons.Redeem(rec, request(http.MethodPost, "/coupons/redeem", map[string]string{"code": code}, userSession))
	if rec.Code != http.StatusConflict || errorCode(decode(t, rec)) != "already_redeemed" {
		t.Errorf("second redeem: status = %d", rec.Code)
	}
}
