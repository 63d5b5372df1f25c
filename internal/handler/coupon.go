package handler

import (
	"net/http"

	"github.com/templui/pawcare/internal/ctxkeys"
	"github.com/templui/pawcare/internal/model"
	"github.com/templui/pawcare/internal/service"
	"github.com/templui/pawcare/internal/validation"
)

type CouponHandler struct {
	couponService *service.CouponService
	exportService *service.ExportService
}

func NewCouponHandler(couponService *service.CouponService, exportService *service.ExportService) *CouponHandler {
	return &CouponHandler{
		couponService: couponService,
		exportService: exportService,
	}
}

type couponBatchResponse struct {
	Count int             `json:"count"`
	Items []*model.Coupon `json:"items"`
}

type couponListResponse struct {
	Items      []*model.Coupon `json:"items"`
	Pagination pagination      `json:"pagination"`
}

func (h *CouponHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.CreateBatchInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err, nil)
		return
	}

	coupons, err := h.couponService.CreateBatch(r.Context(), in)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}

	writeJSON(w, http.StatusCreated, couponBatchResponse{Count: len(coupons), Items: coupons})
}

func (h *CouponHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := couponFilter(r)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}

	page, err := h.couponService.Query(r.Context(), filter)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}

	writeJSON(w, http.StatusOK, couponListResponse{
		Items: page.Items,
		Pagination: pagination{
			Page:  page.Page,
			Limit: page.Limit,
			Pages: page.Pages,
			Total: page.Total,
		},
	})
}

func (h *CouponHandler) Get(w http.ResponseWriter, r *http.Request) {
	coupon, err := h.couponService.ByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err, nil)
		return
	}

	writeJSON(w, http.StatusOK, coupon)
}

func (h *CouponHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IsActive *bool `json:"isActive"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err, nil)
		return
	}
	if body.IsActive == nil {
		writeError(w, r, &service.ValidationError{Fields: []validation.FieldError{
			{Field: "isActive", Reason: validation.ReasonRequired},
		}}, nil)
		return
	}

	coupon, err := h.couponService.SetActive(r.Context(), r.PathValue("id"), *body.IsActive)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}

	writeJSON(w, http.StatusOK, coupon)
}

// Export redirects to a short-lived download of the filtered listing.
func (h *CouponHandler) Export(w http.ResponseWriter, r *http.Request) {
	filter, err := couponFilter(r)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}

	url, err := h.exportService.ExportCoupons(r.Context(), filter)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}

	http.Redirect(w, r, url, http.StatusSeeOther)
}

func (h *CouponHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	session := ctxkeys.Session(r.Context())

	var body struct {
		Code string `json:"code"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err, nil)
		return
	}

	coupon, txn, err := h.couponService.Redeem(r.Context(), session.UserID, body.Code)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"tokens":      coupon.Tokens,
		"coupon":      coupon,
		"transaction": txn,
	})
}

func couponFilter(r *http.Request) (service.CouponFilter, error) {
	var errs []validation.FieldError
	q := r.URL.Query()

	filter := service.CouponFilter{
		Search: q.Get("search"),
		Status: q.Get("status"),
		Active: q.Get("active"),
		Sort:   q.Get("sort"),
		Page:   queryInt(r, "page", &errs),
		Limit:  queryInt(r, "limit", &errs),
	}
	if len(errs) > 0 {
		return filter, &service.ValidationError{Fields: errs}
	}
	return filter, nil
}
