package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/templui/pawcare/internal/service"
	"github.com/templui/pawcare/internal/validation"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type fieldErrorBody struct {
	Field   string `json:"field"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError maps service errors to status codes and the JSON error
// envelope. extra fields are merged into the top-level body.
func writeError(w http.ResponseWriter, r *http.Request, err error, extra map[string]any) {
	status, code := http.StatusInternalServerError, "internal"

	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		status, code = http.StatusUnprocessableEntity, "invalid_argument"
	case errors.Is(err, service.ErrInvalidArgument):
		status, code = http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, service.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrAlreadyRefunded):
		status, code = http.StatusConflict, "already_refunded"
	case errors.Is(err, service.ErrAlreadyRedeemed):
		status, code = http.StatusConflict, "already_redeemed"
	case errors.Is(err, service.ErrCouponNotRedeemable):
		status, code = http.StatusConflict, "coupon_not_redeemable"
	case errors.Is(err, service.ErrConflict):
		status, code = http.StatusConflict, "conflict"
	case errors.Is(err, service.ErrUpstreamUnavailable):
		status, code = http.StatusBadGateway, "upstream_unavailable"
	case errors.Is(err, service.ErrGenerationExhausted), errors.Is(err, service.ErrExportsDisabled):
		status, code = http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, service.ErrUnauthorized):
		status, code = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, service.ErrForbidden):
		status, code = http.StatusForbidden, "forbidden"
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err, "method", r.Method, "path", r.URL.Path)
		message = "Something went wrong. Please try again."
	}

	body := map[string]any{
		"error": errorBody{Code: code, Message: message},
	}
	if validationErr != nil {
		lang := r.Header.Get("Accept-Language")
		fields := make([]fieldErrorBody, 0, len(validationErr.Fields))
		for _, f := range validationErr.Fields {
			fields = append(fields, fieldErrorBody{
				Field:   f.Field,
				Reason:  f.Reason,
				Message: validation.Message(f.Reason, lang),
			})
		}
		body["errors"] = fields
	}
	for k, v := range extra {
		body[k] = v
	}

	writeJSON(w, status, body)
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer func() {
		closeErr := r.Body.Close()
		if closeErr != nil {
			slog.Error("failed to close request body", "error", closeErr)
		}
	}()

	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil {
		return fmt.Errorf("%w: malformed JSON body: %v", service.ErrInvalidArgument, err)
	}
	return nil
}

// queryInt parses an optional integer query parameter; missing means 0.
func queryInt(r *http.Request, key string, errs *[]validation.FieldError) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, validation.FieldError{Field: key, Reason: validation.ReasonInvalidFormat})
		return 0
	}
	return n
}

type pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
	Total int `json:"total"`
}
