package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/templui/pawcare/internal/validation"
)

var (
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrAlreadyRefunded     = errors.New("transaction already refunded")
	ErrUpstreamUnavailable = errors.New("payment processor unavailable")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrGenerationExhausted = errors.New("coupon code generation exhausted")
	ErrAlreadyRedeemed     = errors.New("coupon already redeemed")
	ErrCouponNotRedeemable = errors.New("coupon is inactive or expired")
)

// ValidationError carries every field that failed validation.
// It matches ErrInvalidArgument with errors.Is.
type ValidationError struct {
	Fields []validation.FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Reason))
	}
	return "invalid argument: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidArgument
}

func invalid(fields ...validation.FieldError) error {
	return &ValidationError{Fields: fields}
}
