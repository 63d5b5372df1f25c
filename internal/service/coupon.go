package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/templui/pawcare/internal/model"
	"github.com/templui/pawcare/internal/repository"
	"github.com/templui/pawcare/internal/validation"
)

const maxBatchAttempts = 3

// CreateBatchInput is the admin request to issue coupons.
type CreateBatchInput struct {
	Tokens int    `json:"tokens"`
	EndsAt string `json:"endsAt"`
	Count  int    `json:"count"`
}

// CouponFilter is the raw listing request before normalisation.
type CouponFilter struct {
	Search string
	Status string
	Active string
	Sort   string
	Page   int
	Limit  int
}

// CouponPage is one page of a coupon listing.
type CouponPage struct {
	Items []*model.Coupon
	Page  int
	Limit int
	Pages int
	Total int
}

type CouponService struct {
	couponRepository repository.CouponRepository
	generator        *CodeGenerator
	maxBatch         int
	now              func() time.Time
}

func NewCouponService(couponRepository repository.CouponRepository, generator *CodeGenerator, maxBatch int) *CouponService {
	return &CouponService{
		couponRepository: couponRepository,
		generator:        generator,
		maxBatch:         maxBatch,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// CreateBatch issues count coupons atomically. A code collision with a
// concurrent batch discards the attempt and retries with fresh codes.
func (s *CouponService) CreateBatch(ctx context.Context, in CreateBatchInput) ([]*model.Coupon, error) {
	now := s.now()

	endsAt, fieldErrs := validation.ValidateCouponBatch(in.Tokens, in.EndsAt, in.Count, s.maxBatch, now)
	if len(fieldErrs) > 0 {
		return nil, invalid(fieldErrs...)
	}

	for attempt := 1; attempt <= maxBatchAttempts; attempt++ {
		codes, err := s.generator.Generate(ctx, in.Count, s.couponRepository.ExistingCodes)
		if err != nil {
			return nil, fmt.Errorf("failed to generate coupon codes: %w", err)
		}

		coupons := make([]*model.Coupon, len(codes))
		for i, code := range codes {
			coupons[i] = &model.Coupon{
				ID:        uuid.New().String(),
				Code:      code,
				Tokens:    in.Tokens,
				EndsAt:    endsAt,
				IsActive:  true,
				CreatedAt: now,
				UpdatedAt: now,
			}
		}

		// The generator already redrew codes that were stored when it looked.
		// A duplicate here means a concurrent batch committed one of ours in
		// between; the insert rolled back, so the batch is drawn again.
		err = s.couponRepository.CreateBatch(ctx, coupons)
		if errors.Is(err, repository.ErrDuplicateCouponCode) {
			slog.Warn("coupon batch collided with stored code, retrying", "attempt", attempt, "count", in.Count)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create coupon batch: %w", err)
		}

		for _, c := range coupons {
			c.Status = c.StatusAt(now)
		}

		slog.Info("coupon batch created", "count", len(coupons), "tokens", in.Tokens, "ends_at", endsAt)
		return coupons, nil
	}

	return nil, fmt.Errorf("coupon batch kept colliding: %w", ErrConflict)
}

// SetActive toggles the administrative flag. Requesting the current state is a no-op.
func (s *CouponService) SetActive(ctx context.Context, id string, active bool) (*model.Coupon, error) {
	coupon, err := s.couponRepository.SetActive(ctx, id, active, s.now())
	if errors.Is(err, repository.ErrCouponNotFound) {
		return nil, fmt.Errorf("coupon %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update coupon: %w", err)
	}

	coupon.Status = coupon.StatusAt(s.now())
	return coupon, nil
}

func (s *CouponService) ByID(ctx context.Context, id string) (*model.Coupon, error) {
	coupon, err := s.couponRepository.ByID(ctx, id)
	if errors.Is(err, repository.ErrCouponNotFound) {
		return nil, fmt.Errorf("coupon %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	coupon.Status = coupon.StatusAt(s.now())
	return coupon, nil
}

func (s *CouponService) ByCode(ctx context.Context, code string) (*model.Coupon, error) {
	coupon, err := s.couponRepository.ByCode(ctx, normalizeCode(code))
	if errors.Is(err, repository.ErrCouponNotFound) {
		return nil, fmt.Errorf("coupon: %w", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	coupon.Status = coupon.StatusAt(s.now())
	return coupon, nil
}

// Query lists coupons. Status is computed against the same instant used to filter.
func (s *CouponService) Query(ctx context.Context, f CouponFilter) (*CouponPage, error) {
	q, err := s.buildQuery(f)
	if err != nil {
		return nil, err
	}

	items, total, err := s.couponRepository.Query(ctx, q)
	if err != nil {
		return nil, err
	}

	for _, c := range items {
		c.Status = c.StatusAt(q.Now)
	}

	return &CouponPage{
		Items: items,
		Page:  q.Page,
		Limit: q.Limit,
		Pages: pageCount(total, q.Limit),
		Total: total,
	}, nil
}

// Redeem credits a coupon's tokens to the account once.
func (s *CouponService) Redeem(ctx context.Context, accountID, code string) (*model.Coupon, *model.TokenTransaction, error) {
	code = normalizeCode(code)
	if code == "" {
		return nil, nil, invalid(validation.FieldError{Field: "code", Reason: validation.ReasonRequired})
	}

	coupon, txn, err := s.couponRepository.Redeem(ctx, code, accountID, s.now())
	switch {
	case errors.Is(err, repository.ErrCouponNotFound):
		return nil, nil, fmt.Errorf("coupon: %w", ErrNotFound)
	case errors.Is(err, repository.ErrAlreadyRedeemed):
		return nil, nil, ErrAlreadyRedeemed
	case errors.Is(err, repository.ErrCouponNotRedeemable):
		return nil, nil, ErrCouponNotRedeemable
	case err != nil:
		return nil, nil, fmt.Errorf("failed to redeem coupon: %w", err)
	}

	coupon.Status = coupon.StatusAt(s.now())
	slog.Info("coupon redeemed", "coupon_id", coupon.ID, "account_id", accountID, "tokens", coupon.Tokens)
	return coupon, txn, nil
}

func (s *CouponService) buildQuery(f CouponFilter) (repository.CouponQuery, error) {
	var fieldErrs []validation.FieldError

	search, ok := validation.NormalizeSearch(f.Search)
	if !ok {
		fieldErrs = append(fieldErrs, validation.FieldError{Field: "search", Reason: validation.ReasonInvalidFormat})
	}

	status := strings.ToLower(strings.TrimSpace(f.Status))
	switch status {
	case "", model.CouponStatusValid, model.CouponStatusExpired:
	default:
		fieldErrs = append(fieldErrs, validation.FieldError{Field: "status", Reason: validation.ReasonUnknownValue})
	}

	var active *bool
	switch strings.ToLower(strings.TrimSpace(f.Active)) {
	case "":
	case "true":
		v := true
		active = &v
	case "false":
		v := false
		active = &v
	default:
		fieldErrs = append(fieldErrs, validation.FieldError{Field: "active", Reason: validation.ReasonUnknownValue})
	}

	page, limit, pageErrs := validation.ValidatePage(f.Page, f.Limit)
	fieldErrs = append(fieldErrs, pageErrs...)

	if len(fieldErrs) > 0 {
		return repository.CouponQuery{}, invalid(fieldErrs...)
	}

	return repository.CouponQuery{
		Search: search,
		Status: status,
		Active: active,
		Sort:   NormalizeCouponSort(f.Sort),
		Page:   page,
		Limit:  limit,
		Now:    s.now(),
	}, nil
}

var couponSortAliases = map[string]string{
	"latest":           repository.CouponSortLatest,
	"newest":           repository.CouponSortLatest,
	"oldest":           repository.CouponSortOldest,
	"endsat asc":       repository.CouponSortEndsAtAsc,
	"ends_at_asc":      repository.CouponSortEndsAtAsc,
	"endsat desc":      repository.CouponSortEndsAtDesc,
	"ends_at_desc":     repository.CouponSortEndsAtDesc,
	"code asc":         repository.CouponSortCodeAsc,
	"code_asc":         repository.CouponSortCodeAsc,
	"redemptions desc": repository.CouponSortRedemptionsDesc,
	"redemptions_desc": repository.CouponSortRedemptionsDesc,
}

// NormalizeCouponSort maps a dashboard sort label to a repository sort key.
// Unknown labels fall back to latest.
func NormalizeCouponSort(sort string) string {
	key := strings.ToLower(strings.Join(strings.Fields(sort), " "))
	key = strings.ReplaceAll(key, "-", "_")
	if v, ok := couponSortAliases[key]; ok {
		return v
	}
	return repository.CouponSortLatest
}

func normalizeCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	return strings.ReplaceAll(code, "-", "")
}

func pageCount(total, limit int) int {
	if total == 0 || limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
