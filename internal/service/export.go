package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/templui/pawcare/internal/model"
	"github.com/templui/pawcare/internal/storage"
	"github.com/templui/pawcare/internal/validation"
	"github.com/xuri/excelize/v2"
)

const (
	couponSheet      = "Coupons"
	xlsxContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	maxExportCoupons = 50000
)

var ErrExportsDisabled = errors.New("coupon export storage is not configured")

var couponExportHeader = []any{"Code", "Tokens", "Ends At (UTC)", "Active", "Status", "Redemptions", "Created At (UTC)", "ID"}

// ExportService writes coupon listings to a workbook and hands out a
// short-lived download link.
type ExportService struct {
	couponService *CouponService
	storage       storage.Storage
	expiry        time.Duration
	now           func() time.Time
}

func NewExportService(couponService *CouponService, store storage.Storage, expiry time.Duration) *ExportService {
	return &ExportService{
		couponService: couponService,
		storage:       store,
		expiry:        expiry,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// ExportCoupons exports every coupon matching f, ignoring its page and limit.
func (s *ExportService) ExportCoupons(ctx context.Context, f CouponFilter) (string, error) {
	if s.storage == nil {
		return "", ErrExportsDisabled
	}

	var coupons []*model.Coupon
	f.Limit = validation.MaxPageLimit
	for f.Page = 1; ; f.Page++ {
		page, err := s.couponService.Query(ctx, f)
		if err != nil {
			return "", err
		}
		coupons = append(coupons, page.Items...)
		if f.Page >= page.Pages || len(coupons) >= maxExportCoupons {
			break
		}
	}

	buf, err := CouponWorkbook(coupons)
	if err != nil {
		return "", err
	}

	now := s.now()
	path := fmt.Sprintf("exports/coupons-%s-%s.xlsx", now.Format("20060102-150405"), uuid.New().String()[:8])

	err = s.storage.Save(ctx, path, buf, xlsxContentType)
	if err != nil {
		return "", fmt.Errorf("failed to store export: %w", err)
	}

	url, err := s.storage.PresignedURL(ctx, path, s.expiry)
	if err != nil {
		if delErr := s.storage.Delete(context.WithoutCancel(ctx), path); delErr != nil {
			slog.Warn("failed to remove unsigned export", "path", path, "error", delErr)
		}
		return "", fmt.Errorf("failed to sign export link: %w", err)
	}

	slog.Info("coupon export created", "path", path, "rows", len(coupons))
	return url, nil
}

// CouponWorkbook renders coupons as a single-sheet xlsx file.
func CouponWorkbook(coupons []*model.Coupon) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(couponSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to remove default sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	header := couponExportHeader
	if err := f.SetSheetRow(couponSheet, "A1", &header); err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(couponSheet, 1, 1, headerStyle); err != nil {
		return nil, err
	}

	_ = f.SetColWidth(couponSheet, "A", "A", 18)
	_ = f.SetColWidth(couponSheet, "B", "B", 10)
	_ = f.SetColWidth(couponSheet, "C", "C", 22)
	_ = f.SetColWidth(couponSheet, "D", "F", 12)
	_ = f.SetColWidth(couponSheet, "G", "G", 22)
	_ = f.SetColWidth(couponSheet, "H", "H", 38)

	for i, c := range coupons {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []any{
			c.Code,
			c.Tokens,
			c.EndsAt.UTC().Format(time.RFC3339),
			c.IsActive,
			c.Status,
			c.RedemptionCount,
			c.CreatedAt.UTC().Format(time.RFC3339),
			c.ID,
		}
		if err := f.SetSheetRow(couponSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	_ = f.SetPanes(couponSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf, nil
}
