package service

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/templui/pawcare/internal/db"
	"github.com/templui/pawcare/internal/model"
	"github.com/templui/pawcare/internal/repository"
)

// newTestDB opens a migrated SQLite file in a temp dir.
func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
	database, err := db.Init("sqlite", dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	if err := db.RunMigrations(database.DB, "sqlite"); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return database
}

// clock is a settable time source shared by the services under test.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeRefunder counts processor calls. When block is set, Refund signals
// entered and waits for release or ctx cancellation.
type fakeRefunder struct {
	calls   atomic.Int32
	err     error
	block   bool
	entered chan struct{}
	release chan struct{}
	onCall  func(ctx context.Context, txn *model.TokenTransaction)
}

func newBlockingRefunder() *fakeRefunder {
	return &fakeRefunder{
		block:   true,
		entered: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
}

func (f *fakeRefunder) Refund(ctx context.Context, txn *model.TokenTransaction) error {
	f.calls.Add(1)
	if f.onCall != nil {
		f.onCall(ctx, txn)
	}
	if f.block {
		f.entered <- struct{}{}
		select {
		case <-f.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.err
}

type fakeReceipts struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (f *fakeReceipts) SendRefundReceipt(_ context.Context, txn *model.TokenTransaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, txn.OrderID())
	return f.err
}

func (f *fakeReceipts) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// seedPurchase records a completed purchase for orderID.
func seedPurchase(t *testing.T, ledger *LedgerService, accountID, orderID string) *model.TokenTransaction {
	t.Helper()

	txn, err := ledger.RecordPurchase(context.Background(), PurchaseInput{
		AccountID:   accountID,
		OrderID:     orderID,
		Provider:    model.ProviderStripe,
		Tokens:      50,
		PriceAmount: 1999,
		Currency:    "USD",
	})
	if err != nil {
		t.Fatalf("failed to seed purchase: %v", err)
	}
	return txn
}

func statusOf(t *testing.T, repo repository.TransactionRepository, orderID string) string {
	t.Helper()

	txn, err := repo.ByOrderID(context.Background(), orderID)
	if err != nil {
		t.Fatalf("failed to load order %s: %v", orderID, err)
	}
	return txn.Status
}
