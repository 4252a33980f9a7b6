package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bitfantasy/procure/internal/purchasing/entity"
	"github.com/bitfantasy/procure/internal/purchasing/testutil"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func seedOrder(t *testing.T, db *gorm.DB, id, number string, createdAt time.Time) *entity.PurchaseOrder {
	t.Helper()
	po := &entity.PurchaseOrder{
		ID:           id,
		PONumber:     number,
		VendorID:     "v_acme",
		VendorName:   "Acme Supply",
		PaymentTerms: entity.PaymentNet30,
		Status:       entity.POStatusDraft,
		Subtotal:     decimal.NewFromInt(100),
		Tax:          decimal.NewFromInt(18),
		Total:        decimal.NewFromInt(118),
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
		Items: []entity.POItem{{
			ID:        id + "_1",
			POID:      id,
			SortOrder: 1,
			ProductSnapshot: entity.ProductSnapshot{
				ProductName: "Bolt",
				UnitPrice:   decimal.NewFromInt(100),
				TaxRate:     decimal.NewFromInt(18),
			},
			Quantity:         decimal.NewFromInt(1),
			TaxAmount:        decimal.NewFromInt(18),
			Total:            decimal.NewFromInt(118),
			QuantityReceived: decimal.Zero,
		}},
	}
	if err := NewPORepository(db).Create(context.Background(), po); err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return po
}

func TestPORepository_GenerateNumber(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewPORepository(db)
	ctx := context.Background()
	now := time.Date(2026, 7, 20, 0, 0, 0, 0, time.UTC)

	number, err := repo.GenerateNumber(ctx, now)
	if err != nil || number != "PO-202607-0001" {
		t.Fatalf("expected PO-202607-0001, got %q (%v)", number, err)
	}

	seedOrder(t, db, "po_a", "PO-202607-0009", now)
	seedOrder(t, db, "po_b", "PO-202606-0042", now)

	if number, _ := repo.GenerateNumber(ctx, now); number != "PO-202607-0010" {
		t.Fatalf("expected PO-202607-0010, got %q", number)
	}
	// 跨月重新计数
	if number, _ := repo.GenerateNumber(ctx, now.AddDate(0, 1, 0)); number != "PO-202608-0001" {
		t.Fatalf("expected PO-202608-0001, got %q", number)
	}
}

func TestPORepository_GenerateNumberPastFourDigits(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewPORepository(db)
	ctx := context.Background()
	now := time.Date(2026, 7, 20, 0, 0, 0, 0, time.UTC)

	seedOrder(t, db, "po_a", "PO-202607-9999", now)
	if number, err := repo.GenerateNumber(ctx, now); err != nil || number != "PO-202607-10000" {
		t.Fatalf("expected PO-202607-10000, got %q (%v)", number, err)
	}
	seedOrder(t, db, "po_b", "PO-202607-10000", now)
	if number, err := repo.GenerateNumber(ctx, now); err != nil || number != "PO-202607-10001" {
		t.Fatalf("expected PO-202607-10001, got %q (%v)", number, err)
	}
}

func TestPORepository_SearchMatchesWildcardsLiterally(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewPORepository(db)
	ctx := context.Background()
	now := time.Date(2026, 7, 20, 0, 0, 0, 0, time.UTC)

	seedOrder(t, db, "po_a", "PO-202607-0001", now)
	special := seedOrder(t, db, "po_b", "PO-202607-0002", now)
	if err := db.Model(special).Update("vendor_name", "Acme_50%").Error; err != nil {
		t.Fatalf("rename vendor: %v", err)
	}

	cases := []struct {
		search string
		want   int64
	}{
		{"%", 1},
		{"_", 1},
		{"e_5", 1},
		{"acme", 2},
		{"e%5", 0},
	}
	for _, tc := range cases {
		_, total, err := repo.FindAll(ctx, 1, 20, map[string]string{"search": tc.search})
		if err != nil {
			t.Fatalf("search %q: %v", tc.search, err)
		}
		if total != tc.want {
			t.Errorf("search %q: expected %d, got %d", tc.search, tc.want, total)
		}
	}
}

func TestPORepository_FindStaleWithoutUnreadNotice(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewPORepository(db)
	notifications := NewNotificationRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 7, 20, 12, 0, 0, 0, time.UTC)
	cutoff := now.Add(-240 * time.Hour)

	seedOrder(t, db, "po_old", "PO-202607-0001", now.Add(-300*time.Hour))
	seedOrder(t, db, "po_new", "PO-202607-0002", now.Add(-100*time.Hour))
	received := seedOrder(t, db, "po_recv", "PO-202607-0003", now.Add(-400*time.Hour))
	if ok, err := repo.MarkMaterialReceived(ctx, received.ID, now); err != nil || !ok {
		t.Fatalf("mark received: %v %v", ok, err)
	}
	if ok, _ := repo.MarkMaterialReceived(ctx, received.ID, now); ok {
		t.Fatal("second mark must report no change")
	}

	stale, err := repo.FindStaleWithoutUnreadNotice(ctx, cutoff)
	if err != nil {
		t.Fatalf("find stale: %v", err)
	}
	if len(stale) != 1 || stale[0].ID != "po_old" {
		t.Fatalf("expected only po_old, got %+v", stale)
	}

	err = notifications.CreateBatch(ctx, []entity.Notification{{ID: "n1", POID: "po_old", PONumber: "PO-202607-0001", Message: "stale", CreatedAt: now}})
	if err != nil {
		t.Fatalf("create notification: %v", err)
	}
	if stale, _ := repo.FindStaleWithoutUnreadNotice(ctx, cutoff); len(stale) != 0 {
		t.Fatalf("unread notice must suppress the order, got %d", len(stale))
	}

	if err := notifications.MarkRead(ctx, "n1", now); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if err := notifications.MarkRead(ctx, "n1", now); err != nil {
		t.Fatalf("marking twice must succeed, got %v", err)
	}
	if err := notifications.MarkRead(ctx, "missing", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if stale, _ := repo.FindStaleWithoutUnreadNotice(ctx, cutoff); len(stale) != 1 {
		t.Fatalf("read notice must not suppress the order, got %d", len(stale))
	}
}

func TestPORepository_RecordItemReceipt(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewPORepository(db)
	ctx := context.Background()
	now := time.Date(2026, 7, 20, 12, 0, 0, 0, time.UTC)
	po := seedOrder(t, db, "po_a", "PO-202607-0001", now)

	receipt := &entity.ItemReceipt{
		ID: "r1", POID: po.ID, ItemID: po.Items[0].ID, ItemIndex: 0,
		QuantityReceived: decimal.NewFromInt(1), ReceivedBy: "Dock A", ReceivedAt: now,
	}
	if err := repo.RecordItemReceipt(ctx, receipt, decimal.NewFromInt(1), true); err != nil {
		t.Fatalf("record receipt: %v", err)
	}

	got, err := repo.FindByID(ctx, po.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !got.MaterialReceived || !got.Items[0].QuantityReceived.Equal(decimal.NewFromInt(1)) || !got.Items[0].PendingQuantity.IsZero() {
		t.Fatalf("unexpected order state %+v", got)
	}
	receipts, _ := repo.FindReceipts(ctx, po.ID)
	if len(receipts) != 1 || receipts[0].ReceivedBy != "Dock A" {
		t.Fatalf("unexpected receipts %+v", receipts)
	}

	if err := repo.Delete(ctx, po.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.FindByID(ctx, po.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
