package service

import (
	"context"
	"errors"
	"testing"

	"github.com/bitfantasy/procure/internal/purchasing/entity"
	"github.com/bitfantasy/procure/internal/purchasing/sse"
	"github.com/shopspring/decimal"
)

func TestOrderService_CreateKeepsFractionalTax(t *testing.T) {
	env := setupServices(t, Dependencies{}, Options{})
	ctx := context.Background()

	id := env.createOrder(t, OrderItemRequest{ProductID: "p_nut", Quantity: qty(3)})
	po, err := env.svc.Order.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	// 3 x 2.5 = 7.5, 12% => 0.9
	if !po.Subtotal.Equal(decimal.RequireFromString("7.5")) || !po.Tax.Equal(decimal.RequireFromString("0.9")) ||
		!po.Total.Equal(decimal.RequireFromString("8.4")) {
		t.Fatalf("expected 7.5/0.9/8.4, got %s/%s/%s", po.Subtotal, po.Tax, po.Total)
	}
	if po.Items[0].ProductName != "Nut" || po.Items[0].SKU != "SKU-p_nut" {
		t.Fatalf("expected product snapshot, got %+v", po.Items[0].ProductSnapshot)
	}
	if env.publisher.count(sse.EventPOUpdate) != 1 {
		t.Fatalf("expected a po_update event, got %v", env.publisher.events)
	}
}

func TestOrderService_SnapshotSurvivesProductChange(t *testing.T) {
	env := setupServices(t, Dependencies{}, Options{})
	ctx := context.Background()

	id := env.createOrder(t, OrderItemRequest{ProductID: "p_bolt", Quantity: qty(1)})
	if err := env.db.Model(&entity.Product{}).Where("id = ?", "p_bolt").
		Updates(map[string]interface{}{"name": "Bolt v2", "unit_price": "150"}).Error; err != nil {
		t.Fatalf("update product: %v", err)
	}

	po, _ := env.svc.Order.Get(ctx, id)
	if po.Items[0].ProductName != "Bolt" || !po.Items[0].UnitPrice.Equal(qty(100)) {
		t.Fatalf("order item must keep its snapshot, got %+v", po.Items[0].ProductSnapshot)
	}
}

func TestOrderService_AutoConfirmFullReceipt(t *testing.T) {
	env := setupServices(t, Dependencies{}, Options{Order: OrderOptions{AutoConfirmFullReceipt: true}})
	ctx := context.Background()

	id := env.createOrder(t,
		OrderItemRequest{ProductID: "p_bolt", Quantity: qty(2)},
		OrderItemRequest{ProductID: "p_nut", Quantity: qty(1)},
	)

	po, err := env.svc.Order.RecordItemReceipt(ctx, id, &ItemReceiptRequest{ItemIndex: 0, QuantityReceived: qty(2), ReceivedBy: "Dock A"}, buyer)
	if err != nil {
		t.Fatalf("receipt: %v", err)
	}
	if po.MaterialReceived {
		t.Fatal("order must not be confirmed while a line is pending")
	}

	po, err = env.svc.Order.RecordItemReceipt(ctx, id, &ItemReceiptRequest{ItemIndex: 1, QuantityReceived: qty(1), ReceivedBy: "Dock A"}, buyer)
	if err != nil {
		t.Fatalf("receipt: %v", err)
	}
	if !po.MaterialReceived || po.MaterialReceivedDate == nil || !po.MaterialReceivedDate.Equal(env.now) {
		t.Fatalf("expected auto confirmation at %s, got %v %v", env.now, po.MaterialReceived, po.MaterialReceivedDate)
	}

	stored, _ := env.svc.Order.Get(ctx, id)
	if !stored.MaterialReceived {
		t.Fatal("auto confirmation not persisted")
	}

	_, err = env.svc.Order.ConfirmMaterialReceipt(ctx, id, buyer)
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
}

func TestOrderService_ItemReceiptValidation(t *testing.T) {
	env := setupServices(t, Dependencies{}, Options{})
	ctx := context.Background()
	id := env.createOrder(t, OrderItemRequest{ProductID: "p_bolt", Quantity: qty(5)})

	cases := []struct {
		name  string
		req   ItemReceiptRequest
		field string
	}{
		{"zero quantity", ItemReceiptRequest{ItemIndex: 0, QuantityReceived: decimal.Zero, ReceivedBy: "x"}, "quantity_received"},
		{"negative index", ItemReceiptRequest{ItemIndex: -1, QuantityReceived: qty(1), ReceivedBy: "x"}, "item_index"},
		{"index out of range", ItemReceiptRequest{ItemIndex: 1, QuantityReceived: qty(1), ReceivedBy: "x"}, "item_index"},
		{"over receipt", ItemReceiptRequest{ItemIndex: 0, QuantityReceived: qty(6), ReceivedBy: "x"}, "quantity_received"},
		{"no receiver", ItemReceiptRequest{ItemIndex: 0, QuantityReceived: qty(1)}, "received_by"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.svc.Order.RecordItemReceipt(ctx, id, &tc.req, buyer)
			var ve *ValidationError
			if !errors.As(err, &ve) || ve.Field != tc.field {
				t.Fatalf("expected validation error on %s, got %v", tc.field, err)
			}
		})
	}

	receipts, err := env.svc.Order.ListReceipts(ctx, id)
	if err != nil || len(receipts) != 0 {
		t.Fatalf("rejected receipts must not be stored, got %d (%v)", len(receipts), err)
	}
}

func TestOrderService_ActivityTrail(t *testing.T) {
	env := setupServices(t, Dependencies{}, Options{})
	ctx := context.Background()
	id := env.createOrder(t, OrderItemRequest{ProductID: "p_bolt", Quantity: qty(1)})

	if _, err := env.svc.Order.SetStatus(ctx, id, entity.POStatusSent, buyer); err != nil {
		t.Fatalf("set status: %v", err)
	}
	if _, err := env.svc.Order.ConfirmMaterialReceipt(ctx, id, buyer); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	logs, total, err := env.svc.Order.ListActivities(ctx, id, 1, 20)
	if err != nil {
		t.Fatalf("activities: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected 3 activity entries, got %d", total)
	}
	var statusLog *entity.ActivityLog
	for i := range logs {
		if logs[i].Action == entity.ActionStatusChange {
			statusLog = &logs[i]
		}
	}
	if statusLog == nil || statusLog.FromStatus != entity.POStatusDraft || statusLog.ToStatus != entity.POStatusSent {
		t.Fatalf("expected draft->sent entry, got %+v", statusLog)
	}
	if statusLog.OperatorName != buyer.Name {
		t.Fatalf("expected operator %s, got %s", buyer.Name, statusLog.OperatorName)
	}
}

func TestOrderService_DeleteCascades(t *testing.T) {
	env := setupServices(t, Dependencies{}, Options{})
	ctx := context.Background()
	id := env.createOrder(t, OrderItemRequest{ProductID: "p_bolt", Quantity: qty(4)})
	if _, err := env.svc.Order.RecordItemReceipt(ctx, id, &ItemReceiptRequest{ItemIndex: 0, QuantityReceived: qty(1), ReceivedBy: "x"}, buyer); err != nil {
		t.Fatalf("receipt: %v", err)
	}

	if err := env.svc.Order.Delete(ctx, id, buyer); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var items, receipts int64
	env.db.Model(&entity.POItem{}).Where("po_id = ?", id).Count(&items)
	env.db.Model(&entity.ItemReceipt{}).Where("po_id = ?", id).Count(&receipts)
	if items != 0 || receipts != 0 {
		t.Fatalf("expected cascade delete, %d items and %d receipts left", items, receipts)
	}

	var nf *NotFoundError
	if err := env.svc.Order.Delete(ctx, id, buyer); !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func (e *serviceEnv) updateItems(id string, items ...OrderItemRequest) (*entity.PurchaseOrder, error) {
	return e.svc.Order.Update(context.Background(), id, &OrderRequest{
		VendorID:     "v_acme",
		DeliveryDate: "2026-06-01",
		PaymentTerms: "Net 60",
		Items:        items,
	}, buyer)
}

func TestOrderService_UpdateKeepsReceivedLinesWhenReordered(t *testing.T) {
	env := setupServices(t, Dependencies{}, Options{})
	ctx := context.Background()
	id := env.createOrder(t,
		OrderItemRequest{ProductID: "p_bolt", Quantity: qty(10)},
		OrderItemRequest{ProductID: "p_nut", Quantity: qty(5)},
	)
	before, _ := env.svc.Order.Get(ctx, id)
	boltID, nutID := before.Items[0].ID, before.Items[1].ID

	for _, req := range []ItemReceiptRequest{
		{ItemIndex: 0, QuantityReceived: qty(10), ReceivedBy: "Dock A"},
		{ItemIndex: 1, QuantityReceived: qty(3), ReceivedBy: "Dock A"},
	} {
		req := req
		if _, err := env.svc.Order.RecordItemReceipt(ctx, id, &req, buyer); err != nil {
			t.Fatalf("receipt: %v", err)
		}
	}

	if _, err := env.updateItems(id,
		OrderItemRequest{ProductID: "p_nut", Quantity: qty(5)},
		OrderItemRequest{ProductID: "p_bolt", Quantity: qty(10)},
	); err != nil {
		t.Fatalf("update: %v", err)
	}

	po, _ := env.svc.Order.Get(ctx, id)
	if po.Items[0].ID != nutID || !po.Items[0].QuantityReceived.Equal(qty(3)) {
		t.Fatalf("nut line lost its receipt after reorder: %+v", po.Items[0])
	}
	if po.Items[1].ID != boltID || !po.Items[1].QuantityReceived.Equal(qty(10)) || !po.Items[1].PendingQuantity.IsZero() {
		t.Fatalf("bolt line lost its receipt after reorder: %+v", po.Items[1])
	}

	receipts, _ := env.svc.Order.ListReceipts(ctx, id)
	for _, r := range receipts {
		if r.ItemID != boltID && r.ItemID != nutID {
			t.Fatalf("receipt %s points at a missing item %s", r.ID, r.ItemID)
		}
	}

	_, err := env.svc.Order.RecordItemReceipt(ctx, id, &ItemReceiptRequest{ItemIndex: 1, QuantityReceived: qty(1), ReceivedBy: "Dock A"}, buyer)
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "quantity_received" {
		t.Fatalf("fully received bolts must not be received again, got %v", err)
	}
}

func TestOrderService_UpdateRejectsDroppingReceivedLine(t *testing.T) {
	env := setupServices(t, Dependencies{}, Options{})
	ctx := context.Background()
	id := env.createOrder(t,
		OrderItemRequest{ProductID: "p_bolt", Quantity: qty(10)},
		OrderItemRequest{ProductID: "p_nut", Quantity: qty(5)},
	)
	before, _ := env.svc.Order.Get(ctx, id)
	nutID := before.Items[1].ID
	if _, err := env.svc.Order.RecordItemReceipt(ctx, id, &ItemReceiptRequest{ItemIndex: 1, QuantityReceived: qty(3), ReceivedBy: "Dock A"}, buyer); err != nil {
		t.Fatalf("receipt: %v", err)
	}

	// 删除未收货的行项：收货的行项前移但保留已收数量
	if _, err := env.updateItems(id, OrderItemRequest{ProductID: "p_nut", Quantity: qty(5)}); err != nil {
		t.Fatalf("dropping an unreceived line: %v", err)
	}
	po, _ := env.svc.Order.Get(ctx, id)
	if len(po.Items) != 1 || po.Items[0].ID != nutID || !po.Items[0].QuantityReceived.Equal(qty(3)) {
		t.Fatalf("expected the nut line with 3 received, got %+v", po.Items)
	}

	// 删除已收货的行项
	_, err := env.updateItems(id, OrderItemRequest{ProductID: "p_bolt", Quantity: qty(10)})
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "items" {
		t.Fatalf("expected validation error on items, got %v", err)
	}
	po, _ = env.svc.Order.Get(ctx, id)
	if len(po.Items) != 1 || po.Items[0].ProductID != "p_nut" {
		t.Fatalf("rejected update must leave the order unchanged, got %+v", po.Items)
	}

	// 数量不得小于已收
	_, err = env.updateItems(id, OrderItemRequest{ProductID: "p_nut", Quantity: qty(2)})
	if !errors.As(err, &ve) || ve.Field != "items[0].quantity" {
		t.Fatalf("expected validation error on items[0].quantity, got %v", err)
	}
}
