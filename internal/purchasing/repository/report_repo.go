package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReportRepository 看板统计，直接在底层连接上用sqlx查询
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository 复用gorm的连接池
func NewReportRepository(db *gorm.DB) (*ReportRepository, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	driverName := "pgx"
	if db.Dialector.Name() == "sqlite" {
		driverName = "sqlite3"
	}
	return &ReportRepository{db: sqlx.NewDb(sqlDB, driverName)}, nil
}

// StatusCount 各状态订单数
type StatusCount struct {
	Status string          `db:"status" json:"status"`
	Count  int64           `db:"count" json:"count"`
	Amount decimal.Decimal `db:"amount" json:"amount"`
}

// VendorSpend 供应商采购额
type VendorSpend struct {
	VendorID   string          `db:"vendor_id" json:"vendor_id"`
	VendorName string          `db:"vendor_name" json:"vendor_name"`
	OrderCount int64           `db:"order_count" json:"order_count"`
	TotalSpend decimal.Decimal `db:"total_spend" json:"total_spend"`
}

// ReceiptSummary 收货概况
type ReceiptSummary struct {
	Received           int64 `db:"received" json:"received"`
	Pending            int64 `db:"pending" json:"pending"`
	UnreadNotification int64 `db:"unread_notifications" json:"unread_notifications"`
}

// StatusBreakdown 按状态统计订单数量和金额
func (r *ReportRepository) StatusBreakdown(ctx context.Context) ([]StatusCount, error) {
	const q = `
		SELECT status, COUNT(*) AS count, COALESCE(SUM(total), 0) AS amount
		FROM pur_purchase_orders
		GROUP BY status
		ORDER BY status`
	var rows []StatusCount
	if err := r.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, fmt.Errorf("status breakdown: %w", err)
	}
	return rows, nil
}

// TopVendors 采购额最高的供应商，不含已取消订单
func (r *ReportRepository) TopVendors(ctx context.Context, limit int) ([]VendorSpend, error) {
	q := r.db.Rebind(`
		SELECT vendor_id, vendor_name, COUNT(*) AS order_count, COALESCE(SUM(total), 0) AS total_spend
		FROM pur_purchase_orders
		WHERE status <> ?
		GROUP BY vendor_id, vendor_name
		ORDER BY total_spend DESC
		LIMIT ?`)
	var rows []VendorSpend
	if err := r.db.SelectContext(ctx, &rows, q, "cancelled", limit); err != nil {
		return nil, fmt.Errorf("top vendors: %w", err)
	}
	return rows, nil
}

// ReceiptSummary 已收货/待收货订单数和未读提醒数
func (r *ReportRepository) ReceiptSummary(ctx context.Context) (*ReceiptSummary, error) {
	q := r.db.Rebind(`
		SELECT
			(SELECT COUNT(*) FROM pur_purchase_orders WHERE material_received = ?) AS received,
			(SELECT COUNT(*) FROM pur_purchase_orders WHERE material_received = ?) AS pending,
			(SELECT COUNT(*) FROM pur_notifications WHERE is_read = ?) AS unread_notifications`)
	var summary ReceiptSummary
	if err := r.db.GetContext(ctx, &summary, q, true, false, false); err != nil {
		return nil, fmt.Errorf("receipt summary: %w", err)
	}
	return &summary, nil
}

// EntityCounts 主数据数量
type EntityCounts struct {
	Orders   int64 `db:"orders" json:"orders"`
	Vendors  int64 `db:"vendors" json:"vendors"`
	Products int64 `db:"products" json:"products"`
}

// EntityCounts 订单、供应商、物料总数
func (r *ReportRepository) EntityCounts(ctx context.Context) (*EntityCounts, error) {
	const q = `
		SELECT
			(SELECT COUNT(*) FROM pur_purchase_orders) AS orders,
			(SELECT COUNT(*) FROM pur_vendors) AS vendors,
			(SELECT COUNT(*) FROM pur_products) AS products`
	var counts EntityCounts
	if err := r.db.GetContext(ctx, &counts, q); err != nil {
		return nil, fmt.Errorf("entity counts: %w", err)
	}
	return &counts, nil
}
