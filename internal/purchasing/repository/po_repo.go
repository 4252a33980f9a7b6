package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bitfantasy/procure/internal/purchasing/entity"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PORepository 采购订单仓库
type PORepository struct {
	db *gorm.DB
}

func NewPORepository(db *gorm.DB) *PORepository {
	return &PORepository{db: db}
}

func orderedItems(db *gorm.DB) *gorm.DB {
	return db.Order("sort_order ASC")
}

// FindAll 查询采购订单列表（按创建时间倒序）
func (r *PORepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.PurchaseOrder, int64, error) {
	var items []entity.PurchaseOrder
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.PurchaseOrder{})

	if vendorID := filters["vendor_id"]; vendorID != "" {
		query = query.Where("vendor_id = ?", vendorID)
	}
	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	switch filters["material_received"] {
	case "true":
		query = query.Where("material_received = ?", true)
	case "false":
		query = query.Where("material_received = ?", false)
	}
	if search := strings.ToLower(filters["search"]); search != "" {
		query = query.Where("LOWER(po_number) LIKE ? ESCAPE '\\' OR LOWER(vendor_name) LIKE ? ESCAPE '\\'", likePattern(search), likePattern(search))
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Preload("Items", orderedItems).
		Order("created_at DESC").
		Offset(pageOffset(page, pageSize)).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindByID 根据ID查找采购订单（含行项）
func (r *PORepository) FindByID(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	var po entity.PurchaseOrder
	err := r.db.WithContext(ctx).
		Preload("Items", orderedItems).
		Where("id = ?", id).
		First(&po).Error
	if err != nil {
		return nil, translate(err)
	}
	return &po, nil
}

// FindStaleWithoutUnreadNotice 查找创建早于before、未确认收货且没有未读提醒的订单
func (r *PORepository) FindStaleWithoutUnreadNotice(ctx context.Context, before time.Time) ([]entity.PurchaseOrder, error) {
	var orders []entity.PurchaseOrder
	err := r.db.WithContext(ctx).
		Where("created_at < ?", before).
		Where("material_received = ?", false).
		Where("NOT EXISTS (SELECT 1 FROM pur_notifications n WHERE n.po_id = pur_purchase_orders.id AND n.is_read = ?)", false).
		Order("created_at ASC").
		Find(&orders).Error
	return orders, err
}

// Create 创建采购订单及行项
func (r *PORepository) Create(ctx context.Context, po *entity.PurchaseOrder) error {
	return translate(r.db.WithContext(ctx).Create(po).Error)
}

// ReplaceWithItems 更新订单头并整体替换行项
func (r *PORepository) ReplaceWithItems(ctx context.Context, po *entity.PurchaseOrder) error {
	return translate(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("po_id = ?", po.ID).Delete(&entity.POItem{}).Error; err != nil {
			return err
		}
		if err := tx.Omit("Items").Save(po).Error; err != nil {
			return err
		}
		if len(po.Items) == 0 {
			return nil
		}
		return tx.Create(&po.Items).Error
	}))
}

// UpdateStatus 只更新状态字段
func (r *PORepository) UpdateStatus(ctx context.Context, id, status string, now time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&entity.PurchaseOrder{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkMaterialReceived 标记整单已收货，已标记时返回false
func (r *PORepository) MarkMaterialReceived(ctx context.Context, id string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&entity.PurchaseOrder{}).
		Where("id = ? AND material_received = ?", id, false).
		Updates(map[string]interface{}{
			"material_received":      true,
			"material_received_date": at,
			"updated_at":             at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// RecordItemReceipt 行项收货：更新已收数量并写入收货记录，可选同时标记整单收货
func (r *PORepository) RecordItemReceipt(ctx context.Context, receipt *entity.ItemReceipt, newReceived decimal.Decimal, markOrderReceived bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&entity.POItem{}).
			Where("id = ?", receipt.ItemID).
			Updates(map[string]interface{}{
				"quantity_received": newReceived,
				"updated_at":        receipt.ReceivedAt,
			}).Error; err != nil {
			return err
		}
		if err := tx.Create(receipt).Error; err != nil {
			return err
		}
		if !markOrderReceived {
			return nil
		}
		return tx.Model(&entity.PurchaseOrder{}).
			Where("id = ? AND material_received = ?", receipt.POID, false).
			Updates(map[string]interface{}{
				"material_received":      true,
				"material_received_date": receipt.ReceivedAt,
				"updated_at":             receipt.ReceivedAt,
			}).Error
	})
}

// FindReceipts 查询订单收货记录
func (r *PORepository) FindReceipts(ctx context.Context, poID string) ([]entity.ItemReceipt, error) {
	var receipts []entity.ItemReceipt
	err := r.db.WithContext(ctx).
		Where("po_id = ?", poID).
		Order("received_at ASC").
		Find(&receipts).Error
	return receipts, err
}

// Delete 删除采购订单及其行项、收货记录、附件记录和提醒
func (r *PORepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{
			&entity.POItem{},
			&entity.ItemReceipt{},
			&entity.POAttachment{},
			&entity.Notification{},
		} {
			if err := tx.Where("po_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}
		result := tx.Where("id = ?", id).Delete(&entity.PurchaseOrder{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// GenerateNumber 生成PO编号 PO-{yyyyMM}-{4位}
func (r *PORepository) GenerateNumber(ctx context.Context, now time.Time) (string, error) {
	month := now.Format("200601")
	prefix := fmt.Sprintf("PO-%s-", month)

	// 序号超过4位后字符串比较失效，先按长度排序
	var numbers []string
	err := r.db.WithContext(ctx).
		Model(&entity.PurchaseOrder{}).
		Where("po_number LIKE ?", prefix+"%").
		Order("LENGTH(po_number) DESC, po_number DESC").
		Limit(1).
		Pluck("po_number", &numbers).Error
	if err != nil {
		return "", err
	}

	var seq int
	if len(numbers) > 0 {
		if _, err := fmt.Sscanf(strings.TrimPrefix(numbers[0], prefix), "%d", &seq); err != nil {
			return "", fmt.Errorf("parse po number %q: %w", numbers[0], err)
		}
	}
	seq++
	return fmt.Sprintf("PO-%s-%04d", month, seq), nil
}
