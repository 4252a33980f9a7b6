package repository

import (
	"context"
	"time"

	"github.com/bitfantasy/procure/internal/purchasing/entity"
	"gorm.io/gorm"
)

// NotificationRepository 收货提醒仓库
type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// FindAll 查询提醒列表（按创建时间倒序）
func (r *NotificationRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Notification, int64, error) {
	var items []entity.Notification
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Notification{})

	switch filters["is_read"] {
	case "true":
		query = query.Where("is_read = ?", true)
	case "false":
		query = query.Where("is_read = ?", false)
	}
	if poID := filters["po_id"]; poID != "" {
		query = query.Where("po_id = ?", poID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Offset(pageOffset(page, pageSize)).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindByID 根据ID查找提醒
func (r *NotificationRepository) FindByID(ctx context.Context, id string) (*entity.Notification, error) {
	var n entity.Notification
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&n).Error; err != nil {
		return nil, translate(err)
	}
	return &n, nil
}

// CountUnread 未读提醒数量
func (r *NotificationRepository) CountUnread(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Notification{}).
		Where("is_read = ?", false).
		Count(&count).Error
	return count, err
}

// CreateBatch 批量创建提醒
func (r *NotificationRepository) CreateBatch(ctx context.Context, notifications []entity.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&notifications).Error
}

// MarkRead 标记已读，已读的提醒保持原已读时间
func (r *NotificationRepository) MarkRead(ctx context.Context, id string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&entity.Notification{}).
		Where("id = ? AND is_read = ?", id, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}
	// 没有更新：要么已读，要么不存在
	if _, err := r.FindByID(ctx, id); err != nil {
		return err
	}
	return nil
}
