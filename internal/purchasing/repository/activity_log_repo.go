package repository

import (
	"context"
	"encoding/json"

	"github.com/bitfantasy/procure/internal/purchasing/entity"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ActivityLogRepository 操作日志仓库
type ActivityLogRepository struct {
	db *gorm.DB
}

func NewActivityLogRepository(db *gorm.DB) *ActivityLogRepository {
	return &ActivityLogRepository{db: db}
}

// Create 创建操作日志
func (r *ActivityLogRepository) Create(ctx context.Context, log *entity.ActivityLog) error {
	if log.ID == "" {
		log.ID = uuid.New().String()[:32]
	}
	return r.db.WithContext(ctx).Create(log).Error
}

// FindByEntity 查询某实体的操作日志
func (r *ActivityLogRepository) FindByEntity(ctx context.Context, entityType, entityID string, page, pageSize int) ([]entity.ActivityLog, int64, error) {
	var items []entity.ActivityLog
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.ActivityLog{}).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID)

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

// Activity 一条待记录的操作
type Activity struct {
	EntityType   string
	EntityID     string
	EntityCode   string
	Action       string
	FromStatus   string
	ToStatus     string
	Content      string
	Metadata     map[string]interface{}
	OperatorID   string
	OperatorName string
}

// LogActivity 便捷记录操作日志，失败不影响主流程
func (r *ActivityLogRepository) LogActivity(ctx context.Context, a Activity) error {
	log := &entity.ActivityLog{
		ID:           uuid.New().String()[:32],
		EntityType:   a.EntityType,
		EntityID:     a.EntityID,
		EntityCode:   a.EntityCode,
		Action:       a.Action,
		FromStatus:   a.FromStatus,
		ToStatus:     a.ToStatus,
		Content:      a.Content,
		OperatorID:   a.OperatorID,
		OperatorName: a.OperatorName,
	}
	if len(a.Metadata) > 0 {
		if raw, err := json.Marshal(a.Metadata); err == nil {
			log.Metadata = datatypes.JSON(raw)
		}
	}
	return r.db.WithContext(ctx).Create(log).Error
}
