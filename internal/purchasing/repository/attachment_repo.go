package repository

import (
	"context"

	"github.com/bitfantasy/procure/internal/purchasing/entity"
	"gorm.io/gorm"
)

// AttachmentRepository 订单附件仓库
type AttachmentRepository struct {
	db *gorm.DB
}

func NewAttachmentRepository(db *gorm.DB) *AttachmentRepository {
	return &AttachmentRepository{db: db}
}

func (r *AttachmentRepository) FindByPO(ctx context.Context, poID string) ([]entity.POAttachment, error) {
	var items []entity.POAttachment
	err := r.db.WithContext(ctx).
		Where("po_id = ?", poID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

func (r *AttachmentRepository) FindByID(ctx context.Context, id string) (*entity.POAttachment, error) {
	var a entity.POAttachment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (r *AttachmentRepository) Create(ctx context.Context, a *entity.POAttachment) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *AttachmentRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.POAttachment{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
