package repository

import (
	"context"
	"strings"

	"github.com/bitfantasy/procure/internal/purchasing/entity"
	"gorm.io/gorm"
)

// VendorRepository 供应商仓库
type VendorRepository struct {
	db *gorm.DB
}

func NewVendorRepository(db *gorm.DB) *VendorRepository {
	return &VendorRepository{db: db}
}

// FindAll 查询供应商列表
func (r *VendorRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Vendor, int64, error) {
	var items []entity.Vendor
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Vendor{})

	if search := strings.ToLower(filters["search"]); search != "" {
		query = query.Where("LOWER(name) LIKE ? ESCAPE '\\' OR LOWER(contact_person) LIKE ? ESCAPE '\\' OR LOWER(email) LIKE ? ESCAPE '\\'",
			likePattern(search), likePattern(search), likePattern(search))
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

// FindByID 根据ID查找供应商
func (r *VendorRepository) FindByID(ctx context.Context, id string) (*entity.Vendor, error) {
	var vendor entity.Vendor
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&vendor).Error; err != nil {
		return nil, translate(err)
	}
	return &vendor, nil
}

// Create 创建供应商
func (r *VendorRepository) Create(ctx context.Context, vendor *entity.Vendor) error {
	return translate(r.db.WithContext(ctx).Create(vendor).Error)
}

// Update 更新供应商
func (r *VendorRepository) Update(ctx context.Context, vendor *entity.Vendor) error {
	return translate(r.db.WithContext(ctx).Save(vendor).Error)
}

// Delete 删除供应商
func (r *VendorRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Vendor{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
