package repository

import (
	"context"
	"strings"

	"github.com/bitfantasy/procure/internal/purchasing/entity"
	"gorm.io/gorm"
)

// ProductRepository 物料仓库
type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// FindAll 查询物料列表
func (r *ProductRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Product, int64, error) {
	var items []entity.Product
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Product{})

	if search := strings.ToLower(filters["search"]); search != "" {
		query = query.Where("LOWER(name) LIKE ? ESCAPE '\\' OR LOWER(sku) LIKE ? ESCAPE '\\'", likePattern(search), likePattern(search))
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

// FindByID 根据ID查找物料
func (r *ProductRepository) FindByID(ctx context.Context, id string) (*entity.Product, error) {
	var product entity.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

// FindByIDs 批量查找物料
func (r *ProductRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*entity.Product, error) {
	var products []entity.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	result := make(map[string]*entity.Product, len(products))
	for i := range products {
		result[products[i].ID] = &products[i]
	}
	return result, nil
}

// Create 创建物料
func (r *ProductRepository) Create(ctx context.Context, product *entity.Product) error {
	return translate(r.db.WithContext(ctx).Create(product).Error)
}

// Update 更新物料
func (r *ProductRepository) Update(ctx context.Context, product *entity.Product) error {
	return translate(r.db.WithContext(ctx).Save(product).Error)
}

// Delete 删除物料（订单行项保留快照，不受影响）
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Product{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
