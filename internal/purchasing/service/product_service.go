package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bitfantasy/procure/internal/purchasing/entity"
	"github.com/bitfantasy/procure/internal/purchasing/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var hundred = decimal.NewFromInt(100)

// ProductService 物料服务
type ProductService struct {
	repo           *repository.ProductRepository
	logRepo        *repository.ActivityLogRepository
	logger         *zap.Logger
	defaultTaxRate decimal.Decimal
}

func NewProductService(repo *repository.ProductRepository, logRepo *repository.ActivityLogRepository, logger *zap.Logger, defaultTaxRate decimal.Decimal) *ProductService {
	return &ProductService{
		repo:           repo,
		logRepo:        logRepo,
		logger:         logger.Named("product"),
		defaultTaxRate: defaultTaxRate,
	}
}

// ProductRequest 创建/更新物料，tax_rate 为空时使用默认税率
type ProductRequest struct {
	Name          string           `json:"name"`
	SKU           string           `json:"sku"`
	Description   string           `json:"description"`
	UnitPrice     decimal.Decimal  `json:"unit_price"`
	TaxRate       *decimal.Decimal `json:"tax_rate"`
	UnitOfMeasure string           `json:"unit_of_measure"`
}

func (r *ProductRequest) normalize(defaultTaxRate decimal.Decimal) error {
	r.Name = strings.TrimSpace(r.Name)
	r.SKU = strings.TrimSpace(r.SKU)
	if r.Name == "" {
		return invalid("name", "is required")
	}
	if r.SKU == "" {
		return invalid("sku", "is required")
	}
	if r.UnitPrice.IsNegative() {
		return invalid("unit_price", "must not be negative")
	}
	if r.TaxRate == nil {
		r.TaxRate = &defaultTaxRate
	}
	if err := validateTaxRate("tax_rate", *r.TaxRate); err != nil {
		return err
	}
	if r.UnitOfMeasure == "" {
		r.UnitOfMeasure = "pcs"
	}
	return nil
}

func validateTaxRate(field string, rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(hundred) {
		return invalid(field, "must be between 0 and 100")
	}
	return nil
}

func duplicateSKU(err error, sku string) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return &ConflictError{Message: "sku " + sku + " already exists"}
	}
	return err
}

func (s *ProductService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Product, int64, error) {
	return s.repo.FindAll(ctx, page, pageSize, filters)
}

func (s *ProductService) Get(ctx context.Context, id string) (*entity.Product, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "product", id)
	}
	return p, nil
}

// Create 创建物料
func (s *ProductService) Create(ctx context.Context, req *ProductRequest, op Operator) (*entity.Product, error) {
	if err := req.normalize(s.defaultTaxRate); err != nil {
		return nil, err
	}
	product := &entity.Product{
		ID:            uuid.New().String()[:32],
		Name:          req.Name,
		SKU:           req.SKU,
		Description:   req.Description,
		UnitPrice:     req.UnitPrice,
		TaxRate:       *req.TaxRate,
		UnitOfMeasure: req.UnitOfMeasure,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, duplicateSKU(err, req.SKU)
	}
	logActivity(ctx, s.logRepo, s.logger, repository.Activity{
		EntityType: entity.EntityTypeProduct, EntityID: product.ID, EntityCode: product.SKU,
		Action: entity.ActionCreate, OperatorID: op.ID, OperatorName: op.Name,
	})
	return product, nil
}

// Update 更新物料主数据，历史订单行项的快照不受影响
func (s *ProductService) Update(ctx context.Context, id string, req *ProductRequest, op Operator) (*entity.Product, error) {
	if err := req.normalize(s.defaultTaxRate); err != nil {
		return nil, err
	}
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "product", id)
	}
	product.Name = req.Name
	product.SKU = req.SKU
	product.Description = req.Description
	product.UnitPrice = req.UnitPrice
	product.TaxRate = *req.TaxRate
	product.UnitOfMeasure = req.UnitOfMeasure
	if err := s.repo.Update(ctx, product); err != nil {
		return nil, duplicateSKU(err, req.SKU)
	}
	logActivity(ctx, s.logRepo, s.logger, repository.Activity{
		EntityType: entity.EntityTypeProduct, EntityID: product.ID, EntityCode: product.SKU,
		Action: entity.ActionUpdate, OperatorID: op.ID, OperatorName: op.Name,
		Metadata: map[string]interface{}{
			"unit_price": product.UnitPrice.String(),
			"tax_rate":   product.TaxRate.String(),
		},
	})
	return product, nil
}

func (s *ProductService) Delete(ctx context.Context, id string, op Operator) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOr(err, "product", id)
	}
	logActivity(ctx, s.logRepo, s.logger, repository.Activity{
		EntityType: entity.EntityTypeProduct, EntityID: id,
		Action: entity.ActionDelete, OperatorID: op.ID, OperatorName: op.Name,
	})
	return nil
}
