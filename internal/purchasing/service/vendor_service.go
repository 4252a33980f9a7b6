package service

import (
	"context"
	"net/mail"
	"strings"

	"github.com/bitfantasy/procure/internal/purchasing/entity"
	"github.com/bitfantasy/procure/internal/purchasing/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// VendorService 供应商服务
type VendorService struct {
	repo    *repository.VendorRepository
	logRepo *repository.ActivityLogRepository
	logger  *zap.Logger
}

func NewVendorService(repo *repository.VendorRepository, logRepo *repository.ActivityLogRepository, logger *zap.Logger) *VendorService {
	return &VendorService{repo: repo, logRepo: logRepo, logger: logger.Named("vendor")}
}

// VendorRequest 创建/更新供应商（整体替换）
type VendorRequest struct {
	Name          string `json:"name"`
	ContactPerson string `json:"contact_person"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
}

func (r *VendorRequest) normalize() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	if r.Name == "" {
		return invalid("name", "is required")
	}
	if r.Email != "" {
		if _, err := mail.ParseAddress(r.Email); err != nil {
			return invalid("email", "is not a valid address")
		}
	}
	return nil
}

func (s *VendorService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Vendor, int64, error) {
	return s.repo.FindAll(ctx, page, pageSize, filters)
}

func (s *VendorService) Get(ctx context.Context, id string) (*entity.Vendor, error) {
	v, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "vendor", id)
	}
	return v, nil
}

// Create 创建供应商
func (s *VendorService) Create(ctx context.Context, req *VendorRequest, op Operator) (*entity.Vendor, error) {
	if err := req.normalize(); err != nil {
		return nil, err
	}
	vendor := &entity.Vendor{
		ID:            uuid.New().String()[:32],
		Name:          req.Name,
		ContactPerson: req.ContactPerson,
		Email:         req.Email,
		Phone:         req.Phone,
		Address:       req.Address,
	}
	if err := s.repo.Create(ctx, vendor); err != nil {
		return nil, err
	}
	logActivity(ctx, s.logRepo, s.logger, repository.Activity{
		EntityType: entity.EntityTypeVendor, EntityID: vendor.ID, EntityCode: vendor.Name,
		Action: entity.ActionCreate, Content: "created vendor " + vendor.Name,
		OperatorID: op.ID, OperatorName: op.Name,
	})
	return vendor, nil
}

// Update 更新供应商，已有订单上的供应商名称快照不变
func (s *VendorService) Update(ctx context.Context, id string, req *VendorRequest, op Operator) (*entity.Vendor, error) {
	if err := req.normalize(); err != nil {
		return nil, err
	}
	vendor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "vendor", id)
	}
	vendor.Name = req.Name
	vendor.ContactPerson = req.ContactPerson
	vendor.Email = req.Email
	vendor.Phone = req.Phone
	vendor.Address = req.Address
	if err := s.repo.Update(ctx, vendor); err != nil {
		return nil, err
	}
	logActivity(ctx, s.logRepo, s.logger, repository.Activity{
		EntityType: entity.EntityTypeVendor, EntityID: vendor.ID, EntityCode: vendor.Name,
		Action: entity.ActionUpdate, OperatorID: op.ID, OperatorName: op.Name,
	})
	return vendor, nil
}

func (s *VendorService) Delete(ctx context.Context, id string, op Operator) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOr(err, "vendor", id)
	}
	logActivity(ctx, s.logRepo, s.logger, repository.Activity{
		EntityType: entity.EntityTypeVendor, EntityID: id,
		Action: entity.ActionDelete, OperatorID: op.ID, OperatorName: op.Name,
	})
	return nil
}
