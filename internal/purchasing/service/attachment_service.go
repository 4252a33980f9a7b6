package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/bitfantasy/procure/internal/purchasing/entity"
	"github.com/bitfantasy/procure/internal/purchasing/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxAttachmentSize 单个附件上限
const MaxAttachmentSize = 20 << 20

// ErrStorageNotConfigured 未配置对象存储
var ErrStorageNotConfigured = errors.New("object storage is not configured")

// ObjectStore 对象存储
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}

// AttachmentService 订单附件（报价单、送货单扫描件等）
type AttachmentService struct {
	repo    *repository.AttachmentRepository
	poRepo  *repository.PORepository
	logRepo *repository.ActivityLogRepository
	store   ObjectStore
	logger  *zap.Logger
}

// NewAttachmentService store 为nil时上传下载返回 ErrStorageNotConfigured
func NewAttachmentService(repos *repository.Repositories, store ObjectStore, logger *zap.Logger) *AttachmentService {
	return &AttachmentService{
		repo:    repos.Attachment,
		poRepo:  repos.PO,
		logRepo: repos.ActivityLog,
		store:   store,
		logger:  logger.Named("attachment"),
	}
}

// UploadRequest 上传附件
type UploadRequest struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

func (s *AttachmentService) List(ctx context.Context, poID string) ([]entity.POAttachment, error) {
	if _, err := s.poRepo.FindByID(ctx, poID); err != nil {
		return nil, notFoundOr(err, "purchase order", poID)
	}
	return s.repo.FindByPO(ctx, poID)
}

// Upload 上传附件到对象存储并记录
func (s *AttachmentService) Upload(ctx context.Context, poID string, req *UploadRequest, op Operator) (*entity.POAttachment, error) {
	if s.store == nil {
		return nil, ErrStorageNotConfigured
	}
	name := filepath.Base(strings.TrimSpace(req.FileName))
	if name == "" || name == "." || name == "/" {
		return nil, invalid("file", "file name is required")
	}
	if req.Size <= 0 {
		return nil, invalid("file", "file is empty")
	}
	if req.Size > MaxAttachmentSize {
		return nil, invalid("file", "must not exceed %d MB", MaxAttachmentSize>>20)
	}

	po, err := s.poRepo.FindByID(ctx, poID)
	if err != nil {
		return nil, notFoundOr(err, "purchase order", poID)
	}

	id := uuid.New().String()[:32]
	key := fmt.Sprintf("purchase-orders/%s/%s%s", po.ID, id, strings.ToLower(filepath.Ext(name)))
	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := s.store.Put(ctx, key, req.Body, req.Size, contentType); err != nil {
		return nil, err
	}

	att := &entity.POAttachment{
		ID:          id,
		POID:        po.ID,
		FileName:    name,
		ObjectKey:   key,
		ContentType: contentType,
		Size:        req.Size,
		UploadedBy:  op.Name,
	}
	if err := s.repo.Create(ctx, att); err != nil {
		// 记录失败时清理已上传对象
		if rmErr := s.store.Remove(ctx, key); rmErr != nil {
			s.logger.Warn("remove orphan object failed", zap.String("key", key), zap.Error(rmErr))
		}
		return nil, err
	}

	logActivity(ctx, s.logRepo, s.logger, repository.Activity{
		EntityType: entity.EntityTypePO, EntityID: po.ID, EntityCode: po.PONumber,
		Action: entity.ActionAttach, Content: "attached " + name,
		OperatorID: op.ID, OperatorName: op.Name,
	})
	return att, nil
}

// Open 读取附件内容，调用方负责关闭
func (s *AttachmentService) Open(ctx context.Context, poID, attachmentID string) (io.ReadCloser, *entity.POAttachment, error) {
	if s.store == nil {
		return nil, nil, ErrStorageNotConfigured
	}
	att, err := s.repo.FindByID(ctx, attachmentID)
	if err != nil {
		return nil, nil, notFoundOr(err, "attachment", attachmentID)
	}
	if att.POID != poID {
		return nil, nil, &NotFoundError{Entity: "attachment", ID: attachmentID}
	}
	body, err := s.store.Get(ctx, att.ObjectKey)
	if err != nil {
		return nil, nil, err
	}
	return body, att, nil
}

// RemoveObjects 删除订单后清理对象存储中的文件，失败只记录日志
func (s *AttachmentService) RemoveObjects(ctx context.Context, attachments []entity.POAttachment) {
	if s.store == nil {
		return
	}
	for _, att := range attachments {
		if err := s.store.Remove(ctx, att.ObjectKey); err != nil {
			s.logger.Warn("remove attachment object failed", zap.String("key", att.ObjectKey), zap.Error(err))
		}
	}
}
