package service

import (
	"context"
	"time"

	"github.com/bitfantasy/procure/internal/purchasing/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Clock 当前时间来源，测试中可替换
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}

// Operator 发起操作的用户
type Operator struct {
	ID   string
	Name string
}

// EventPublisher 推送实时事件（SSE）
type EventPublisher interface {
	Publish(eventType string, payload interface{})
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, interface{}) {}

// logActivity 记录操作日志，失败只打日志
func logActivity(ctx context.Context, repo *repository.ActivityLogRepository, logger *zap.Logger, a repository.Activity) {
	if err := repo.LogActivity(ctx, a); err != nil {
		logger.Warn("write activity log failed",
			zap.String("entity_type", a.EntityType),
			zap.String("entity_id", a.EntityID),
			zap.String("action", a.Action),
			zap.Error(err))
	}
}

// Options 服务层配置
type Options struct {
	Order          OrderOptions
	Notification   NotificationOptions
	Auth           AuthOptions
	DefaultTaxRate decimal.Decimal
}

// Dependencies 外部依赖，nil 表示未启用
type Dependencies struct {
	Logger     *zap.Logger
	Tokens     RefreshTokenStore
	Objects    ObjectStore
	Publisher  EventPublisher
	CardSender CardSender
}

// Services 采购服务集合
type Services struct {
	Auth         *AuthService
	Vendor       *VendorService
	Product      *ProductService
	Order        *OrderService
	Notification *NotificationService
	Attachment   *AttachmentService
	Export       *ExportService
	Dashboard    *DashboardService
}

// NewServices 创建采购服务集合
func NewServices(repos *repository.Repositories, deps Dependencies, opts Options) *Services {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tokens := deps.Tokens
	if tokens == nil {
		tokens = NewMemoryTokenStore()
	}

	orders := NewOrderService(repos, logger, opts.Order)
	notifications := NewNotificationService(repos, orders, logger, opts.Notification)
	if deps.Publisher != nil {
		orders.SetPublisher(deps.Publisher)
		notifications.SetPublisher(deps.Publisher)
	}
	if deps.CardSender != nil {
		notifications.SetCardSender(deps.CardSender)
	}

	return &Services{
		Auth:         NewAuthService(repos.User, tokens, logger, opts.Auth),
		Vendor:       NewVendorService(repos.Vendor, repos.ActivityLog, logger),
		Product:      NewProductService(repos.Product, repos.ActivityLog, logger, opts.DefaultTaxRate),
		Order:        orders,
		Notification: notifications,
		Attachment:   NewAttachmentService(repos, deps.Objects, logger),
		Export:       NewExportService(repos),
		Dashboard:    NewDashboardService(repos),
	}
}

// SetClock 替换所有服务的时间来源
func (s *Services) SetClock(c Clock) {
	s.Order.SetClock(c)
	s.Notification.SetClock(c)
}
