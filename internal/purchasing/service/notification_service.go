package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bitfantasy/procure/internal/purchasing/entity"
	"github.com/bitfantasy/procure/internal/purchasing/repository"
	"github.com/bitfantasy/procure/internal/purchasing/sse"
	"github.com/bitfantasy/procure/internal/shared/feishu"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultStaleAfter 下单后多久仍未确认收货视为超期
const DefaultStaleAfter = 10 * 24 * time.Hour

// CardSender 飞书卡片发送
type CardSender interface {
	SendCard(ctx context.Context, chatID string, card feishu.InteractiveCard) error
}

// NotificationOptions 提醒扫描配置
type NotificationOptions struct {
	StaleAfter time.Duration
	ChatID     string // 为空则不推送飞书
	DetailURL  string
}

// NotificationService 超期未收货提醒
type NotificationService struct {
	repo      *repository.NotificationRepository
	poRepo    *repository.PORepository
	orders    *OrderService
	publisher EventPublisher
	sender    CardSender
	logger    *zap.Logger
	clock     Clock
	opts      NotificationOptions
	pushes    sync.WaitGroup
}

func NewNotificationService(repos *repository.Repositories, orders *OrderService, logger *zap.Logger, opts NotificationOptions) *NotificationService {
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = DefaultStaleAfter
	}
	return &NotificationService{
		repo:      repos.Notification,
		poRepo:    repos.PO,
		orders:    orders,
		publisher: nopPublisher{},
		logger:    logger.Named("notification"),
		clock:     systemClock,
		opts:      opts,
	}
}

func (s *NotificationService) SetPublisher(p EventPublisher) {
	s.publisher = p
}

// SetCardSender 注入飞书客户端
func (s *NotificationService) SetCardSender(sender CardSender) {
	s.sender = sender
}

func (s *NotificationService) SetClock(c Clock) {
	s.clock = c
}

func (s *NotificationService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Notification, int64, error) {
	return s.repo.FindAll(ctx, page, pageSize, filters)
}

func (s *NotificationService) UnreadCount(ctx context.Context) (int64, error) {
	return s.repo.CountUnread(ctx)
}

// CheckPendingOrders 为超期未确认收货、且尚无未读提醒的订单生成提醒，返回新建数量。
// 连续执行不会重复生成，直到已有提醒被标记已读。
func (s *NotificationService) CheckPendingOrders(ctx context.Context) (int, error) {
	now := s.clock()
	orders, err := s.poRepo.FindStaleWithoutUnreadNotice(ctx, now.Add(-s.opts.StaleAfter))
	if err != nil {
		return 0, fmt.Errorf("find stale purchase orders: %w", err)
	}
	if len(orders) == 0 {
		return 0, nil
	}

	notifications := make([]entity.Notification, 0, len(orders))
	stale := make([]feishu.StalePO, 0, len(orders))
	for _, po := range orders {
		days := ageInDays(now, po.CreatedAt)
		notifications = append(notifications, entity.Notification{
			ID:       uuid.New().String()[:32],
			POID:     po.ID,
			PONumber: po.PONumber,
			Message: fmt.Sprintf("Purchase order %s to %s was created %d days ago and material receipt has not been confirmed.",
				po.PONumber, po.VendorName, days),
			IsRead:    false,
			CreatedAt: now,
		})
		stale = append(stale, feishu.StalePO{PONumber: po.PONumber, VendorName: po.VendorName, AgeDays: days})
	}

	if err := s.repo.CreateBatch(ctx, notifications); err != nil {
		return 0, fmt.Errorf("create notifications: %w", err)
	}

	s.logger.Info("stale purchase orders flagged", zap.Int("count", len(notifications)))
	for i := range notifications {
		s.publisher.Publish(sse.EventNotificationCreated, notifications[i])
	}
	if s.sender != nil && s.opts.ChatID != "" {
		s.pushes.Add(1)
		go func() {
			defer s.pushes.Done()
			s.pushCard(stale)
		}()
	}
	return len(notifications), nil
}

// pushCard 推送飞书卡片，失败只记录日志
func (s *NotificationService) pushCard(orders []feishu.StalePO) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	card := feishu.NewStalePOCard(orders, s.opts.DetailURL)
	if err := s.sender.SendCard(ctx, s.opts.ChatID, card); err != nil {
		s.logger.Warn("push stale purchase order card failed", zap.Error(err))
	}
}

// WaitPushes 等待后台飞书推送结束，命令行单次扫描退出前调用
func (s *NotificationService) WaitPushes() {
	s.pushes.Wait()
}

// MarkAsRead 标记已读；已读的提醒再次标记直接成功
func (s *NotificationService) MarkAsRead(ctx context.Context, id string) (*entity.Notification, error) {
	if err := s.repo.MarkRead(ctx, id, s.clock()); err != nil {
		return nil, notFoundOr(err, "notification", id)
	}
	n, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "notification", id)
	}
	s.publisher.Publish(sse.EventNotificationRead, map[string]string{"id": n.ID, "po_id": n.POID})
	return n, nil
}

// ConfirmAndResolve 确认订单收货后把提醒标记已读；确认失败时提醒保持未读
func (s *NotificationService) ConfirmAndResolve(ctx context.Context, poID, notificationID string, op Operator) (*entity.PurchaseOrder, error) {
	n, err := s.repo.FindByID(ctx, notificationID)
	if err != nil {
		return nil, notFoundOr(err, "notification", notificationID)
	}
	if n.POID != poID {
		return nil, invalid("po_id", "notification %s does not belong to purchase order %s", notificationID, poID)
	}

	po, err := s.orders.ConfirmMaterialReceipt(ctx, poID, op)
	if err != nil {
		return nil, err
	}
	if _, err := s.MarkAsRead(ctx, notificationID); err != nil {
		return nil, err
	}
	return po, nil
}

func ageInDays(now, createdAt time.Time) int {
	return int(now.Sub(createdAt).Hours() / 24)
}
