package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bitfantasy/procure/internal/purchasing/entity"
	"github.com/bitfantasy/procure/internal/purchasing/pricing"
	"github.com/bitfantasy/procure/internal/purchasing/repository"
	"github.com/bitfantasy/procure/internal/purchasing/sse"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// DateLayout delivery_date 的格式
const DateLayout = "2006-01-02"

// OrderOptions 订单服务的可配置行为
type OrderOptions struct {
	// AutoConfirmFullReceipt 所有行项收齐时自动确认整单收货
	AutoConfirmFullReceipt bool
}

// OrderService 采购订单服务：增删改查、定价和收货生命周期
type OrderService struct {
	poRepo      *repository.PORepository
	vendorRepo  *repository.VendorRepository
	productRepo *repository.ProductRepository
	logRepo     *repository.ActivityLogRepository
	publisher   EventPublisher
	logger      *zap.Logger
	clock       Clock
	opts        OrderOptions
}

func NewOrderService(repos *repository.Repositories, logger *zap.Logger, opts OrderOptions) *OrderService {
	return &OrderService{
		poRepo:      repos.PO,
		vendorRepo:  repos.Vendor,
		productRepo: repos.Product,
		logRepo:     repos.ActivityLog,
		publisher:   nopPublisher{},
		logger:      logger.Named("order"),
		clock:       systemClock,
		opts:        opts,
	}
}

// SetPublisher 注入实时事件推送
func (s *OrderService) SetPublisher(p EventPublisher) {
	s.publisher = p
}

// SetClock 替换时间来源
func (s *OrderService) SetClock(c Clock) {
	s.clock = c
}

// === 请求结构 ===

// OrderItemRequest 订单行项；unit_price/tax_rate 为空时取物料主数据
type OrderItemRequest struct {
	ProductID string           `json:"product_id"`
	Quantity  decimal.Decimal  `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
	TaxRate   *decimal.Decimal `json:"tax_rate"`
}

// OrderRequest 创建/更新采购订单（整体替换行项）
type OrderRequest struct {
	VendorID            string             `json:"vendor_id"`
	DeliveryDate        string             `json:"delivery_date"`
	PaymentTerms        string             `json:"payment_terms"`
	ShippingAddress     string             `json:"shipping_address"`
	Notes               string             `json:"notes"`
	AuthorizedSignatory string             `json:"authorized_signatory"`
	Items               []OrderItemRequest `json:"items"`
}

// StatusRequest 修改订单状态
type StatusRequest struct {
	Status string `json:"status"`
}

// ItemReceiptRequest 行项收货
type ItemReceiptRequest struct {
	ItemIndex        int             `json:"item_index"`
	QuantityReceived decimal.Decimal `json:"quantity_received"`
	ReceivedBy       string          `json:"received_by"`
	Notes            string          `json:"notes"`
}

func (r *OrderRequest) validate() (datatypes.Date, error) {
	if strings.TrimSpace(r.VendorID) == "" {
		return datatypes.Date{}, invalid("vendor_id", "is required")
	}
	if !entity.ValidPaymentTerms[r.PaymentTerms] {
		return datatypes.Date{}, invalid("payment_terms", "must be one of Net 30, Net 60, Net 90, Due on Receipt, COD")
	}
	delivery, err := time.Parse(DateLayout, strings.TrimSpace(r.DeliveryDate))
	if err != nil {
		return datatypes.Date{}, invalid("delivery_date", "must be a date in YYYY-MM-DD format")
	}
	if len(r.Items) == 0 {
		return datatypes.Date{}, invalid("items", "at least one item is required")
	}
	for i, item := range r.Items {
		field := fmt.Sprintf("items[%d]", i)
		if strings.TrimSpace(item.ProductID) == "" {
			return datatypes.Date{}, invalid(field+".product_id", "is required")
		}
		if !item.Quantity.IsPositive() {
			return datatypes.Date{}, invalid(field+".quantity", "must be greater than 0")
		}
		if item.UnitPrice != nil && item.UnitPrice.IsNegative() {
			return datatypes.Date{}, invalid(field+".unit_price", "must not be negative")
		}
		if item.TaxRate != nil {
			if err := validateTaxRate(field+".tax_rate", *item.TaxRate); err != nil {
				return datatypes.Date{}, err
			}
		}
	}
	return datatypes.Date(delivery), nil
}

// === 查询 ===

func (s *OrderService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.PurchaseOrder, int64, error) {
	return s.poRepo.FindAll(ctx, page, pageSize, filters)
}

func (s *OrderService) Get(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	po, err := s.poRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "purchase order", id)
	}
	return po, nil
}

// ListReceipts 订单收货记录
func (s *OrderService) ListReceipts(ctx context.Context, id string) ([]entity.ItemReceipt, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.poRepo.FindReceipts(ctx, id)
}

// ListActivities 订单操作日志
func (s *OrderService) ListActivities(ctx context.Context, id string, page, pageSize int) ([]entity.ActivityLog, int64, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, 0, err
	}
	return s.logRepo.FindByEntity(ctx, entity.EntityTypePO, id, page, pageSize)
}

// === 创建与修改 ===

// buildItems 复制物料快照，应用请求中的价格覆盖并计算金额
func (s *OrderService) buildItems(ctx context.Context, poID string, reqItems []OrderItemRequest) ([]entity.POItem, pricing.Totals, error) {
	ids := make([]string, 0, len(reqItems))
	for _, item := range reqItems {
		ids = append(ids, item.ProductID)
	}
	products, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pricing.Totals{}, err
	}

	items := make([]entity.POItem, 0, len(reqItems))
	lines := make([]pricing.Line, 0, len(reqItems))
	for i, req := range reqItems {
		product, ok := products[req.ProductID]
		if !ok {
			return nil, pricing.Totals{}, &NotFoundError{Entity: "product", ID: req.ProductID}
		}
		snapshot := product.Snapshot()
		if req.UnitPrice != nil {
			snapshot.UnitPrice = *req.UnitPrice
		}
		if req.TaxRate != nil {
			snapshot.TaxRate = *req.TaxRate
		}

		line := pricing.Line{Quantity: req.Quantity, UnitPrice: snapshot.UnitPrice, TaxRate: snapshot.TaxRate}
		amounts := line.Compute()
		lines = append(lines, line)

		item := entity.POItem{
			ID:               uuid.New().String()[:32],
			POID:             poID,
			SortOrder:        i + 1,
			ProductSnapshot:  snapshot,
			Quantity:         req.Quantity,
			TaxAmount:        amounts.TaxAmount,
			Total:            amounts.Total,
			QuantityReceived: decimal.Zero,
		}
		item.RefreshPending()
		items = append(items, item)
	}
	return items, pricing.ComputeTotals(lines), nil
}

// Create 创建采购订单，状态为草稿
func (s *OrderService) Create(ctx context.Context, req *OrderRequest, op Operator) (*entity.PurchaseOrder, error) {
	delivery, err := req.validate()
	if err != nil {
		return nil, err
	}
	vendor, err := s.vendorRepo.FindByID(ctx, req.VendorID)
	if err != nil {
		return nil, notFoundOr(err, "vendor", req.VendorID)
	}

	now := s.clock()
	po := &entity.PurchaseOrder{
		ID:                  uuid.New().String()[:32],
		VendorID:            vendor.ID,
		VendorName:          vendor.Name,
		DeliveryDate:        delivery,
		PaymentTerms:        req.PaymentTerms,
		ShippingAddress:     req.ShippingAddress,
		Notes:               req.Notes,
		AuthorizedSignatory: req.AuthorizedSignatory,
		Status:              entity.POStatusDraft,
		CreatedBy:           op.Name,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	items, totals, err := s.buildItems(ctx, po.ID, req.Items)
	if err != nil {
		return nil, err
	}
	po.Items = items
	po.Subtotal, po.Tax, po.Total = totals.Subtotal, totals.Tax, totals.Total

	po.PONumber, err = s.poRepo.GenerateNumber(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("generate po number: %w", err)
	}
	if err := s.poRepo.Create(ctx, po); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, &ConflictError{Message: "po number " + po.PONumber + " already exists, please retry"}
		}
		return nil, err
	}

	logActivity(ctx, s.logRepo, s.logger, repository.Activity{
		EntityType: entity.EntityTypePO, EntityID: po.ID, EntityCode: po.PONumber,
		Action: entity.ActionCreate, ToStatus: po.Status,
		Content:    fmt.Sprintf("created %s for %s, total %s", po.PONumber, po.VendorName, pricing.FormatAmount(po.Total)),
		OperatorID: op.ID, OperatorName: op.Name,
	})
	s.logger.Info("purchase order created",
		zap.String("po_number", po.PONumber),
		zap.String("vendor", po.VendorName),
		zap.Int("items", len(po.Items)),
		zap.String("total", po.Total.String()))
	s.publish(po.ID, entity.ActionCreate)
	return po, nil
}

// Update 替换订单头和全部行项并重新计算金额。
// 新旧行项按物料配对（同一物料多行时按顺序），配对的行项沿用原ID和已收数量，
// 数量不得小于已收；已有收货的行项不能被删除。
func (s *OrderService) Update(ctx context.Context, id string, req *OrderRequest, op Operator) (*entity.PurchaseOrder, error) {
	delivery, err := req.validate()
	if err != nil {
		return nil, err
	}
	po, err := s.poRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "purchase order", id)
	}
	if po.VendorID != req.VendorID {
		vendor, err := s.vendorRepo.FindByID(ctx, req.VendorID)
		if err != nil {
			return nil, notFoundOr(err, "vendor", req.VendorID)
		}
		po.VendorID, po.VendorName = vendor.ID, vendor.Name
	}

	items, totals, err := s.buildItems(ctx, po.ID, req.Items)
	if err != nil {
		return nil, err
	}
	if err := carryOverReceived(po.Items, items); err != nil {
		return nil, err
	}

	po.DeliveryDate = delivery
	po.PaymentTerms = req.PaymentTerms
	po.ShippingAddress = req.ShippingAddress
	po.Notes = req.Notes
	po.AuthorizedSignatory = req.AuthorizedSignatory
	po.Items = items
	po.Subtotal, po.Tax, po.Total = totals.Subtotal, totals.Tax, totals.Total
	po.UpdatedAt = s.clock()

	if err := s.poRepo.ReplaceWithItems(ctx, po); err != nil {
		return nil, err
	}

	logActivity(ctx, s.logRepo, s.logger, repository.Activity{
		EntityType: entity.EntityTypePO, EntityID: po.ID, EntityCode: po.PONumber,
		Action:     entity.ActionUpdate,
		Content:    fmt.Sprintf("updated %s, total %s", po.PONumber, pricing.FormatAmount(po.Total)),
		OperatorID: op.ID, OperatorName: op.Name,
	})
	s.publish(po.ID, entity.ActionUpdate)
	return po, nil
}

// carryOverReceived 把旧行项的ID和已收数量带到按物料配对的新行项上
func carryOverReceived(oldItems, newItems []entity.POItem) error {
	byProduct := make(map[string][]int, len(oldItems))
	for i, old := range oldItems {
		byProduct[old.ProductID] = append(byProduct[old.ProductID], i)
	}
	matched := make([]bool, len(oldItems))
	for i := range newItems {
		queue := byProduct[newItems[i].ProductID]
		if len(queue) == 0 {
			continue
		}
		byProduct[newItems[i].ProductID] = queue[1:]
		old := oldItems[queue[0]]
		matched[queue[0]] = true
		if newItems[i].Quantity.LessThan(old.QuantityReceived) {
			return invalid(fmt.Sprintf("items[%d].quantity", i),
				"must not be less than the %s already received", old.QuantityReceived.String())
		}
		newItems[i].ID = old.ID
		newItems[i].CreatedAt = old.CreatedAt
		newItems[i].QuantityReceived = old.QuantityReceived
		newItems[i].RefreshPending()
	}
	for i, old := range oldItems {
		if !matched[i] && old.QuantityReceived.IsPositive() {
			return invalid("items", "cannot remove %s, %s already received", old.ProductName, old.QuantityReceived.String())
		}
	}
	return nil
}

// Delete 删除订单及其关联数据
func (s *OrderService) Delete(ctx context.Context, id string, op Operator) error {
	po, err := s.poRepo.FindByID(ctx, id)
	if err != nil {
		return notFoundOr(err, "purchase order", id)
	}
	if err := s.poRepo.Delete(ctx, id); err != nil {
		return notFoundOr(err, "purchase order", id)
	}
	logActivity(ctx, s.logRepo, s.logger, repository.Activity{
		EntityType: entity.EntityTypePO, EntityID: id, EntityCode: po.PONumber,
		Action: entity.ActionDelete, OperatorID: op.ID, OperatorName: op.Name,
	})
	s.publish(id, entity.ActionDelete)
	return nil
}

// === 生命周期 ===

// SetStatus 直接覆盖状态，任意状态之间均可切换，不影响收货标记
func (s *OrderService) SetStatus(ctx context.Context, id, status string, op Operator) (*entity.PurchaseOrder, error) {
	if !entity.ValidPOStatuses[status] {
		return nil, invalid("status", "must be one of draft, sent, received, cancelled")
	}
	po, err := s.poRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "purchase order", id)
	}
	from := po.Status
	now := s.clock()
	if err := s.poRepo.UpdateStatus(ctx, id, status, now); err != nil {
		return nil, notFoundOr(err, "purchase order", id)
	}
	po.Status = status
	po.UpdatedAt = now

	logActivity(ctx, s.logRepo, s.logger, repository.Activity{
		EntityType: entity.EntityTypePO, EntityID: po.ID, EntityCode: po.PONumber,
		Action: entity.ActionStatusChange, FromStatus: from, ToStatus: status,
		OperatorID: op.ID, OperatorName: op.Name,
	})
	s.logger.Info("purchase order status changed",
		zap.String("po_number", po.PONumber),
		zap.String("from", from),
		zap.String("to", status))
	s.publish(po.ID, entity.ActionStatusChange)
	return po, nil
}

// ConfirmMaterialReceipt 确认整单收货；已确认过的订单返回 ConflictError
func (s *OrderService) ConfirmMaterialReceipt(ctx context.Context, id string, op Operator) (*entity.PurchaseOrder, error) {
	po, err := s.poRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "purchase order", id)
	}
	if po.MaterialReceived {
		return nil, &ConflictError{Message: fmt.Sprintf("material receipt for %s is already confirmed", po.PONumber)}
	}

	now := s.clock()
	updated, err := s.poRepo.MarkMaterialReceived(ctx, id, now)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, &ConflictError{Message: fmt.Sprintf("material receipt for %s is already confirmed", po.PONumber)}
	}
	po.MaterialReceived = true
	po.MaterialReceivedDate = &now
	po.UpdatedAt = now

	logActivity(ctx, s.logRepo, s.logger, repository.Activity{
		EntityType: entity.EntityTypePO, EntityID: po.ID, EntityCode: po.PONumber,
		Action: entity.ActionConfirmReceipt, OperatorID: op.ID, OperatorName: op.Name,
	})
	s.logger.Info("material receipt confirmed", zap.String("po_number", po.PONumber), zap.String("operator", op.Name))
	s.publish(po.ID, entity.ActionConfirmReceipt)
	return po, nil
}

// RecordItemReceipt 记录行项收货，累计收货数量不得超过订购数量
func (s *OrderService) RecordItemReceipt(ctx context.Context, id string, req *ItemReceiptRequest, op Operator) (*entity.PurchaseOrder, error) {
	if !req.QuantityReceived.IsPositive() {
		return nil, invalid("quantity_received", "must be greater than 0")
	}
	receivedBy := strings.TrimSpace(req.ReceivedBy)
	if receivedBy == "" {
		return nil, invalid("received_by", "is required")
	}

	po, err := s.poRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "purchase order", id)
	}
	if req.ItemIndex < 0 || req.ItemIndex >= len(po.Items) {
		return nil, invalid("item_index", "must be between 0 and %d", len(po.Items)-1)
	}

	item := &po.Items[req.ItemIndex]
	newReceived := item.QuantityReceived.Add(req.QuantityReceived)
	if newReceived.GreaterThan(item.Quantity) {
		return nil, invalid("quantity_received", "would exceed ordered quantity, only %s pending", item.PendingQuantity.String())
	}

	now := s.clock()
	item.QuantityReceived = newReceived
	item.RefreshPending()

	markOrder := false
	if s.opts.AutoConfirmFullReceipt && !po.MaterialReceived {
		markOrder = true
		for i := range po.Items {
			if !po.Items[i].FullyReceived() {
				markOrder = false
				break
			}
		}
	}

	receipt := &entity.ItemReceipt{
		ID:               uuid.New().String()[:32],
		POID:             po.ID,
		ItemID:           item.ID,
		ItemIndex:        req.ItemIndex,
		QuantityReceived: req.QuantityReceived,
		ReceivedBy:       receivedBy,
		Notes:            req.Notes,
		ReceivedAt:       now,
	}
	if err := s.poRepo.RecordItemReceipt(ctx, receipt, newReceived, markOrder); err != nil {
		return nil, err
	}
	if markOrder {
		po.MaterialReceived = true
		po.MaterialReceivedDate = &now
	}

	logActivity(ctx, s.logRepo, s.logger, repository.Activity{
		EntityType: entity.EntityTypePO, EntityID: po.ID, EntityCode: po.PONumber,
		Action:  entity.ActionItemReceipt,
		Content: fmt.Sprintf("received %s x %s", req.QuantityReceived.String(), item.ProductName),
		Metadata: map[string]interface{}{
			"item_index":        req.ItemIndex,
			"quantity_received": req.QuantityReceived.String(),
			"received_by":       receivedBy,
			"auto_confirmed":    markOrder,
		},
		OperatorID: op.ID, OperatorName: op.Name,
	})
	s.publish(po.ID, entity.ActionItemReceipt)
	return po, nil
}

func (s *OrderService) publish(poID, action string) {
	s.publisher.Publish(sse.EventPOUpdate, map[string]string{
		"po_id":  poID,
		"action": action,
	})
}
