package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PurchaseOrder 采购订单
type PurchaseOrder struct {
	ID       string `json:"id" gorm:"primaryKey;size:32"`
	PONumber string `json:"po_number" gorm:"size:32;uniqueIndex;not null"`

	// 供应商快照
	VendorID   string `json:"vendor_id" gorm:"size:32;not null;index"`
	VendorName string `json:"vendor_name" gorm:"size:200"`

	// 交付与付款
	DeliveryDate        datatypes.Date `json:"delivery_date"`
	PaymentTerms        string         `json:"payment_terms" gorm:"size:32;not null"`
	ShippingAddress     string         `json:"shipping_address" gorm:"size:500"`
	Notes               string         `json:"notes" gorm:"type:text"`
	AuthorizedSignatory string         `json:"authorized_signatory" gorm:"size:100"`

	// 金额（由行项推导）
	Subtotal decimal.Decimal `json:"subtotal" gorm:"type:numeric;not null;default:0"`
	Tax      decimal.Decimal `json:"tax" gorm:"type:numeric;not null;default:0"`
	Total    decimal.Decimal `json:"total" gorm:"type:numeric;not null;default:0"`

	// 状态与收货，两者互相独立
	Status               string     `json:"status" gorm:"size:20;default:draft;index"` // draft/sent/received/cancelled
	MaterialReceived     bool       `json:"material_received" gorm:"default:false;index"`
	MaterialReceivedDate *time.Time `json:"material_received_date"`

	CreatedBy string    `json:"created_by" gorm:"size:100"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at"`

	Items []POItem `json:"items" gorm:"foreignKey:POID"`
}

func (PurchaseOrder) TableName() string {
	return "pur_purchase_orders"
}

// PO状态
const (
	POStatusDraft     = "draft"
	POStatusSent      = "sent"
	POStatusReceived  = "received"
	POStatusCancelled = "cancelled"
)

// ValidPOStatuses 可设置的状态，状态之间无迁移约束
var ValidPOStatuses = map[string]bool{
	POStatusDraft:     true,
	POStatusSent:      true,
	POStatusReceived:  true,
	POStatusCancelled: true,
}

// 付款条件
const (
	PaymentNet30        = "Net 30"
	PaymentNet60        = "Net 60"
	PaymentNet90        = "Net 90"
	PaymentDueOnReceipt = "Due on Receipt"
	PaymentCOD          = "COD"
)

var ValidPaymentTerms = map[string]bool{
	PaymentNet30:        true,
	PaymentNet60:        true,
	PaymentNet90:        true,
	PaymentDueOnReceipt: true,
	PaymentCOD:          true,
}

// ProductSnapshot 下单时的物料快照，之后物料主数据变更不影响历史订单
type ProductSnapshot struct {
	ProductID     string          `json:"product_id" gorm:"size:32;index"`
	ProductName   string          `json:"product_name" gorm:"size:200;not null"`
	SKU           string          `json:"sku" gorm:"size:64"`
	UnitOfMeasure string          `json:"unit_of_measure" gorm:"size:20"`
	UnitPrice     decimal.Decimal `json:"unit_price" gorm:"type:numeric;not null"`
	TaxRate       decimal.Decimal `json:"tax_rate" gorm:"type:numeric;not null"`
}

// POItem PO行项
type POItem struct {
	ID        string `json:"id" gorm:"primaryKey;size:32"`
	POID      string `json:"po_id" gorm:"size:32;not null;index"`
	SortOrder int    `json:"sort_order" gorm:"not null;default:0"`

	ProductSnapshot

	Quantity  decimal.Decimal `json:"quantity" gorm:"type:numeric;not null"`
	TaxAmount decimal.Decimal `json:"tax_amount" gorm:"type:numeric;not null;default:0"`
	Total     decimal.Decimal `json:"total" gorm:"type:numeric;not null;default:0"`

	// 收货
	QuantityReceived decimal.Decimal `json:"quantity_received" gorm:"type:numeric;not null;default:0"`
	PendingQuantity  decimal.Decimal `json:"pending_quantity" gorm:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (POItem) TableName() string {
	return "pur_po_items"
}

// RefreshPending 重新计算待收数量
func (i *POItem) RefreshPending() {
	i.PendingQuantity = i.Quantity.Sub(i.QuantityReceived)
}

// FullyReceived 行项是否已全部收货
func (i *POItem) FullyReceived() bool {
	return i.QuantityReceived.GreaterThanOrEqual(i.Quantity)
}

func (i *POItem) AfterFind(tx *gorm.DB) error {
	i.RefreshPending()
	return nil
}

// ItemReceipt 行项收货记录
type ItemReceipt struct {
	ID               string          `json:"id" gorm:"primaryKey;size:32"`
	POID             string          `json:"po_id" gorm:"size:32;not null;index"`
	ItemID           string          `json:"item_id" gorm:"size:32;not null;index"`
	ItemIndex        int             `json:"item_index"`
	QuantityReceived decimal.Decimal `json:"quantity_received" gorm:"type:numeric;not null"`
	ReceivedBy       string          `json:"received_by" gorm:"size:100;not null"`
	Notes            string          `json:"notes" gorm:"type:text"`
	ReceivedAt       time.Time       `json:"received_at"`
}

func (ItemReceipt) TableName() string {
	return "pur_item_receipts"
}

// POAttachment 采购订单附件（对象存储）
type POAttachment struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	POID        string    `json:"po_id" gorm:"size:32;not null;index"`
	FileName    string    `json:"file_name" gorm:"size:255;not null"`
	ObjectKey   string    `json:"object_key" gorm:"size:500;not null"`
	ContentType string    `json:"content_type" gorm:"size:100"`
	Size        int64     `json:"size"`
	UploadedBy  string    `json:"uploaded_by" gorm:"size:100"`
	CreatedAt   time.Time `json:"created_at"`
}

func (POAttachment) TableName() string {
	return "pur_po_attachments"
}
