package entity

import (
	"time"

	"gorm.io/datatypes"
)

// ActivityLog 操作日志
type ActivityLog struct {
	ID         string `json:"id" gorm:"primaryKey;size:32"`
	EntityType string `json:"entity_type" gorm:"size:50;not null;index:idx_activity_entity"` // po/vendor/product/notification
	EntityID   string `json:"entity_id" gorm:"size:32;not null;index:idx_activity_entity"`
	EntityCode string `json:"entity_code" gorm:"size:50"`

	Action     string `json:"action" gorm:"size:50;not null"` // create/update/status_change/confirm_receipt/item_receipt/delete
	FromStatus string `json:"from_status" gorm:"size:20"`
	ToStatus   string `json:"to_status" gorm:"size:20"`

	Content  string         `json:"content" gorm:"type:text"`
	Metadata datatypes.JSON `json:"metadata"`

	OperatorID   string    `json:"operator_id" gorm:"size:32"`
	OperatorName string    `json:"operator_name" gorm:"size:100"`
	CreatedAt    time.Time `json:"created_at"`
}

func (ActivityLog) TableName() string {
	return "pur_activity_logs"
}

// 日志实体类型
const (
	EntityTypePO           = "po"
	EntityTypeVendor       = "vendor"
	EntityTypeProduct      = "product"
	EntityTypeNotification = "notification"
)

// 日志动作
const (
	ActionCreate         = "create"
	ActionUpdate         = "update"
	ActionDelete         = "delete"
	ActionStatusChange   = "status_change"
	ActionConfirmReceipt = "confirm_receipt"
	ActionItemReceipt    = "item_receipt"
	ActionAttach         = "attach"
)
