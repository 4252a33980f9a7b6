package entity

import "time"

// Notification 收货待确认提醒
type Notification struct {
	ID        string     `json:"id" gorm:"primaryKey;size:32"`
	POID      string     `json:"po_id" gorm:"size:32;not null;index:idx_notification_po_read"`
	PONumber  string     `json:"po_number" gorm:"size:32"`
	Message   string     `json:"message" gorm:"type:text;not null"`
	IsRead    bool       `json:"is_read" gorm:"default:false;index:idx_notification_po_read"`
	ReadAt    *time.Time `json:"read_at"`
	CreatedAt time.Time  `json:"created_at"`
}

func (Notification) TableName() string {
	return "pur_notifications"
}
