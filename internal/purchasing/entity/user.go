package entity

import "time"

// User 系统用户
type User struct {
	ID           string    `json:"id" gorm:"primaryKey;size:32"`
	Username     string    `json:"username" gorm:"size:64;uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"size:100;not null"`
	FullName     string    `json:"full_name" gorm:"size:100"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "pur_users"
}

// AllModels 需要迁移的全部表
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Vendor{},
		&Product{},
		&PurchaseOrder{},
		&POItem{},
		&ItemReceipt{},
		&POAttachment{},
		&Notification{},
		&ActivityLog{},
	}
}
