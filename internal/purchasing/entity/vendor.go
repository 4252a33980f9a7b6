package entity

import "time"

// Vendor 供应商
type Vendor struct {
	ID            string    `json:"id" gorm:"primaryKey;size:32"`
	Name          string    `json:"name" gorm:"size:200;not null"`
	ContactPerson string    `json:"contact_person" gorm:"size:100"`
	Email         string    `json:"email" gorm:"size:200"`
	Phone         string    `json:"phone" gorm:"size:50"`
	Address       string    `json:"address" gorm:"size:500"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Vendor) TableName() string {
	return "pur_vendors"
}
