package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product 物料主数据
type Product struct {
	ID            string          `json:"id" gorm:"primaryKey;size:32"`
	Name          string          `json:"name" gorm:"size:200;not null"`
	SKU           string          `json:"sku" gorm:"size:64;uniqueIndex;not null"`
	Description   string          `json:"description" gorm:"type:text"`
	UnitPrice     decimal.Decimal `json:"unit_price" gorm:"type:numeric;not null"`
	TaxRate       decimal.Decimal `json:"tax_rate" gorm:"type:numeric;not null"` // 百分比 0-100
	UnitOfMeasure string          `json:"unit_of_measure" gorm:"size:20;default:pcs"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (Product) TableName() string {
	return "pur_products"
}

// Snapshot 复制当前价格与税率，用于订单行项
func (p *Product) Snapshot() ProductSnapshot {
	return ProductSnapshot{
		ProductID:     p.ID,
		ProductName:   p.Name,
		SKU:           p.SKU,
		UnitOfMeasure: p.UnitOfMeasure,
		UnitPrice:     p.UnitPrice,
		TaxRate:       p.TaxRate,
	}
}
