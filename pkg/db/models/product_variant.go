package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductVariant is the priced, stocked unit of a product (a size/color
// combination). Every product owns at least a default variant.
type ProductVariant struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID    uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index"`
	VariantType  string          `gorm:"column:variant_type;not null;default:'default'"`
	VariantValue string          `gorm:"column:variant_value;not null;default:'default'"`
	Price        decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	IsActive     bool            `gorm:"column:is_active;not null;default:true"`
	Product      *Product        `gorm:"foreignKey:ProductID"`
	Inventory    *InventoryItem  `gorm:"foreignKey:VariantID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
