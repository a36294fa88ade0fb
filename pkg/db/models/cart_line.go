package models

import (
	"time"

	"github.com/google/uuid"
)

// CartLine is one (user, variant, quantity) tuple in the live cart. Lines
// never snapshot prices; pricing happens at quote time.
type CartLine struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID       `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_cart_lines_user_variant"`
	VariantID uuid.UUID       `gorm:"column:variant_id;type:uuid;not null;uniqueIndex:idx_cart_lines_user_variant"`
	Quantity  int             `gorm:"column:quantity;not null"`
	Variant   *ProductVariant `gorm:"foreignKey:VariantID"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
