package models

import (
	"time"

	"github.com/akhilnathan/shopsite-backend/pkg/enums"
	"github.com/google/uuid"
)

// InventoryItem tracks available/reserved counts per variant. Status is
// derived from AvailableQty and recomputed whenever the counts move.
type InventoryItem struct {
	VariantID    uuid.UUID         `gorm:"column:variant_id;type:uuid;primaryKey"`
	AvailableQty int               `gorm:"column:available_qty;not null;default:0"`
	ReservedQty  int               `gorm:"column:reserved_qty;not null;default:0"`
	Status       enums.StockStatus `gorm:"column:status;type:text;not null;default:'OUT_OF_STOCK'"`
	UpdatedAt    time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
