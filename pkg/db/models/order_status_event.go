package models

import (
	"time"

	"github.com/akhilnathan/shopsite-backend/pkg/enums"
	"github.com/google/uuid"
)

// OrderStatusEvent is one row of the append-only status history. The latest
// row by ChangedAt is the order's current status; rows are never mutated.
type OrderStatusEvent struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	Status    enums.OrderStatus `gorm:"column:status;type:text;not null"`
	ChangedAt time.Time         `gorm:"column:changed_at;autoCreateTime"`
}
