package models

import (
	"time"

	"github.com/akhilnathan/shopsite-backend/pkg/enums"
	"github.com/google/uuid"
)

// InventoryReservation is a provisional, time-bounded hold on stock taken
// during checkout. Pending rows past ExpiresAt are swept back into
// availability by the cron worker.
type InventoryReservation struct {
	ID        uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	VariantID uuid.UUID               `gorm:"column:variant_id;type:uuid;not null;index"`
	Qty       int                     `gorm:"column:qty;not null"`
	Status    enums.ReservationStatus `gorm:"column:status;type:text;not null;default:'pending';index"`
	ExpiresAt time.Time               `gorm:"column:expires_at;not null;index"`
	CreatedAt time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
