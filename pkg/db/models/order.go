package models

import (
	"time"

	"github.com/akhilnathan/shopsite-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is the persisted commitment of a quote. Monetary columns are
// snapshots taken at commit time and never change afterwards; only the
// status head moves, mirroring the append-only history table.
type Order struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	UserID        uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	Subtotal      decimal.Decimal     `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Discount      decimal.Decimal     `gorm:"column:discount;type:numeric(12,2);not null;default:0"`
	Total         decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null"`
	Status        enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'PENDING'"`
	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'PENDING'"`
	CouponID      *uuid.UUID          `gorm:"column:coupon_id;type:uuid"`
	Items         []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	StatusEvents  []OrderStatusEvent  `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Transaction   *Transaction        `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	DeliveredAt   *time.Time          `gorm:"column:delivered_at"`
	CancelledAt   *time.Time          `gorm:"column:cancelled_at"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
