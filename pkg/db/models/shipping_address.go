package models

import (
	"time"

	"github.com/google/uuid"
)

// ShippingAddress is a user-owned delivery destination.
type ShippingAddress struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	Address   string    `gorm:"column:address;not null"`
	City      string    `gorm:"column:city;not null"`
	State     string    `gorm:"column:state;not null"`
	Country   string    `gorm:"column:country;not null"`
	Pincode   string    `gorm:"column:pincode;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
