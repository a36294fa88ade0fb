package models

import (
	"time"

	"github.com/akhilnathan/shopsite-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Coupon is a redeemable discount code. UsageLimit caps redemptions per
// user, counted against CouponUsage rows.
type Coupon struct {
	ID                uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Code              string           `gorm:"column:code;not null;uniqueIndex"`
	DiscountType      enums.CouponType `gorm:"column:discount_type;type:text;not null"`
	DiscountValue     decimal.Decimal  `gorm:"column:discount_value;type:numeric(12,2);not null"`
	MinOrderAmount    decimal.Decimal  `gorm:"column:min_order_amount;type:numeric(12,2);not null;default:0"`
	MaxDiscountAmount *decimal.Decimal `gorm:"column:max_discount_amount;type:numeric(12,2)"`
	ValidFrom         time.Time        `gorm:"column:valid_from;not null"`
	ValidTo           time.Time        `gorm:"column:valid_to;not null"`
	UsageLimit        int              `gorm:"column:usage_limit;not null;default:1"`
	IsAvailable       bool             `gorm:"column:is_available;not null;default:true"`
	CreatedAt         time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
