package models

import (
	"time"

	"github.com/google/uuid"
)

// CouponUsage joins a redemption to its order. The (user, coupon, order)
// uniqueness is the storage-level guard against double redemption; racing
// checkouts are resolved by this constraint, not by application locks.
type CouponUsage struct {
	ID       uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID   uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_coupon_usages_user_coupon_order"`
	CouponID uuid.UUID `gorm:"column:coupon_id;type:uuid;not null;uniqueIndex:idx_coupon_usages_user_coupon_order"`
	OrderID  uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex:idx_coupon_usages_user_coupon_order"`
	UsedAt   time.Time `gorm:"column:used_at;autoCreateTime"`
}
