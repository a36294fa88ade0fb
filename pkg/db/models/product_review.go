package models

import (
	"time"

	"github.com/google/uuid"
)

// ProductReview is one shopper's rating of a product. A user may leave at
// most one review per product per calendar day.
type ProductReview struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProductID  uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_product_reviews_product_user_date"`
	UserID     uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_product_reviews_product_user_date"`
	Rating     int       `gorm:"column:rating;not null"`
	Comment    string    `gorm:"column:comment"`
	ReviewDate time.Time `gorm:"column:review_date;not null;uniqueIndex:idx_product_reviews_product_user_date"`
	Product    *Product  `gorm:"foreignKey:ProductID"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
