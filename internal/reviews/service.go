package reviews

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akhilnathan/shopsite-backend/pkg/db"
	"github.com/akhilnathan/shopsite-backend/pkg/db/models"
	pkgerrors "github.com/akhilnathan/shopsite-backend/pkg/errors"
	"github.com/akhilnathan/shopsite-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	minRating = 1
	maxRating = 5
)

// Service exposes product reviews. A user may post at most one review per
// product per calendar day; edits are author-only, deletes allow admins too.
type Service interface {
	Create(ctx context.Context, userID, productID uuid.UUID, rating int, comment string) (*models.ProductReview, error)
	Update(ctx context.Context, userID, reviewID uuid.UUID, rating *int, comment *string) (*models.ProductReview, error)
	Delete(ctx context.Context, userID uuid.UUID, isAdmin bool, reviewID uuid.UUID) error
	ListByProduct(ctx context.Context, productID uuid.UUID, params pagination.Params) ([]models.ProductReview, int64, error)
}

type service struct {
	db *gorm.DB
}

// NewService builds a reviews service bound to the provided DB.
func NewService(gdb *gorm.DB) (Service, error) {
	if gdb == nil {
		return nil, fmt.Errorf("db required")
	}
	return &service{db: gdb}, nil
}

func (s *service) Create(ctx context.Context, userID, productID uuid.UUID, rating int, comment string) (*models.ProductReview, error) {
	if rating < minRating || rating > maxRating {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}

	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	review := &models.ProductReview{
		ID:         uuid.New(),
		ProductID:  productID,
		UserID:     userID,
		Rating:     rating,
		Comment:    comment,
		ReviewDate: reviewDay(time.Now()),
	}
	if err := s.db.WithContext(ctx).Create(review).Error; err != nil {
		if db.IsUniqueViolation(err, "idx_product_reviews_product_user_date") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "product already reviewed today")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create review")
	}
	return review, nil
}

func (s *service) Update(ctx context.Context, userID, reviewID uuid.UUID, rating *int, comment *string) (*models.ProductReview, error) {
	var review models.ProductReview
	if err := s.db.WithContext(ctx).First(&review, "id = ?", reviewID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load review")
	}
	if review.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not the review author")
	}

	updates := map[string]any{"updated_at": time.Now().UTC()}
	if rating != nil {
		if *rating < minRating || *rating > maxRating {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
		}
		updates["rating"] = *rating
		review.Rating = *rating
	}
	if comment != nil {
		updates["comment"] = *comment
		review.Comment = *comment
	}
	if len(updates) == 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "nothing to update")
	}

	err := s.db.WithContext(ctx).
		Model(&models.ProductReview{}).
		Where("id = ?", reviewID).
		Updates(updates).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update review")
	}
	return &review, nil
}

func (s *service) Delete(ctx context.Context, userID uuid.UUID, isAdmin bool, reviewID uuid.UUID) error {
	q := s.db.WithContext(ctx).Where("id = ?", reviewID)
	if !isAdmin {
		q = q.Where("user_id = ?", userID)
	}
	res := q.Delete(&models.ProductReview{})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "delete review")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
	}
	return nil
}

func (s *service) ListByProduct(ctx context.Context, productID uuid.UUID, params pagination.Params) ([]models.ProductReview, int64, error) {
	var total int64
	err := s.db.WithContext(ctx).
		Model(&models.ProductReview{}).
		Where("product_id = ?", productID).
		Count(&total).Error
	if err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count reviews")
	}

	var reviews []models.ProductReview
	err = s.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC").
		Limit(params.Limit).
		Offset(params.Offset).
		Find(&reviews).Error
	if err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reviews")
	}
	return reviews, total, nil
}

// reviewDay truncates to midnight UTC so the per-day uniqueness window does
// not depend on the server timezone.
func reviewDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
