package cart

import (
	"context"
	"time"

	"github.com/akhilnathan/shopsite-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindLines(ctx context.Context, userID uuid.UUID) ([]models.CartLine, error) {
	var lines []models.CartLine
	err := r.db.WithContext(ctx).
		Preload("Variant").
		Preload("Variant.Product").
		Preload("Variant.Inventory").
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *repository) FindLine(ctx context.Context, userID, variantID uuid.UUID) (*models.CartLine, error) {
	var line models.CartLine
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND variant_id = ?", userID, variantID).
		First(&line).Error
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// UpsertLine inserts the line or bumps the quantity of the existing
// (user, variant) row.
func (r *repository) UpsertLine(ctx context.Context, line *models.CartLine) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "variant_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"quantity":   gorm.Expr("quantity + ?", line.Quantity),
				"updated_at": time.Now().UTC(),
			}),
		}).
		Create(line).Error
}

func (r *repository) UpdateQuantity(ctx context.Context, userID, variantID uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CartLine{}).
		Where("user_id = ? AND variant_id = ?", userID, variantID).
		Updates(map[string]any{
			"quantity":   qty,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) DeleteLine(ctx context.Context, userID, variantID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND variant_id = ?", userID, variantID).
		Delete(&models.CartLine{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ConsumeLine removes qty purchased units from the (user, variant) line.
// A line that grew past qty between quote and commit keeps the remainder;
// otherwise the line goes away.
func (r *repository) ConsumeLine(ctx context.Context, userID, variantID uuid.UUID, qty int) error {
	res := r.db.WithContext(ctx).
		Model(&models.CartLine{}).
		Where("user_id = ? AND variant_id = ? AND quantity > ?", userID, variantID, qty).
		Updates(map[string]any{
			"quantity":   gorm.Expr("quantity - ?", qty),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("user_id = ? AND variant_id = ? AND quantity <= ?", userID, variantID, qty).
		Delete(&models.CartLine{}).Error
}

func (r *repository) DeleteAll(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.CartLine{}).Error
}
