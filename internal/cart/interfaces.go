package cart

import (
	"context"

	"github.com/akhilnathan/shopsite-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence operations for cart lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindLines(ctx context.Context, userID uuid.UUID) ([]models.CartLine, error)
	FindLine(ctx context.Context, userID, variantID uuid.UUID) (*models.CartLine, error)
	UpsertLine(ctx context.Context, line *models.CartLine) error
	UpdateQuantity(ctx context.Context, userID, variantID uuid.UUID, qty int) (bool, error)
	DeleteLine(ctx context.Context, userID, variantID uuid.UUID) (bool, error)
	ConsumeLine(ctx context.Context, userID, variantID uuid.UUID, qty int) error
	DeleteAll(ctx context.Context, userID uuid.UUID) error
}
