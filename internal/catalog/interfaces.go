package catalog

import (
	"context"

	"github.com/akhilnathan/shopsite-backend/pkg/db/models"
	"github.com/akhilnathan/shopsite-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence operations for the product catalog.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateProduct(ctx context.Context, product *models.Product) error
	CreateVariant(ctx context.Context, variant *models.ProductVariant) error
	UpdateProduct(ctx context.Context, id uuid.UUID, updates map[string]any) (bool, error)
	UpdateVariant(ctx context.Context, id uuid.UUID, updates map[string]any) (bool, error)
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error)
	ListProducts(ctx context.Context, params pagination.Params, activeOnly bool) ([]models.Product, int64, error)
}
