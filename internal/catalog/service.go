package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/akhilnathan/shopsite-backend/pkg/db/models"
	"github.com/akhilnathan/shopsite-backend/pkg/enums"
	pkgerrors "github.com/akhilnathan/shopsite-backend/pkg/errors"
	"github.com/akhilnathan/shopsite-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CreateProductInput carries the admin payload for a new product. Every
// product gets a default variant so the cart always points at a variant.
type CreateProductInput struct {
	Title       string `validate:"required"`
	Description *string
	BasePrice   decimal.Decimal `validate:"required"`
	IsActive    bool
}

// Service exposes catalog reads plus the admin product surface.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)
	List(ctx context.Context, params pagination.Params, includeInactive bool) ([]models.Product, int64, error)
	FindVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error)
	Create(ctx context.Context, input CreateProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, updates map[string]any) (*models.Product, error)
	UpdateVariant(ctx context.Context, id uuid.UUID, updates map[string]any) (*models.ProductVariant, error)
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService builds a catalog service backed by the provided stack.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindProduct(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, includeInactive bool) ([]models.Product, int64, error) {
	products, total, err := s.repo.ListProducts(ctx, params, !includeInactive)
	if err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return products, total, nil
}

func (s *service) FindVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error) {
	return s.repo.FindVariant(ctx, id)
}

// Create persists the product, its default variant and an empty ledger row
// in one transaction.
func (s *service) Create(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product title is required")
	}
	if input.BasePrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "base price must be non-negative")
	}

	product := &models.Product{
		ID:          uuid.New(),
		Title:       input.Title,
		Description: input.Description,
		BasePrice:   input.BasePrice.Round(2),
		IsActive:    input.IsActive,
	}
	variant := &models.ProductVariant{
		ID:        uuid.New(),
		ProductID: product.ID,
		Price:     product.BasePrice,
		IsActive:  input.IsActive,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateProduct(ctx, product); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
		}
		if err := repo.CreateVariant(ctx, variant); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create default variant")
		}
		item := &models.InventoryItem{
			VariantID: variant.ID,
			Status:    enums.StockStatusOutOfStock,
		}
		if err := tx.WithContext(ctx).Create(item).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create inventory row")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	product.Variants = []models.ProductVariant{*variant}
	return product, nil
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, updates map[string]any) (*models.Product, error) {
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no updates provided")
	}
	ok, err := s.repo.UpdateProduct(ctx, id, updates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return s.Get(ctx, id)
}

func (s *service) UpdateVariant(ctx context.Context, id uuid.UUID, updates map[string]any) (*models.ProductVariant, error) {
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no updates provided")
	}
	ok, err := s.repo.UpdateVariant(ctx, id, updates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update variant")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
	}
	variant, err := s.repo.FindVariant(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload variant")
	}
	return variant, nil
}
