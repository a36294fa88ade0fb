package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/akhilnathan/shopsite-backend/pkg/db/models"
	"github.com/akhilnathan/shopsite-backend/pkg/enums"
	pkgerrors "github.com/akhilnathan/shopsite-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type variantLoader interface {
	FindVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error)
}

// Service exposes cart line CRUD and the quote aggregator.
type Service interface {
	Upsert(ctx context.Context, userID, variantID uuid.UUID, qty int) (*models.CartLine, error)
	UpdateQuantity(ctx context.Context, userID, variantID uuid.UUID, qty int) error
	Remove(ctx context.Context, userID, variantID uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID) ([]models.CartLine, error)
	Clear(ctx context.Context, userID uuid.UUID) error
	ClearPurchased(ctx context.Context, tx *gorm.DB, userID uuid.UUID, purchased []PurchasedLine) error
	BuildQuote(ctx context.Context, userID uuid.UUID) (*Quote, error)
}

type service struct {
	repo     Repository
	variants variantLoader
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo Repository, variants variantLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if variants == nil {
		return nil, fmt.Errorf("variant loader required")
	}
	return &service{repo: repo, variants: variants}, nil
}

// Upsert adds qty units of the variant to the cart, merging with an existing
// line for the same variant.
func (s *service) Upsert(ctx context.Context, userID, variantID uuid.UUID, qty int) (*models.CartLine, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if variantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant id is required")
	}
	if qty < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	variant, err := s.variants.FindVariant(ctx, variantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant")
	}
	if !variant.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "product unavailable")
	}

	line := &models.CartLine{
		ID:        uuid.New(),
		UserID:    userID,
		VariantID: variantID,
		Quantity:  qty,
	}
	if err := s.repo.UpsertLine(ctx, line); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert cart line")
	}
	return s.repo.FindLine(ctx, userID, variantID)
}

// UpdateQuantity replaces the line quantity outright.
func (s *service) UpdateQuantity(ctx context.Context, userID, variantID uuid.UUID, qty int) error {
	if qty < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	ok, err := s.repo.UpdateQuantity(ctx, userID, variantID, qty)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart line")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
	}
	return nil
}

func (s *service) Remove(ctx context.Context, userID, variantID uuid.UUID) error {
	ok, err := s.repo.DeleteLine(ctx, userID, variantID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart line")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
	}
	return nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]models.CartLine, error) {
	lines, err := s.repo.FindLines(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart lines")
	}
	return lines, nil
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.DeleteAll(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

// ClearPurchased removes exactly the quoted quantities from the cart, inside
// the checkout transaction. Lines added or bumped after the quote was built
// keep their unpurchased remainder.
func (s *service) ClearPurchased(ctx context.Context, tx *gorm.DB, userID uuid.UUID, purchased []PurchasedLine) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction handle is required")
	}
	repo := s.repo.WithTx(tx)
	for _, line := range purchased {
		if err := repo.ConsumeLine(ctx, userID, line.VariantID, line.Quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear purchased lines")
		}
	}
	return nil
}

// BuildQuote prices the cart at current variant prices. The whole quote
// fails when any line points at an unavailable product; nothing is dropped
// silently.
func (s *service) BuildQuote(ctx context.Context, userID uuid.UUID) (*Quote, error) {
	lines, err := s.repo.FindLines(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart lines")
	}
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	quote := &Quote{UserID: userID}
	var unavailable []map[string]any

	for _, line := range lines {
		if reason := lineUnavailableReason(line); reason != "" {
			unavailable = append(unavailable, map[string]any{
				"line_id": line.ID,
				"reason":  reason,
			})
			continue
		}

		unitPrice := line.Variant.Price.Round(2)
		lineTotal := unitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))).Round(2)
		quote.Lines = append(quote.Lines, QuoteLine{
			LineID:    line.ID,
			VariantID: line.VariantID,
			ProductID: line.Variant.ProductID,
			Title:     line.Variant.Product.Title,
			UnitPrice: unitPrice,
			Quantity:  line.Quantity,
			LineTotal: lineTotal,
		})
		quote.Subtotal = quote.Subtotal.Add(lineTotal)
	}

	if len(unavailable) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "product unavailable").
			WithDetails(map[string]any{"lines": unavailable})
	}

	quote.Subtotal = quote.Subtotal.Round(2)
	return quote, nil
}

func lineUnavailableReason(line models.CartLine) string {
	switch {
	case line.Variant == nil:
		return "variant no longer exists"
	case !line.Variant.IsActive:
		return "variant is inactive"
	case line.Variant.Product == nil:
		return "product no longer exists"
	case !line.Variant.Product.IsActive:
		return "product is inactive"
	case line.Variant.Inventory == nil:
		return "variant is not stocked"
	case line.Variant.Inventory.Status == enums.StockStatusOutOfStock:
		return "out of stock"
	default:
		return ""
	}
}
