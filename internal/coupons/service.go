package coupons

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/akhilnathan/shopsite-backend/internal/cart"
	"github.com/akhilnathan/shopsite-backend/pkg/db"
	"github.com/akhilnathan/shopsite-backend/pkg/db/models"
	"github.com/akhilnathan/shopsite-backend/pkg/enums"
	pkgerrors "github.com/akhilnathan/shopsite-backend/pkg/errors"
	"github.com/akhilnathan/shopsite-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var oneHundred = decimal.NewFromInt(100)

// PricedQuote is a cart quote with the coupon discount folded in.
type PricedQuote struct {
	Quote      *cart.Quote     `json:"quote"`
	CouponID   *uuid.UUID      `json:"coupon_id,omitempty"`
	CouponCode string          `json:"coupon_code,omitempty"`
	Discount   decimal.Decimal `json:"discount"`
	Total      decimal.Decimal `json:"total"`
}

// CreateInput carries the admin payload for a new coupon.
type CreateInput struct {
	Code              string           `validate:"required"`
	DiscountType      enums.CouponType `validate:"required"`
	DiscountValue     decimal.Decimal  `validate:"required"`
	MinOrderAmount    decimal.Decimal
	MaxDiscountAmount *decimal.Decimal
	ValidFrom         time.Time `validate:"required"`
	ValidTo           time.Time `validate:"required"`
	UsageLimit        int
	IsAvailable       bool
}

// Service exposes the read-side coupon evaluator plus admin CRUD.
type Service interface {
	Apply(ctx context.Context, quote *cart.Quote, code string, userID uuid.UUID) (*PricedQuote, error)
	Price(quote *cart.Quote) *PricedQuote
	Create(ctx context.Context, input CreateInput) (*models.Coupon, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) (*models.Coupon, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*models.Coupon, error)
	List(ctx context.Context, params pagination.Params) ([]models.Coupon, int64, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService builds a coupons service backed by the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupons repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

// Apply evaluates the code against the quote. Pure read-side: the usage row
// is written later, during checkout commit, so calling Apply twice with the
// same inputs yields the same discount.
func (s *service) Apply(ctx context.Context, quote *cart.Quote, code string, userID uuid.UUID) (*PricedQuote, error) {
	if quote == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quote is required")
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}

	coupon, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}
	if !coupon.IsAvailable {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
	}

	now := s.now().UTC()
	if now.Before(coupon.ValidFrom) || now.After(coupon.ValidTo) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "coupon expired")
	}

	used, err := s.repo.CountUsageByUser(ctx, coupon.ID, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count coupon usage")
	}
	if used >= int64(coupon.UsageLimit) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "coupon exhausted")
	}

	if quote.Subtotal.LessThan(coupon.MinOrderAmount) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "minimum order amount not met").
			WithDetails(map[string]any{"min_order_amount": coupon.MinOrderAmount})
	}

	discount := computeDiscount(coupon, quote.Subtotal)
	couponID := coupon.ID
	return &PricedQuote{
		Quote:      quote,
		CouponID:   &couponID,
		CouponCode: coupon.Code,
		Discount:   discount,
		Total:      quote.Subtotal.Sub(discount).Round(2),
	}, nil
}

// Price wraps a quote with no discount applied.
func (s *service) Price(quote *cart.Quote) *PricedQuote {
	return &PricedQuote{
		Quote:    quote,
		Discount: decimal.Zero,
		Total:    quote.Subtotal,
	}
}

func computeDiscount(coupon *models.Coupon, subtotal decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal
	switch coupon.DiscountType {
	case enums.CouponTypePercentage:
		discount = subtotal.Mul(coupon.DiscountValue).Div(oneHundred)
		if coupon.MaxDiscountAmount != nil && discount.GreaterThan(*coupon.MaxDiscountAmount) {
			discount = *coupon.MaxDiscountAmount
		}
	default:
		discount = coupon.DiscountValue
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	return discount.Round(2)
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Coupon, error) {
	input.Code = strings.TrimSpace(input.Code)
	if input.Code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}
	if !input.DiscountType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid discount type")
	}
	if !input.DiscountValue.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount value must be positive")
	}
	if input.DiscountType == enums.CouponTypePercentage && input.DiscountValue.GreaterThan(oneHundred) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "percentage discount cannot exceed 100")
	}
	if !input.ValidTo.After(input.ValidFrom) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "valid_to must be after valid_from")
	}
	if input.UsageLimit <= 0 {
		input.UsageLimit = 1
	}

	coupon := &models.Coupon{
		ID:                uuid.New(),
		Code:              input.Code,
		DiscountType:      input.DiscountType,
		DiscountValue:     input.DiscountValue.Round(2),
		MinOrderAmount:    input.MinOrderAmount.Round(2),
		MaxDiscountAmount: input.MaxDiscountAmount,
		ValidFrom:         input.ValidFrom.UTC(),
		ValidTo:           input.ValidTo.UTC(),
		UsageLimit:        input.UsageLimit,
		IsAvailable:       input.IsAvailable,
	}
	if err := s.repo.Create(ctx, coupon); err != nil {
		if db.IsUniqueViolation(err, "idx_coupons_code") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "coupon code already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create coupon")
	}
	return coupon, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, updates map[string]any) (*models.Coupon, error) {
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no updates provided")
	}
	ok, err := s.repo.Update(ctx, id, updates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update coupon")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
	}
	return s.Get(ctx, id)
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete coupon")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
	}
	return nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	coupon, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}
	return coupon, nil
}

func (s *service) List(ctx context.Context, params pagination.Params) ([]models.Coupon, int64, error) {
	coupons, total, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list coupons")
	}
	return coupons, total, nil
}
