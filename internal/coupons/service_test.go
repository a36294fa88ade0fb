package coupons

import (
	"context"
	"testing"
	"time"

	"github.com/akhilnathan/shopsite-backend/internal/cart"
	"github.com/akhilnathan/shopsite-backend/pkg/db/models"
	"github.com/akhilnathan/shopsite-backend/pkg/enums"
	pkgerrors "github.com/akhilnathan/shopsite-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:coupons_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Coupon{}, &models.CouponUsage{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	svc, err := NewService(NewRepository(db))
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc, db
}

func seedCoupon(t *testing.T, db *gorm.DB, mutate func(*models.Coupon)) *models.Coupon {
	t.Helper()
	coupon := &models.Coupon{
		ID:            uuid.New(),
		Code:          "SAVE10",
		DiscountType:  enums.CouponTypePercentage,
		DiscountValue: decimal.RequireFromString("10"),
		ValidFrom:     time.Now().UTC().Add(-time.Hour),
		ValidTo:       time.Now().UTC().Add(time.Hour),
		UsageLimit:    1,
		IsAvailable:   true,
	}
	if mutate != nil {
		mutate(coupon)
	}
	if err := db.Create(coupon).Error; err != nil {
		t.Fatalf("seed coupon: %v", err)
	}
	return coupon
}

func quoteWithSubtotal(subtotal string) *cart.Quote {
	return &cart.Quote{
		UserID:   uuid.New(),
		Subtotal: decimal.RequireFromString(subtotal),
	}
}

func TestApplyPercentageWithCap(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	capAmount := decimal.RequireFromString("5.00")
	seedCoupon(t, db, func(c *models.Coupon) {
		c.MaxDiscountAmount = &capAmount
	})

	priced, err := svc.Apply(context.Background(), quoteWithSubtotal("100.00"), "SAVE10", uuid.New())
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !priced.Discount.Equal(decimal.RequireFromString("5.00")) {
		t.Fatalf("expected capped discount 5.00, got %s", priced.Discount)
	}
	if !priced.Total.Equal(decimal.RequireFromString("95.00")) {
		t.Fatalf("expected total 95.00, got %s", priced.Total)
	}
}

func TestApplyPercentageUncapped(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	seedCoupon(t, db, nil)

	priced, err := svc.Apply(context.Background(), quoteWithSubtotal("20.00"), "SAVE10", uuid.New())
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !priced.Discount.Equal(decimal.RequireFromString("2.00")) {
		t.Fatalf("expected discount 2.00, got %s", priced.Discount)
	}
}

func TestApplyFlatClampedToSubtotal(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	seedCoupon(t, db, func(c *models.Coupon) {
		c.Code = "FLAT50"
		c.DiscountType = enums.CouponTypeFlat
		c.DiscountValue = decimal.RequireFromString("50.00")
	})

	priced, err := svc.Apply(context.Background(), quoteWithSubtotal("30.00"), "FLAT50", uuid.New())
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !priced.Discount.Equal(decimal.RequireFromString("30.00")) {
		t.Fatalf("discount must not exceed subtotal, got %s", priced.Discount)
	}
	if !priced.Total.IsZero() {
		t.Fatalf("expected zero total, got %s", priced.Total)
	}
}

func TestApplyUnknownOrDisabledCode(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	seedCoupon(t, db, func(c *models.Coupon) {
		c.Code = "HIDDEN"
		c.IsAvailable = false
	})

	for _, code := range []string{"NOPE", "HIDDEN"} {
		_, err := svc.Apply(context.Background(), quoteWithSubtotal("50.00"), code, uuid.New())
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
			t.Fatalf("code %s: unexpected error: %v", code, err)
		}
	}
}

func TestApplyExpiredWindow(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	seedCoupon(t, db, func(c *models.Coupon) {
		c.ValidFrom = time.Now().UTC().Add(-48 * time.Hour)
		c.ValidTo = time.Now().UTC().Add(-24 * time.Hour)
	})

	_, err := svc.Apply(context.Background(), quoteWithSubtotal("50.00"), "SAVE10", uuid.New())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict || typed.Message() != "coupon expired" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestApplyExhaustedForUser(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	coupon := seedCoupon(t, db, nil)
	userID := uuid.New()

	usage := models.CouponUsage{
		ID:       uuid.New(),
		UserID:   userID,
		CouponID: coupon.ID,
		OrderID:  uuid.New(),
	}
	if err := db.Create(&usage).Error; err != nil {
		t.Fatalf("seed usage: %v", err)
	}

	_, err := svc.Apply(context.Background(), quoteWithSubtotal("50.00"), "SAVE10", userID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict || typed.Message() != "coupon exhausted" {
		t.Fatalf("unexpected error: %v", err)
	}

	// A different user is unaffected; the limit is per user.
	if _, err := svc.Apply(context.Background(), quoteWithSubtotal("50.00"), "SAVE10", uuid.New()); err != nil {
		t.Fatalf("apply for fresh user: %v", err)
	}
}

func TestApplyMinimumOrderAmount(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	seedCoupon(t, db, func(c *models.Coupon) {
		c.MinOrderAmount = decimal.RequireFromString("15.00")
	})

	_, err := svc.Apply(context.Background(), quoteWithSubtotal("14.99"), "SAVE10", uuid.New())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict || typed.Message() != "minimum order amount not met" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	seedCoupon(t, db, nil)
	quote := quoteWithSubtotal("40.00")
	userID := uuid.New()

	first, err := svc.Apply(context.Background(), quote, "SAVE10", userID)
	if err != nil {
		t.Fatalf("first apply: %v", err)
	}
	second, err := svc.Apply(context.Background(), quote, "SAVE10", userID)
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if !first.Discount.Equal(second.Discount) || !first.Total.Equal(second.Total) {
		t.Fatalf("apply is not idempotent: %s vs %s", first.Discount, second.Discount)
	}
}

func TestCreateValidatesAndRejectsDuplicates(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	input := CreateInput{
		Code:          "WELCOME",
		DiscountType:  enums.CouponTypeFlat,
		DiscountValue: decimal.RequireFromString("5.00"),
		ValidFrom:     time.Now().UTC(),
		ValidTo:       time.Now().UTC().Add(time.Hour),
		IsAvailable:   true,
	}
	if _, err := svc.Create(ctx, input); err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err := svc.Create(ctx, input)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected duplicate code conflict, got %v", err)
	}

	bad := input
	bad.Code = "PCT200"
	bad.DiscountType = enums.CouponTypePercentage
	bad.DiscountValue = decimal.RequireFromString("200")
	_, err = svc.Create(ctx, bad)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
