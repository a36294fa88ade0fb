package checkout

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/akhilnathan/shopsite-backend/internal/cart"
	"github.com/akhilnathan/shopsite-backend/internal/coupons"
	"github.com/akhilnathan/shopsite-backend/internal/inventory"
	"github.com/akhilnathan/shopsite-backend/pkg/db/models"
	"github.com/akhilnathan/shopsite-backend/pkg/enums"
	pkgerrors "github.com/akhilnathan/shopsite-backend/pkg/errors"
	"github.com/akhilnathan/shopsite-backend/pkg/logger"
	"github.com/akhilnathan/shopsite-backend/pkg/outbox"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r *gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type dbVariantLoader struct {
	db *gorm.DB
}

func (l *dbVariantLoader) FindVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	if err := l.db.WithContext(ctx).Where("id = ?", id).First(&variant).Error; err != nil {
		return nil, err
	}
	return &variant, nil
}

type failingPublisher struct{}

func (failingPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	return errors.New("publisher unavailable")
}

type stack struct {
	db      *gorm.DB
	cartSvc cart.Service
	svc     Service
}

func newStack(t *testing.T, publisher outboxPublisher) *stack {
	t.Helper()

	dsn := "file:checkout_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Product{},
		&models.ProductVariant{},
		&models.InventoryItem{},
		&models.InventoryReservation{},
		&models.CartLine{},
		&models.Coupon{},
		&models.CouponUsage{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderStatusEvent{},
		&models.Transaction{},
		&models.OutboxEvent{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	logg := logger.New(logger.Options{Output: io.Discard})
	runner := &gormTxRunner{db: db}

	cartSvc, err := cart.NewService(cart.NewRepository(db), &dbVariantLoader{db: db})
	if err != nil {
		t.Fatalf("build cart service: %v", err)
	}
	couponSvc, err := coupons.NewService(coupons.NewRepository(db))
	if err != nil {
		t.Fatalf("build coupon service: %v", err)
	}
	invSvc, err := inventory.NewService(
		inventory.NewRepository(db), runner, logg, nil, nil,
		inventory.Config{ReservationTTL: 15 * time.Minute, LowStockThreshold: 5},
	)
	if err != nil {
		t.Fatalf("build inventory service: %v", err)
	}

	if publisher == nil {
		publisher = outbox.NewService(outbox.NewRepository(db), logg)
	}

	svc, err := NewService(
		runner,
		NewRepository(db),
		cartSvc,
		couponSvc,
		invSvc,
		coupons.NewRepository(db),
		publisher,
		logg,
		nil,
	)
	if err != nil {
		t.Fatalf("build checkout service: %v", err)
	}
	return &stack{db: db, cartSvc: cartSvc, svc: svc}
}

func (s *stack) seedVariant(t *testing.T, price string, available int) *models.ProductVariant {
	t.Helper()
	product := models.Product{
		ID:        uuid.New(),
		Title:     "Widget",
		BasePrice: decimal.RequireFromString(price),
		IsActive:  true,
	}
	if err := s.db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	variant := models.ProductVariant{
		ID:        uuid.New(),
		ProductID: product.ID,
		Price:     decimal.RequireFromString(price),
		IsActive:  true,
	}
	if err := s.db.Create(&variant).Error; err != nil {
		t.Fatalf("seed variant: %v", err)
	}
	item := models.InventoryItem{
		VariantID:    variant.ID,
		AvailableQty: available,
		Status:       enums.StockStatusFor(available, 5),
	}
	if err := s.db.Create(&item).Error; err != nil {
		t.Fatalf("seed inventory: %v", err)
	}
	return &variant
}

func (s *stack) seedCoupon(t *testing.T, code string) *models.Coupon {
	t.Helper()
	coupon := models.Coupon{
		ID:             uuid.New(),
		Code:           code,
		DiscountType:   enums.CouponTypePercentage,
		DiscountValue:  decimal.RequireFromString("10"),
		MinOrderAmount: decimal.RequireFromString("15.00"),
		ValidFrom:      time.Now().UTC().Add(-time.Hour),
		ValidTo:        time.Now().UTC().Add(time.Hour),
		UsageLimit:     1,
		IsAvailable:    true,
	}
	if err := s.db.Create(&coupon).Error; err != nil {
		t.Fatalf("seed coupon: %v", err)
	}
	return &coupon
}

func (s *stack) addToCart(t *testing.T, userID, variantID uuid.UUID, qty int) {
	t.Helper()
	if _, err := s.cartSvc.Upsert(context.Background(), userID, variantID, qty); err != nil {
		t.Fatalf("add to cart: %v", err)
	}
}

func (s *stack) ledger(t *testing.T, variantID uuid.UUID) models.InventoryItem {
	t.Helper()
	var item models.InventoryItem
	if err := s.db.First(&item, "variant_id = ?", variantID).Error; err != nil {
		t.Fatalf("load inventory: %v", err)
	}
	return item
}

func TestCommitHappyPathWithCoupon(t *testing.T) {
	t.Parallel()

	s := newStack(t, nil)
	ctx := context.Background()
	userID := uuid.New()
	variant := s.seedVariant(t, "10.00", 5)
	s.seedCoupon(t, "SAVE10")

	s.addToCart(t, userID, variant.ID, 2)

	code := "SAVE10"
	order, err := s.svc.Commit(ctx, userID, CommitInput{
		CouponCode:    &code,
		PaymentMethod: enums.PaymentMethodCard,
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	if !order.Subtotal.Equal(decimal.RequireFromString("20.00")) {
		t.Fatalf("unexpected subtotal: %s", order.Subtotal)
	}
	if !order.Discount.Equal(decimal.RequireFromString("2.00")) {
		t.Fatalf("unexpected discount: %s", order.Discount)
	}
	if !order.Total.Equal(decimal.RequireFromString("18.00")) {
		t.Fatalf("unexpected total: %s", order.Total)
	}
	if order.Status != enums.OrderStatusPending || order.PaymentStatus != enums.PaymentStatusPending {
		t.Fatalf("unexpected order heads: %s/%s", order.Status, order.PaymentStatus)
	}

	item := s.ledger(t, variant.ID)
	if item.AvailableQty != 3 || item.ReservedQty != 0 {
		t.Fatalf("unexpected ledger: %+v", item)
	}

	var lineCount int64
	if err := s.db.Model(&models.CartLine{}).Where("user_id = ?", userID).Count(&lineCount).Error; err != nil {
		t.Fatalf("count cart lines: %v", err)
	}
	if lineCount != 0 {
		t.Fatalf("expected empty cart, got %d lines", lineCount)
	}

	var events []models.OrderStatusEvent
	if err := s.db.Where("order_id = ?", order.ID).Find(&events).Error; err != nil {
		t.Fatalf("load status events: %v", err)
	}
	if len(events) != 1 || events[0].Status != enums.OrderStatusPending {
		t.Fatalf("unexpected status events: %+v", events)
	}

	var txn models.Transaction
	if err := s.db.First(&txn, "order_id = ?", order.ID).Error; err != nil {
		t.Fatalf("load transaction: %v", err)
	}
	if !strings.HasPrefix(txn.TransactionID, "TXN-") || txn.Status != enums.PaymentStatusPending {
		t.Fatalf("unexpected transaction: %+v", txn)
	}
	if !txn.Amount.Equal(order.Total) {
		t.Fatalf("transaction amount mismatch: %s vs %s", txn.Amount, order.Total)
	}

	var usageCount int64
	if err := s.db.Model(&models.CouponUsage{}).Where("user_id = ?", userID).Count(&usageCount).Error; err != nil {
		t.Fatalf("count usages: %v", err)
	}
	if usageCount != 1 {
		t.Fatalf("expected one coupon usage, got %d", usageCount)
	}

	var outboxCount int64
	if err := s.db.Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventOrderCreated).
		Count(&outboxCount).Error; err != nil {
		t.Fatalf("count outbox events: %v", err)
	}
	if outboxCount != 1 {
		t.Fatalf("expected one outbox event, got %d", outboxCount)
	}
}

func TestCommitCouponExhaustedOnSecondUse(t *testing.T) {
	t.Parallel()

	s := newStack(t, nil)
	ctx := context.Background()
	userID := uuid.New()
	variant := s.seedVariant(t, "10.00", 10)
	s.seedCoupon(t, "SAVE10")
	code := "SAVE10"

	s.addToCart(t, userID, variant.ID, 2)
	if _, err := s.svc.Commit(ctx, userID, CommitInput{CouponCode: &code, PaymentMethod: enums.PaymentMethodUPI}); err != nil {
		t.Fatalf("first commit: %v", err)
	}

	s.addToCart(t, userID, variant.ID, 2)
	_, err := s.svc.Commit(ctx, userID, CommitInput{CouponCode: &code, PaymentMethod: enums.PaymentMethodUPI})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCommitContentionOneWinner(t *testing.T) {
	t.Parallel()

	s := newStack(t, nil)
	ctx := context.Background()
	variant := s.seedVariant(t, "10.00", 5)
	first := uuid.New()
	second := uuid.New()

	s.addToCart(t, first, variant.ID, 3)
	s.addToCart(t, second, variant.ID, 3)

	if _, err := s.svc.Commit(ctx, first, CommitInput{PaymentMethod: enums.PaymentMethodCOD}); err != nil {
		t.Fatalf("winner commit: %v", err)
	}

	_, err := s.svc.Commit(ctx, second, CommitInput{PaymentMethod: enums.PaymentMethodCOD})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	item := s.ledger(t, variant.ID)
	if item.AvailableQty != 2 || item.ReservedQty != 0 {
		t.Fatalf("unexpected ledger after contention: %+v", item)
	}

	var orderCount int64
	if err := s.db.Model(&models.Order{}).Count(&orderCount).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if orderCount != 1 {
		t.Fatalf("expected exactly one order, got %d", orderCount)
	}
}

func TestCommitRollbackReleasesReservations(t *testing.T) {
	t.Parallel()

	s := newStack(t, failingPublisher{})
	ctx := context.Background()
	userID := uuid.New()
	variant := s.seedVariant(t, "10.00", 5)

	s.addToCart(t, userID, variant.ID, 2)

	_, err := s.svc.Commit(ctx, userID, CommitInput{PaymentMethod: enums.PaymentMethodCard})
	if err == nil {
		t.Fatal("expected commit to fail")
	}

	item := s.ledger(t, variant.ID)
	if item.AvailableQty != 5 || item.ReservedQty != 0 {
		t.Fatalf("expected reservations released, got %+v", item)
	}

	var orderCount int64
	if err := s.db.Model(&models.Order{}).Count(&orderCount).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if orderCount != 0 {
		t.Fatalf("expected no orders, got %d", orderCount)
	}

	var lineCount int64
	if err := s.db.Model(&models.CartLine{}).Where("user_id = ?", userID).Count(&lineCount).Error; err != nil {
		t.Fatalf("count cart lines: %v", err)
	}
	if lineCount != 1 {
		t.Fatalf("expected cart line to survive rollback, got %d", lineCount)
	}
}

func TestCommitEmptyCart(t *testing.T) {
	t.Parallel()

	s := newStack(t, nil)

	_, err := s.svc.Commit(context.Background(), uuid.New(), CommitInput{PaymentMethod: enums.PaymentMethodCard})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}
}
