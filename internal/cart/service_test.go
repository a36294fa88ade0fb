package cart

import (
	"context"
	"testing"

	"github.com/akhilnathan/shopsite-backend/pkg/db/models"
	"github.com/akhilnathan/shopsite-backend/pkg/enums"
	pkgerrors "github.com/akhilnathan/shopsite-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

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

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:cart_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Product{},
		&models.ProductVariant{},
		&models.InventoryItem{},
		&models.CartLine{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	svc, err := NewService(NewRepository(db), &dbVariantLoader{db: db})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc, db
}

func seedVariant(t *testing.T, db *gorm.DB, price string, available int) *models.ProductVariant {
	t.Helper()
	product := models.Product{
		ID:        uuid.New(),
		Title:     "Test Product",
		BasePrice: decimal.RequireFromString(price),
		IsActive:  true,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	variant := models.ProductVariant{
		ID:        uuid.New(),
		ProductID: product.ID,
		Price:     decimal.RequireFromString(price),
		IsActive:  true,
	}
	if err := db.Create(&variant).Error; err != nil {
		t.Fatalf("seed variant: %v", err)
	}
	item := models.InventoryItem{
		VariantID:    variant.ID,
		AvailableQty: available,
		Status:       enums.StockStatusFor(available, 5),
	}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("seed inventory: %v", err)
	}
	return &variant
}

func TestUpsertMergesQuantity(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	variant := seedVariant(t, db, "10.00", 10)

	if _, err := svc.Upsert(ctx, userID, variant.ID, 2); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	line, err := svc.Upsert(ctx, userID, variant.ID, 3)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if line.Quantity != 5 {
		t.Fatalf("expected merged quantity 5, got %d", line.Quantity)
	}

	var count int64
	if err := db.Model(&models.CartLine{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		t.Fatalf("count lines: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected single line, got %d", count)
	}
}

func TestUpsertRejectsInvalidQty(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	variant := seedVariant(t, db, "10.00", 10)

	_, err := svc.Upsert(context.Background(), uuid.New(), variant.ID, 0)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUpdateQuantityAndRemove(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	variant := seedVariant(t, db, "10.00", 10)

	if _, err := svc.Upsert(ctx, userID, variant.ID, 2); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := svc.UpdateQuantity(ctx, userID, variant.ID, 7); err != nil {
		t.Fatalf("update: %v", err)
	}

	lines, err := svc.List(ctx, userID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(lines) != 1 || lines[0].Quantity != 7 {
		t.Fatalf("unexpected lines: %+v", lines)
	}

	if err := svc.Remove(ctx, userID, variant.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := svc.Remove(ctx, userID, variant.ID); err == nil {
		t.Fatal("expected not found on second remove")
	}
}

func TestBuildQuotePricesAtBuildTime(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	variant := seedVariant(t, db, "10.00", 10)

	if _, err := svc.Upsert(ctx, userID, variant.ID, 2); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// Price changes after the line was added; the quote must pick up the
	// current price, and the line itself stores none.
	if err := db.Model(&models.ProductVariant{}).
		Where("id = ?", variant.ID).
		Update("price", decimal.RequireFromString("12.50")).Error; err != nil {
		t.Fatalf("reprice: %v", err)
	}

	quote, err := svc.BuildQuote(ctx, userID)
	if err != nil {
		t.Fatalf("build quote: %v", err)
	}
	if len(quote.Lines) != 1 {
		t.Fatalf("expected 1 quote line, got %d", len(quote.Lines))
	}
	if !quote.Lines[0].UnitPrice.Equal(decimal.RequireFromString("12.50")) {
		t.Fatalf("unexpected unit price: %s", quote.Lines[0].UnitPrice)
	}
	if !quote.Subtotal.Equal(decimal.RequireFromString("25.00")) {
		t.Fatalf("unexpected subtotal: %s", quote.Subtotal)
	}
}

func TestBuildQuoteEmptyCart(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)

	_, err := svc.BuildQuote(context.Background(), uuid.New())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBuildQuoteUnavailableProduct(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	good := seedVariant(t, db, "10.00", 10)
	bad := seedVariant(t, db, "5.00", 10)

	if _, err := svc.Upsert(ctx, userID, good.ID, 1); err != nil {
		t.Fatalf("upsert good: %v", err)
	}
	if _, err := svc.Upsert(ctx, userID, bad.ID, 1); err != nil {
		t.Fatalf("upsert bad: %v", err)
	}

	if err := db.Model(&models.Product{}).
		Where("id = ?", bad.ProductID).
		Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate product: %v", err)
	}

	_, err := svc.BuildQuote(ctx, userID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("unexpected error: %v", err)
	}
	if typed.Details() == nil {
		t.Fatal("expected offending line details")
	}
}

func TestClearPurchasedLeavesOtherLines(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	bought := seedVariant(t, db, "10.00", 10)
	kept := seedVariant(t, db, "4.00", 10)

	if _, err := svc.Upsert(ctx, userID, bought.ID, 1); err != nil {
		t.Fatalf("upsert bought: %v", err)
	}
	if _, err := svc.Upsert(ctx, userID, kept.ID, 1); err != nil {
		t.Fatalf("upsert kept: %v", err)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.ClearPurchased(ctx, tx, userID, []PurchasedLine{{VariantID: bought.ID, Quantity: 1}})
	})
	if err != nil {
		t.Fatalf("clear purchased: %v", err)
	}

	lines, err := svc.List(ctx, userID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(lines) != 1 || lines[0].VariantID != kept.ID {
		t.Fatalf("unexpected surviving lines: %+v", lines)
	}
}

func TestClearPurchasedKeepsQuantityBumpedAfterQuote(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	variant := seedVariant(t, db, "10.00", 10)

	// Quoted at 2 units, then the shopper bumps the line to 5 before the
	// checkout commits. Only the quoted 2 were purchased.
	if _, err := svc.Upsert(ctx, userID, variant.ID, 2); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := svc.UpdateQuantity(ctx, userID, variant.ID, 5); err != nil {
		t.Fatalf("bump quantity: %v", err)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.ClearPurchased(ctx, tx, userID, []PurchasedLine{{VariantID: variant.ID, Quantity: 2}})
	})
	if err != nil {
		t.Fatalf("clear purchased: %v", err)
	}

	lines, err := svc.List(ctx, userID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(lines) != 1 || lines[0].Quantity != 3 {
		t.Fatalf("expected remainder of 3 units, got %+v", lines)
	}
}
