package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/akhilnathan/shopsite-backend/pkg/db/models"
	"github.com/akhilnathan/shopsite-backend/pkg/enums"
	pkgerrors "github.com/akhilnathan/shopsite-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestReserve(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	variantA := uuid.New()
	variantB := uuid.New()

	for _, item := range []models.InventoryItem{
		{VariantID: variantA, AvailableQty: 5, Status: enums.StockStatusInStock},
		{VariantID: variantB, AvailableQty: 1, Status: enums.StockStatusLowStock},
	} {
		if err := db.Create(&item).Error; err != nil {
			t.Fatalf("seed inventory: %v", err)
		}
	}

	requests := []ReservationRequest{
		{VariantID: variantA, Qty: 3},
		{VariantID: variantA, Qty: 4},
		{VariantID: variantB, Qty: 1},
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		results, terr := Reserve(ctx, tx, requests, 15*time.Minute, 5)
		if terr != nil {
			return terr
		}
		if len(results) != 3 {
			t.Fatalf("expected 3 results, got %d", len(results))
		}
		if !results[0].Reserved || results[0].Reason != "" {
			t.Fatalf("expected first reservation to succeed: %+v", results[0])
		}
		if results[0].ReservationID == uuid.Nil {
			t.Fatal("expected reservation id on success")
		}
		if results[1].Reserved || results[1].Reason == "" {
			t.Fatalf("expected second reservation to fail with reason: %+v", results[1])
		}
		if !results[2].Reserved {
			t.Fatalf("expected third reservation to succeed: %+v", results[2])
		}
		return nil
	})
	if err != nil {
		t.Fatalf("reserve transaction: %v", err)
	}

	var invA, invB models.InventoryItem
	if err := db.First(&invA, "variant_id = ?", variantA).Error; err != nil {
		t.Fatalf("load inventory a: %v", err)
	}
	if err := db.First(&invB, "variant_id = ?", variantB).Error; err != nil {
		t.Fatalf("load inventory b: %v", err)
	}
	if invA.AvailableQty != 2 || invA.ReservedQty != 3 {
		t.Fatalf("unexpected inventory a state: %+v", invA)
	}
	if invA.Status != enums.StockStatusLowStock {
		t.Fatalf("expected low stock status, got %s", invA.Status)
	}
	if invB.AvailableQty != 0 || invB.ReservedQty != 1 {
		t.Fatalf("unexpected inventory b state: %+v", invB)
	}
	if invB.Status != enums.StockStatusOutOfStock {
		t.Fatalf("expected out of stock status, got %s", invB.Status)
	}

	var pending int64
	if err := db.Model(&models.InventoryReservation{}).
		Where("status = ?", enums.ReservationStatusPending).
		Count(&pending).Error; err != nil {
		t.Fatalf("count reservations: %v", err)
	}
	if pending != 2 {
		t.Fatalf("expected 2 pending reservations, got %d", pending)
	}
}

func TestReserveInvalidQty(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	variant := uuid.New()
	if err := db.Create(&models.InventoryItem{VariantID: variant, AvailableQty: 5}).Error; err != nil {
		t.Fatalf("seed inventory: %v", err)
	}

	_, err := Reserve(ctx, db, []ReservationRequest{{VariantID: variant, Qty: 0}}, 15*time.Minute, 5)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestReserveUnknownVariant(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	results, err := Reserve(ctx, db, []ReservationRequest{{VariantID: uuid.New(), Qty: 1}}, 15*time.Minute, 5)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if len(results) != 1 || results[0].Reserved {
		t.Fatalf("expected failed result: %+v", results)
	}
	if results[0].Reason != "variant is not stocked" {
		t.Fatalf("unexpected reason: %q", results[0].Reason)
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:inventory_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.InventoryItem{}, &models.InventoryReservation{}); err != nil {
		t.Fatalf("migrate inventory: %v", err)
	}
	return db
}
