package inventory

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/akhilnathan/shopsite-backend/pkg/db/models"
	"github.com/akhilnathan/shopsite-backend/pkg/enums"
	pkgerrors "github.com/akhilnathan/shopsite-backend/pkg/errors"
	"github.com/akhilnathan/shopsite-backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r *gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	svc, err := NewService(
		NewRepository(db),
		&gormTxRunner{db: db},
		logger.New(logger.Options{Output: io.Discard}),
		nil,
		nil,
		Config{ReservationTTL: 15 * time.Minute, LowStockThreshold: 5},
	)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc, db
}

func seedItem(t *testing.T, db *gorm.DB, variantID uuid.UUID, available, reserved int) {
	t.Helper()
	item := models.InventoryItem{
		VariantID:    variantID,
		AvailableQty: available,
		ReservedQty:  reserved,
		Status:       enums.StockStatusFor(available, 5),
	}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("seed inventory: %v", err)
	}
}

func loadItem(t *testing.T, db *gorm.DB, variantID uuid.UUID) models.InventoryItem {
	t.Helper()
	var item models.InventoryItem
	if err := db.First(&item, "variant_id = ?", variantID).Error; err != nil {
		t.Fatalf("load inventory: %v", err)
	}
	return item
}

func TestServiceReserveAllOrNothing(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	variant := uuid.New()
	seedItem(t, db, variant, 5, 0)

	_, err := svc.Reserve(ctx, []ReservationRequest{
		{VariantID: variant, Qty: 3},
		{VariantID: variant, Qty: 4},
	})
	if err == nil {
		t.Fatal("expected insufficient stock error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("unexpected error: %v", err)
	}

	item := loadItem(t, db, variant)
	if item.AvailableQty != 5 || item.ReservedQty != 0 {
		t.Fatalf("expected rollback to leave ledger untouched: %+v", item)
	}
}

func TestServiceReserveThenCommit(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	variant := uuid.New()
	seedItem(t, db, variant, 5, 0)

	results, err := svc.Reserve(ctx, []ReservationRequest{{VariantID: variant, Qty: 2}})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		return svc.CommitReservations(ctx, tx, []uuid.UUID{results[0].ReservationID})
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	item := loadItem(t, db, variant)
	if item.AvailableQty != 3 || item.ReservedQty != 0 {
		t.Fatalf("unexpected ledger after commit: %+v", item)
	}

	var reservation models.InventoryReservation
	if err := db.First(&reservation, "id = ?", results[0].ReservationID).Error; err != nil {
		t.Fatalf("load reservation: %v", err)
	}
	if reservation.Status != enums.ReservationStatusCommitted {
		t.Fatalf("expected committed reservation, got %s", reservation.Status)
	}
}

func TestServiceCommitTwiceFails(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	variant := uuid.New()
	seedItem(t, db, variant, 5, 0)

	results, err := svc.Reserve(ctx, []ReservationRequest{{VariantID: variant, Qty: 2}})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}

	ids := []uuid.UUID{results[0].ReservationID}
	if err := db.Transaction(func(tx *gorm.DB) error {
		return svc.CommitReservations(ctx, tx, ids)
	}); err != nil {
		t.Fatalf("first commit: %v", err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		return svc.CommitReservations(ctx, tx, ids)
	})
	if err == nil {
		t.Fatal("expected second commit to fail")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestServiceReleaseReservations(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	variant := uuid.New()
	seedItem(t, db, variant, 5, 0)

	results, err := svc.Reserve(ctx, []ReservationRequest{{VariantID: variant, Qty: 4}})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}

	if err := svc.ReleaseReservations(ctx, []uuid.UUID{results[0].ReservationID}); err != nil {
		t.Fatalf("release: %v", err)
	}

	item := loadItem(t, db, variant)
	if item.AvailableQty != 5 || item.ReservedQty != 0 {
		t.Fatalf("unexpected ledger after release: %+v", item)
	}
	if item.Status != enums.StockStatusInStock {
		t.Fatalf("expected in stock status, got %s", item.Status)
	}
}

func TestServiceReleaseSkipsAlreadySweptSiblings(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	first := uuid.New()
	second := uuid.New()
	seedItem(t, db, first, 5, 0)
	seedItem(t, db, second, 5, 0)

	results, err := svc.Reserve(ctx, []ReservationRequest{
		{VariantID: first, Qty: 2},
		{VariantID: second, Qty: 3},
	})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}

	// The sweep beat the checkout rollback to the first reservation.
	if err := db.Model(&models.InventoryReservation{}).
		Where("id = ?", results[0].ReservationID).
		Updates(map[string]any{"status": enums.ReservationStatusReleased}).Error; err != nil {
		t.Fatalf("flip reservation: %v", err)
	}

	ids := []uuid.UUID{results[0].ReservationID, results[1].ReservationID}
	if err := svc.ReleaseReservations(ctx, ids); err != nil {
		t.Fatalf("release: %v", err)
	}

	if item := loadItem(t, db, second); item.AvailableQty != 5 || item.ReservedQty != 0 {
		t.Fatalf("sibling hold not restored: %+v", item)
	}
}

func TestServiceReleaseTwiceIsNoOp(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	variant := uuid.New()
	seedItem(t, db, variant, 5, 0)

	results, err := svc.Reserve(ctx, []ReservationRequest{{VariantID: variant, Qty: 4}})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}

	ids := []uuid.UUID{results[0].ReservationID}
	if err := svc.ReleaseReservations(ctx, ids); err != nil {
		t.Fatalf("first release: %v", err)
	}
	if err := svc.ReleaseReservations(ctx, ids); err != nil {
		t.Fatalf("second release: %v", err)
	}

	if item := loadItem(t, db, variant); item.AvailableQty != 5 || item.ReservedQty != 0 {
		t.Fatalf("double release moved the ledger: %+v", item)
	}
}

func TestServiceReleaseExpired(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	variant := uuid.New()
	seedItem(t, db, variant, 0, 3)

	reservation := models.InventoryReservation{
		ID:        uuid.New(),
		VariantID: variant,
		Qty:       3,
		Status:    enums.ReservationStatusPending,
		ExpiresAt: time.Now().UTC().Add(-time.Minute),
	}
	if err := db.Create(&reservation).Error; err != nil {
		t.Fatalf("seed reservation: %v", err)
	}

	fresh := models.InventoryReservation{
		ID:        uuid.New(),
		VariantID: variant,
		Qty:       1,
		Status:    enums.ReservationStatusPending,
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}
	if err := db.Create(&fresh).Error; err != nil {
		t.Fatalf("seed fresh reservation: %v", err)
	}

	released, err := svc.ReleaseExpired(ctx, time.Now().UTC(), 100)
	if err != nil {
		t.Fatalf("release expired: %v", err)
	}
	if released != 1 {
		t.Fatalf("expected 1 released, got %d", released)
	}

	item := loadItem(t, db, variant)
	if item.AvailableQty != 3 || item.ReservedQty != 0 {
		t.Fatalf("unexpected ledger after sweep: %+v", item)
	}

	var swept models.InventoryReservation
	if err := db.First(&swept, "id = ?", reservation.ID).Error; err != nil {
		t.Fatalf("load swept reservation: %v", err)
	}
	if swept.Status != enums.ReservationStatusReleased {
		t.Fatalf("expected released status, got %s", swept.Status)
	}
}

func TestServiceAdjustStock(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	variant := uuid.New()
	seedItem(t, db, variant, 2, 0)

	item, err := svc.AdjustStock(ctx, variant, 10)
	if err != nil {
		t.Fatalf("adjust up: %v", err)
	}
	if item.AvailableQty != 12 || item.Status != enums.StockStatusInStock {
		t.Fatalf("unexpected item after increase: %+v", item)
	}

	item, err = svc.AdjustStock(ctx, variant, -9)
	if err != nil {
		t.Fatalf("adjust down: %v", err)
	}
	if item.AvailableQty != 3 || item.Status != enums.StockStatusLowStock {
		t.Fatalf("unexpected item after decrease: %+v", item)
	}

	_, err = svc.AdjustStock(ctx, variant, -100)
	if err == nil {
		t.Fatal("expected negative stock guard")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("unexpected error: %v", err)
	}

	if loaded := loadItem(t, db, variant); loaded.AvailableQty != 3 {
		t.Fatalf("guard should leave stock untouched: %+v", loaded)
	}
}

func TestServiceAdjustStockCreatesMissingRow(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	variant := uuid.New()

	item, err := svc.AdjustStock(ctx, variant, 4)
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if item.AvailableQty != 4 || item.Status != enums.StockStatusLowStock {
		t.Fatalf("unexpected created item: %+v", item)
	}
}

func TestServiceAvailability(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	stocked := uuid.New()
	seedItem(t, db, stocked, 7, 1)

	out, err := svc.Availability(ctx, []uuid.UUID{stocked, uuid.New()})
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected single row, got %d", len(out))
	}
	if got := out[stocked]; got.AvailableQty != 7 || got.ReservedQty != 1 {
		t.Fatalf("unexpected row: %+v", got)
	}
}
