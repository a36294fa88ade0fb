package inventory

import (
	"context"
	"time"

	"github.com/akhilnathan/shopsite-backend/pkg/db/models"
	"github.com/akhilnathan/shopsite-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an inventory repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindItem(ctx context.Context, variantID uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := r.db.WithContext(ctx).
		Where("variant_id = ?", variantID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) FindItems(ctx context.Context, variantIDs []uuid.UUID) ([]models.InventoryItem, error) {
	if len(variantIDs) == 0 {
		return nil, nil
	}
	var items []models.InventoryItem
	err := r.db.WithContext(ctx).
		Where("variant_id IN ?", variantIDs).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) UpsertItem(ctx context.Context, item *models.InventoryItem) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "variant_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"available_qty", "reserved_qty", "status", "updated_at"}),
		}).
		Create(item).Error
}

// ReserveStock moves qty from available to reserved. The WHERE guard makes
// the decrement safe under concurrent checkouts; a zero rows-affected result
// means the stock was not there.
func (r *repository) ReserveStock(ctx context.Context, variantID uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("variant_id = ? AND available_qty >= ?", variantID, qty).
		Updates(map[string]any{
			"available_qty": gorm.Expr("available_qty - ?", qty),
			"reserved_qty":  gorm.Expr("reserved_qty + ?", qty),
			"updated_at":    time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// CommitReserved burns a reserved hold: the units leave the ledger entirely.
func (r *repository) CommitReserved(ctx context.Context, variantID uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("variant_id = ? AND reserved_qty >= ?", variantID, qty).
		Updates(map[string]any{
			"reserved_qty": gorm.Expr("reserved_qty - ?", qty),
			"updated_at":   time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ReleaseReserved returns a reserved hold to availability.
func (r *repository) ReleaseReserved(ctx context.Context, variantID uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("variant_id = ? AND reserved_qty >= ?", variantID, qty).
		Updates(map[string]any{
			"available_qty": gorm.Expr("available_qty + ?", qty),
			"reserved_qty":  gorm.Expr("reserved_qty - ?", qty),
			"updated_at":    time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// AdjustAvailable applies an absolute delta to available stock. Negative
// deltas are guarded so the count never goes below zero.
func (r *repository) AdjustAvailable(ctx context.Context, variantID uuid.UUID, delta int) (bool, error) {
	query := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("variant_id = ?", variantID)
	if delta < 0 {
		query = query.Where("available_qty >= ?", -delta)
	}
	res := query.Updates(map[string]any{
		"available_qty": gorm.Expr("available_qty + ?", delta),
		"updated_at":    time.Now().UTC(),
	})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) RefreshStatus(ctx context.Context, variantID uuid.UUID, lowStockThreshold int) error {
	return r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("variant_id = ?", variantID).
		Update("status", gorm.Expr(
			"CASE WHEN available_qty <= 0 THEN ? WHEN available_qty <= ? THEN ? ELSE ? END",
			enums.StockStatusOutOfStock.String(),
			lowStockThreshold,
			enums.StockStatusLowStock.String(),
			enums.StockStatusInStock.String(),
		)).Error
}

func (r *repository) CreateReservation(ctx context.Context, reservation *models.InventoryReservation) error {
	return r.db.WithContext(ctx).Create(reservation).Error
}

func (r *repository) FindReservation(ctx context.Context, id uuid.UUID) (*models.InventoryReservation, error) {
	var reservation models.InventoryReservation
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&reservation).Error
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

// TransitionReservation flips a reservation row between lifecycle states.
// The from-state guard makes the flip idempotent under racing sweeps.
func (r *repository) TransitionReservation(ctx context.Context, id uuid.UUID, from, to string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.InventoryReservation{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{
			"status":     to,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) FindExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]models.InventoryReservation, error) {
	var reservations []models.InventoryReservation
	query := r.db.WithContext(ctx).
		Where("status = ? AND expires_at <= ?", enums.ReservationStatusPending.String(), cutoff).
		Order("expires_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&reservations).Error; err != nil {
		return nil, err
	}
	return reservations, nil
}
