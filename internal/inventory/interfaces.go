package inventory

import (
	"context"
	"time"

	"github.com/akhilnathan/shopsite-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence operations for the inventory ledger and its
// reservation rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindItem(ctx context.Context, variantID uuid.UUID) (*models.InventoryItem, error)
	FindItems(ctx context.Context, variantIDs []uuid.UUID) ([]models.InventoryItem, error)
	UpsertItem(ctx context.Context, item *models.InventoryItem) error
	ReserveStock(ctx context.Context, variantID uuid.UUID, qty int) (bool, error)
	CommitReserved(ctx context.Context, variantID uuid.UUID, qty int) (bool, error)
	ReleaseReserved(ctx context.Context, variantID uuid.UUID, qty int) (bool, error)
	AdjustAvailable(ctx context.Context, variantID uuid.UUID, delta int) (bool, error)
	RefreshStatus(ctx context.Context, variantID uuid.UUID, lowStockThreshold int) error
	CreateReservation(ctx context.Context, reservation *models.InventoryReservation) error
	FindReservation(ctx context.Context, id uuid.UUID) (*models.InventoryReservation, error)
	TransitionReservation(ctx context.Context, id uuid.UUID, from, to string) (bool, error)
	FindExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]models.InventoryReservation, error)
}
