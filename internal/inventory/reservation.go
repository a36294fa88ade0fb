package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/akhilnathan/shopsite-backend/pkg/db/models"
	"github.com/akhilnathan/shopsite-backend/pkg/enums"
	pkgerrors "github.com/akhilnathan/shopsite-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReservationRequest asks for a hold of Qty units on one variant.
type ReservationRequest struct {
	VariantID uuid.UUID
	Qty       int
}

// ReservationResult reports the outcome for one request. Reason is set only
// when Reserved is false.
type ReservationResult struct {
	VariantID     uuid.UUID
	ReservationID uuid.UUID
	Reserved      bool
	Reason        string
}

// Reserve takes time-bounded holds on the requested variants inside the
// caller's transaction. Each request is attempted independently; the caller
// inspects the results and decides whether to keep or roll back the
// transaction. Invalid input fails the whole call.
func Reserve(ctx context.Context, tx *gorm.DB, requests []ReservationRequest, ttl time.Duration, lowStockThreshold int) ([]ReservationResult, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction handle is required")
	}
	for _, req := range requests {
		if req.VariantID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant id is required")
		}
		if req.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "reservation qty must be positive")
		}
	}

	repo := NewRepository(tx)
	expiresAt := time.Now().UTC().Add(ttl)
	results := make([]ReservationResult, 0, len(requests))

	for _, req := range requests {
		result := ReservationResult{VariantID: req.VariantID}

		ok, err := repo.ReserveStock(ctx, req.VariantID, req.Qty)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve stock")
		}
		if !ok {
			if _, err := repo.FindItem(ctx, req.VariantID); errors.Is(err, gorm.ErrRecordNotFound) {
				result.Reason = "variant is not stocked"
			} else if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory item")
			} else {
				result.Reason = "insufficient stock"
			}
			results = append(results, result)
			continue
		}

		reservation := &models.InventoryReservation{
			ID:        uuid.New(),
			VariantID: req.VariantID,
			Qty:       req.Qty,
			Status:    enums.ReservationStatusPending,
			ExpiresAt: expiresAt,
		}
		if err := repo.CreateReservation(ctx, reservation); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create reservation")
		}
		if err := repo.RefreshStatus(ctx, req.VariantID, lowStockThreshold); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh stock status")
		}

		result.Reserved = true
		result.ReservationID = reservation.ID
		results = append(results, result)
	}

	return results, nil
}
