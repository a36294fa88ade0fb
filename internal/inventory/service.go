package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akhilnathan/shopsite-backend/pkg/db/models"
	"github.com/akhilnathan/shopsite-backend/pkg/enums"
	pkgerrors "github.com/akhilnathan/shopsite-backend/pkg/errors"
	"github.com/akhilnathan/shopsite-backend/pkg/logger"
	"github.com/akhilnathan/shopsite-backend/pkg/metrics"
	"github.com/akhilnathan/shopsite-backend/pkg/outbox"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the inventory ledger operations.
type Service interface {
	Reserve(ctx context.Context, requests []ReservationRequest) ([]ReservationResult, error)
	CommitReservations(ctx context.Context, tx *gorm.DB, reservationIDs []uuid.UUID) error
	ReleaseReservations(ctx context.Context, reservationIDs []uuid.UUID) error
	ReleaseCommitted(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, qty int) error
	ReleaseExpired(ctx context.Context, now time.Time, limit int) (int, error)
	AdjustStock(ctx context.Context, variantID uuid.UUID, delta int) (*models.InventoryItem, error)
	Availability(ctx context.Context, variantIDs []uuid.UUID) (map[uuid.UUID]models.InventoryItem, error)
}

type service struct {
	repo              Repository
	tx                txRunner
	logg              *logger.Logger
	events            *outbox.Service
	checkoutMetrics   *metrics.CheckoutMetrics
	reservationTTL    time.Duration
	lowStockThreshold int
}

// Config carries the tunables for the inventory service.
type Config struct {
	ReservationTTL    time.Duration
	LowStockThreshold int
}

// NewService builds an inventory service backed by the provided stack.
func NewService(repo Repository, tx txRunner, logg *logger.Logger, events *outbox.Service, checkoutMetrics *metrics.CheckoutMetrics, cfg Config) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.ReservationTTL <= 0 {
		return nil, fmt.Errorf("reservation ttl must be positive")
	}
	if cfg.LowStockThreshold < 0 {
		return nil, fmt.Errorf("low stock threshold must be non-negative")
	}
	return &service{
		repo:              repo,
		tx:                tx,
		logg:              logg,
		events:            events,
		checkoutMetrics:   checkoutMetrics,
		reservationTTL:    cfg.ReservationTTL,
		lowStockThreshold: cfg.LowStockThreshold,
	}, nil
}

// Reserve holds stock for every request or none of them. A single variant
// without enough availability rolls the whole set back and surfaces the
// failing lines in the error details.
func (s *service) Reserve(ctx context.Context, requests []ReservationRequest) ([]ReservationResult, error) {
	if len(requests) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one reservation request is required")
	}

	var results []ReservationResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var terr error
		results, terr = Reserve(ctx, tx, requests, s.reservationTTL, s.lowStockThreshold)
		if terr != nil {
			return terr
		}

		var failed []map[string]any
		for _, result := range results {
			if !result.Reserved {
				failed = append(failed, map[string]any{
					"variant_id": result.VariantID,
					"reason":     result.Reason,
				})
			}
		}
		if len(failed) > 0 {
			s.checkoutMetrics.IncReservationConflict()
			return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").
				WithDetails(map[string]any{"lines": failed})
		}
		return nil
	})
	if err != nil {
		return results, err
	}
	return results, nil
}

// CommitReservations finalizes pending holds inside the caller's checkout
// transaction. Committed units leave the ledger.
func (s *service) CommitReservations(ctx context.Context, tx *gorm.DB, reservationIDs []uuid.UUID) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction handle is required")
	}
	repo := s.repo.WithTx(tx)

	for _, id := range reservationIDs {
		reservation, err := repo.FindReservation(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reservation")
		}

		ok, err := repo.TransitionReservation(ctx, id, enums.ReservationStatusPending.String(), enums.ReservationStatusCommitted.String())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "commit reservation")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "reservation is no longer pending")
		}

		if ok, err := repo.CommitReserved(ctx, reservation.VariantID, reservation.Qty); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "commit reserved stock")
		} else if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "reserved stock below reservation qty")
		}
		if err := repo.RefreshStatus(ctx, reservation.VariantID, s.lowStockThreshold); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh stock status")
		}
	}
	return nil
}

// ReleaseReservations returns pending holds to availability, e.g. when a
// checkout fails after reserving. Releasing is idempotent: a reservation
// that is no longer pending (already committed, released, or swept) is
// skipped so the remaining holds still come back.
func (s *service) ReleaseReservations(ctx context.Context, reservationIDs []uuid.UUID) error {
	if len(reservationIDs) == 0 {
		return nil
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		for _, id := range reservationIDs {
			if _, err := releaseOne(ctx, repo, id, s.lowStockThreshold); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReleaseCommitted restores units that already left the ledger, used when a
// paid-for order is cancelled. Runs inside the caller's transaction.
func (s *service) ReleaseCommitted(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, qty int) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction handle is required")
	}
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "release qty must be positive")
	}
	repo := s.repo.WithTx(tx)
	if ok, err := repo.AdjustAvailable(ctx, variantID, qty); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore stock")
	} else if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
	}
	return repo.RefreshStatus(ctx, variantID, s.lowStockThreshold)
}

// ReleaseExpired sweeps pending reservations whose TTL has lapsed and puts
// the held units back into availability. Returns the number released.
func (s *service) ReleaseExpired(ctx context.Context, now time.Time, limit int) (int, error) {
	expired, err := s.repo.FindExpiredPending(ctx, now, limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list expired reservations")
	}
	if len(expired) == 0 {
		return 0, nil
	}

	released := 0
	for _, reservation := range expired {
		var done bool
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			var terr error
			done, terr = releaseOne(ctx, s.repo.WithTx(tx), reservation.ID, s.lowStockThreshold)
			return terr
		})
		if err != nil {
			return released, err
		}
		if !done {
			continue // another worker got it first
		}
		released++

		rctx := s.logg.WithFields(ctx, map[string]any{
			"reservation_id": reservation.ID.String(),
			"variant_id":     reservation.VariantID.String(),
			"qty":            reservation.Qty,
		})
		s.logg.Info(rctx, "expired reservation released")
	}

	s.checkoutMetrics.AddReservationsSwept(released)
	if s.events != nil && released > 0 {
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			return s.events.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventInventoryReleased,
				AggregateType: enums.AggregateInventory,
				AggregateID:   uuid.New(),
				Data:          map[string]any{"released": released, "swept_at": now.UTC()},
			})
		})
		if err != nil {
			s.logg.Error(ctx, "emit inventory released event", err)
		}
	}
	return released, nil
}

// AdjustStock applies an admin stock delta and returns the fresh ledger row.
func (s *service) AdjustStock(ctx context.Context, variantID uuid.UUID, delta int) (*models.InventoryItem, error) {
	if variantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant id is required")
	}
	if delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock delta must be non-zero")
	}

	var item *models.InventoryItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		ok, err := repo.AdjustAvailable(ctx, variantID, delta)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust stock")
		}
		if !ok {
			if _, err := repo.FindItem(ctx, variantID); errors.Is(err, gorm.ErrRecordNotFound) {
				if delta < 0 {
					return pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
				}
				item = &models.InventoryItem{
					VariantID:    variantID,
					AvailableQty: delta,
					Status:       enums.StockStatusFor(delta, s.lowStockThreshold),
				}
				return repo.UpsertItem(ctx, item)
			} else if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory item")
			}
			return pkgerrors.New(pkgerrors.CodeConflict, "stock cannot go negative")
		}

		if err := repo.RefreshStatus(ctx, variantID, s.lowStockThreshold); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh stock status")
		}
		item, err = repo.FindItem(ctx, variantID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload inventory item")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Availability returns the ledger rows for the requested variants, keyed by
// variant id. Variants without a row are simply absent from the map.
func (s *service) Availability(ctx context.Context, variantIDs []uuid.UUID) (map[uuid.UUID]models.InventoryItem, error) {
	items, err := s.repo.FindItems(ctx, variantIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory items")
	}
	out := make(map[uuid.UUID]models.InventoryItem, len(items))
	for _, item := range items {
		out[item.VariantID] = item
	}
	return out, nil
}

// releaseOne flips a single pending reservation to released and restores its
// units. A reservation that is no longer pending reports false with no error;
// only the worker that wins the transition touches the ledger.
func releaseOne(ctx context.Context, repo Repository, id uuid.UUID, lowStockThreshold int) (bool, error) {
	reservation, err := repo.FindReservation(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reservation")
	}

	ok, err := repo.TransitionReservation(ctx, id, enums.ReservationStatusPending.String(), enums.ReservationStatusReleased.String())
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release reservation")
	}
	if !ok {
		return false, nil
	}

	if ok, err := repo.ReleaseReserved(ctx, reservation.VariantID, reservation.Qty); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release reserved stock")
	} else if !ok {
		return false, pkgerrors.New(pkgerrors.CodeStateConflict, "reserved stock below reservation qty")
	}
	return true, repo.RefreshStatus(ctx, reservation.VariantID, lowStockThreshold)
}
