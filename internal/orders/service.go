package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akhilnathan/shopsite-backend/pkg/db/models"
	"github.com/akhilnathan/shopsite-backend/pkg/enums"
	pkgerrors "github.com/akhilnathan/shopsite-backend/pkg/errors"
	"github.com/akhilnathan/shopsite-backend/pkg/logger"
	"github.com/akhilnathan/shopsite-backend/pkg/outbox"
	"github.com/akhilnathan/shopsite-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockRestorer interface {
	ReleaseCommitted(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, qty int) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Actor identifies who drives a transition.
type Actor struct {
	UserID  uuid.UUID
	IsAdmin bool
}

// Service exposes order reads and the status state machine.
type Service interface {
	Get(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error)
	List(ctx context.Context, userID uuid.UUID, params pagination.Params, status *enums.OrderStatus) ([]models.Order, int64, error)
	AdvanceStatus(ctx context.Context, orderID uuid.UUID, newStatus enums.OrderStatus, actor Actor) (*models.Order, error)
	MarkPaymentResult(ctx context.Context, orderID uuid.UUID, success bool) (*models.Order, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	stock  stockRestorer
	events outboxPublisher
	logg   *logger.Logger
}

// NewService builds an orders service backed by the provided stack.
func NewService(repo Repository, tx txRunner, stock stockRestorer, events outboxPublisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock restorer required")
	}
	if events == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, stock: stock, events: events, logg: logg}, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if !actor.IsAdmin && order.UserID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, params pagination.Params, status *enums.OrderStatus) ([]models.Order, int64, error) {
	orders, total, err := s.repo.List(ctx, userID, params, status)
	if err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return orders, total, nil
}

// AdvanceStatus applies one edge of the status graph. The head update is
// guarded on the current status, the history row is appended in the same
// transaction, and a cancel from PENDING/CONFIRMED puts the committed stock
// back into the ledger.
func (s *service) AdvanceStatus(ctx context.Context, orderID uuid.UUID, newStatus enums.OrderStatus, actor Actor) (*models.Order, error) {
	if !newStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	order, err := s.Get(ctx, orderID, actor)
	if err != nil {
		return nil, err
	}

	// Shoppers may only cancel their own pending/confirmed orders; every
	// other edge is an admin move.
	if !actor.IsAdmin && newStatus != enums.OrderStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to change order status")
	}

	if !CanTransition(order.Status, newStatus) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "invalid status transition").
			WithDetails(map[string]any{"from": order.Status, "to": newStatus})
	}

	now := time.Now().UTC()
	extra := map[string]any{}
	switch newStatus {
	case enums.OrderStatusDelivered:
		extra["delivered_at"] = now
	case enums.OrderStatusCancelled:
		extra["cancelled_at"] = now
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		ok, err := repo.UpdateStatusHead(ctx, orderID, order.Status, newStatus, extra)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
		}

		if err := repo.CreateStatusEvent(ctx, &models.OrderStatusEvent{
			ID:      uuid.New(),
			OrderID: orderID,
			Status:  newStatus,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status event")
		}

		if newStatus == enums.OrderStatusCancelled {
			for _, item := range order.Items {
				if err := s.stock.ReleaseCommitted(ctx, tx, item.VariantID, item.Quantity); err != nil {
					return err
				}
			}
		}

		eventType := enums.EventOrderStatusChanged
		if newStatus == enums.OrderStatusCancelled {
			eventType = enums.EventOrderCancelled
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, IsAdmin: actor.IsAdmin},
			Data: map[string]any{
				"order_id": orderID,
				"from":     order.Status,
				"to":       newStatus,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	octx := s.logg.WithFields(ctx, map[string]any{
		"order_id": orderID.String(),
		"from":     order.Status.String(),
		"to":       newStatus.String(),
	})
	s.logg.Info(octx, "order status advanced")

	return s.repo.FindByID(ctx, orderID)
}

// MarkPaymentResult flips the transaction row and drives the order head:
// success confirms it, failure fails it and puts the committed stock back,
// same as a cancel. System-driven, so it bypasses the actor permission
// check.
func (s *service) MarkPaymentResult(ctx context.Context, orderID uuid.UUID, success bool) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment result only applies to pending orders")
	}

	paymentStatus := enums.PaymentStatusSuccess
	orderStatus := enums.OrderStatusConfirmed
	if !success {
		paymentStatus = enums.PaymentStatusFailed
		orderStatus = enums.OrderStatusFailed
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if ok, err := repo.UpdateTransactionStatus(ctx, orderID, paymentStatus); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update transaction")
		} else if !ok {
			return pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}
		if _, err := repo.UpdatePaymentStatus(ctx, orderID, paymentStatus); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment status")
		}

		ok, err := repo.UpdateStatusHead(ctx, orderID, enums.OrderStatusPending, orderStatus, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
		}

		if err := repo.CreateStatusEvent(ctx, &models.OrderStatusEvent{
			ID:      uuid.New(),
			OrderID: orderID,
			Status:  orderStatus,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status event")
		}

		if orderStatus == enums.OrderStatusFailed {
			for _, item := range order.Items {
				if err := s.stock.ReleaseCommitted(ctx, tx, item.VariantID, item.Quantity); err != nil {
					return err
				}
			}
		}

		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Data: map[string]any{
				"order_id":       orderID,
				"from":           enums.OrderStatusPending,
				"to":             orderStatus,
				"payment_status": paymentStatus,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	return s.repo.FindByID(ctx, orderID)
}
