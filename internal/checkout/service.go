package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/akhilnathan/shopsite-backend/internal/cart"
	"github.com/akhilnathan/shopsite-backend/internal/coupons"
	"github.com/akhilnathan/shopsite-backend/internal/inventory"
	"github.com/akhilnathan/shopsite-backend/pkg/db"
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

type quoteBuilder interface {
	BuildQuote(ctx context.Context, userID uuid.UUID) (*cart.Quote, error)
	ClearPurchased(ctx context.Context, tx *gorm.DB, userID uuid.UUID, purchased []cart.PurchasedLine) error
}

type couponApplier interface {
	Apply(ctx context.Context, quote *cart.Quote, code string, userID uuid.UUID) (*coupons.PricedQuote, error)
	Price(quote *cart.Quote) *coupons.PricedQuote
}

type stockHolder interface {
	Reserve(ctx context.Context, requests []inventory.ReservationRequest) ([]inventory.ReservationResult, error)
	CommitReservations(ctx context.Context, tx *gorm.DB, reservationIDs []uuid.UUID) error
	ReleaseReservations(ctx context.Context, reservationIDs []uuid.UUID) error
}

type usageWriter interface {
	WithTx(tx *gorm.DB) coupons.Repository
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// CommitInput captures the checkout payload.
type CommitInput struct {
	CouponCode    *string
	PaymentMethod enums.PaymentMethod
}

// Service turns a cart into a PENDING order atomically.
type Service interface {
	Commit(ctx context.Context, userID uuid.UUID, input CommitInput) (*models.Order, error)
}

type service struct {
	tx         txRunner
	repo       Repository
	cartSvc    quoteBuilder
	couponSvc  couponApplier
	stock      stockHolder
	couponRepo usageWriter
	events     outboxPublisher
	logg       *logger.Logger
	metrics    *metrics.CheckoutMetrics
}

// NewService builds the checkout service.
func NewService(
	tx txRunner,
	repo Repository,
	cartSvc quoteBuilder,
	couponSvc couponApplier,
	stock stockHolder,
	couponRepo usageWriter,
	events outboxPublisher,
	logg *logger.Logger,
	checkoutMetrics *metrics.CheckoutMetrics,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("checkout repository required")
	}
	if cartSvc == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if couponSvc == nil {
		return nil, fmt.Errorf("coupon service required")
	}
	if stock == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if couponRepo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	if events == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:         tx,
		repo:       repo,
		cartSvc:    cartSvc,
		couponSvc:  couponSvc,
		stock:      stock,
		couponRepo: couponRepo,
		events:     events,
		logg:       logg,
		metrics:    checkoutMetrics,
	}, nil
}

// Commit prices the cart, holds stock, and persists the order in a single
// transaction. The reservations are taken before the transaction; any
// failure inside it releases them again.
func (s *service) Commit(ctx context.Context, userID uuid.UUID, input CommitInput) (*models.Order, error) {
	started := time.Now()
	order, err := s.commit(ctx, userID, input)
	s.metrics.ObserveCommit(outcomeLabel(err), time.Since(started))
	return order, err
}

func (s *service) commit(ctx context.Context, userID uuid.UUID, input CommitInput) (*models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}

	quote, err := s.cartSvc.BuildQuote(ctx, userID)
	if err != nil {
		return nil, err
	}

	priced := s.couponSvc.Price(quote)
	if input.CouponCode != nil && *input.CouponCode != "" {
		priced, err = s.couponSvc.Apply(ctx, quote, *input.CouponCode, userID)
		if err != nil {
			return nil, err
		}
	}

	requests := make([]inventory.ReservationRequest, 0, len(quote.Lines))
	purchased := make([]cart.PurchasedLine, 0, len(quote.Lines))
	for _, line := range quote.Lines {
		requests = append(requests, inventory.ReservationRequest{VariantID: line.VariantID, Qty: line.Quantity})
		purchased = append(purchased, cart.PurchasedLine{VariantID: line.VariantID, Quantity: line.Quantity})
	}

	results, err := s.stock.Reserve(ctx, requests)
	if err != nil {
		return nil, err
	}
	reservationIDs := make([]uuid.UUID, 0, len(results))
	for _, result := range results {
		reservationIDs = append(reservationIDs, result.ReservationID)
	}

	order := buildOrder(userID, priced)

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if err := repo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		items := make([]models.OrderItem, 0, len(priced.Quote.Lines))
		for _, line := range priced.Quote.Lines {
			items = append(items, models.OrderItem{
				ID:        uuid.New(),
				OrderID:   order.ID,
				VariantID: line.VariantID,
				Title:     line.Title,
				UnitPrice: line.UnitPrice,
				Quantity:  line.Quantity,
				LineTotal: line.LineTotal,
			})
		}
		if err := repo.CreateOrderItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order items")
		}
		order.Items = items

		if err := repo.CreateStatusEvent(ctx, &models.OrderStatusEvent{
			ID:      uuid.New(),
			OrderID: order.ID,
			Status:  enums.OrderStatusPending,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create status event")
		}

		txn := &models.Transaction{
			ID:            uuid.New(),
			OrderID:       order.ID,
			UserID:        userID,
			TransactionID: "TXN-" + uuid.NewString(),
			Amount:        order.Total,
			PaymentMethod: input.PaymentMethod,
			Status:        enums.PaymentStatusPending,
		}
		if err := repo.CreateTransaction(ctx, txn); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create transaction")
		}
		order.Transaction = txn

		if priced.CouponID != nil {
			usage := &models.CouponUsage{
				ID:       uuid.New(),
				UserID:   userID,
				CouponID: *priced.CouponID,
				OrderID:  order.ID,
			}
			if err := s.couponRepo.WithTx(tx).CreateUsage(ctx, usage); err != nil {
				if db.IsUniqueViolation(err, "idx_coupon_usages_user_coupon_order") {
					return pkgerrors.New(pkgerrors.CodeConflict, "coupon already used")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record coupon usage")
			}
		}

		if err := s.stock.CommitReservations(ctx, tx, reservationIDs); err != nil {
			return err
		}
		if err := s.cartSvc.ClearPurchased(ctx, tx, userID, purchased); err != nil {
			return err
		}

		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: userID},
			Data: map[string]any{
				"order_id": order.ID,
				"user_id":  userID,
				"subtotal": order.Subtotal,
				"discount": order.Discount,
				"total":    order.Total,
			},
		})
	})
	if err != nil {
		if relErr := s.stock.ReleaseReservations(ctx, reservationIDs); relErr != nil {
			s.logg.Error(ctx, "release reservations after failed checkout", relErr)
		}
		return nil, err
	}

	octx := s.logg.WithOrderID(s.logg.WithUserID(ctx, userID.String()), order.ID.String())
	s.logg.Info(octx, "checkout committed")
	return order, nil
}

func buildOrder(userID uuid.UUID, priced *coupons.PricedQuote) *models.Order {
	return &models.Order{
		ID:            uuid.New(),
		UserID:        userID,
		Subtotal:      priced.Quote.Subtotal,
		Discount:      priced.Discount,
		Total:         priced.Total,
		Status:        enums.OrderStatusPending,
		PaymentStatus: enums.PaymentStatusPending,
		CouponID:      priced.CouponID,
	}
}

func outcomeLabel(err error) string {
	if err == nil {
		return "success"
	}
	if typed := pkgerrors.As(err); typed != nil {
		return string(typed.Code())
	}
	return "error"
}
