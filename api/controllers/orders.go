package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/akhilnathan/shopsite-backend/api/middleware"
	"github.com/akhilnathan/shopsite-backend/api/responses"
	"github.com/akhilnathan/shopsite-backend/api/validators"
	ordersvc "github.com/akhilnathan/shopsite-backend/internal/orders"
	"github.com/akhilnathan/shopsite-backend/pkg/db/models"
	"github.com/akhilnathan/shopsite-backend/pkg/enums"
	pkgerrors "github.com/akhilnathan/shopsite-backend/pkg/errors"
	"github.com/akhilnathan/shopsite-backend/pkg/logger"
	"github.com/akhilnathan/shopsite-backend/pkg/pagination"
)

type orderItemResponse struct {
	VariantID uuid.UUID       `json:"variant_id"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type orderStatusEventResponse struct {
	Status    string    `json:"status"`
	ChangedAt time.Time `json:"changed_at"`
}

type orderResponse struct {
	ID            uuid.UUID                  `json:"id"`
	Status        string                     `json:"status"`
	PaymentStatus string                     `json:"payment_status"`
	Subtotal      decimal.Decimal            `json:"subtotal"`
	Discount      decimal.Decimal            `json:"discount"`
	Total         decimal.Decimal            `json:"total"`
	Items         []orderItemResponse        `json:"items,omitempty"`
	StatusHistory []orderStatusEventResponse `json:"status_history,omitempty"`
	TransactionID string                     `json:"transaction_id,omitempty"`
	DeliveredAt   *time.Time                 `json:"delivered_at,omitempty"`
	CancelledAt   *time.Time                 `json:"cancelled_at,omitempty"`
	CreatedAt     time.Time                  `json:"created_at"`
}

func newOrderResponse(order *models.Order) orderResponse {
	resp := orderResponse{
		ID:            order.ID,
		Status:        string(order.Status),
		PaymentStatus: string(order.PaymentStatus),
		Subtotal:      order.Subtotal,
		Discount:      order.Discount,
		Total:         order.Total,
		DeliveredAt:   order.DeliveredAt,
		CancelledAt:   order.CancelledAt,
		CreatedAt:     order.CreatedAt,
	}
	for _, item := range order.Items {
		resp.Items = append(resp.Items, orderItemResponse{
			VariantID: item.VariantID,
			Title:     item.Title,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			LineTotal: item.LineTotal,
		})
	}
	for _, event := range order.StatusEvents {
		resp.StatusHistory = append(resp.StatusHistory, orderStatusEventResponse{
			Status:    string(event.Status),
			ChangedAt: event.ChangedAt,
		})
	}
	if order.Transaction != nil {
		resp.TransactionID = order.Transaction.TransactionID
	}
	return resp
}

type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Total  int64           `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// OrdersList returns the caller's orders, newest first.
func OrdersList(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		params := pagination.FromRequest(r)

		var status *enums.OrderStatus
		if raw := r.URL.Query().Get("status"); raw != "" {
			parsed, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			status = &parsed
		}

		orders, total, err := svc.List(r.Context(), userID, params, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := orderListResponse{
			Orders: make([]orderResponse, 0, len(orders)),
			Total:  total,
			Limit:  params.Limit,
			Offset: params.Offset,
		}
		for i := range orders {
			resp.Orders = append(resp.Orders, newOrderResponse(&orders[i]))
		}
		responses.WriteSuccess(w, resp)
	}
}

// OrderDetail returns one order with items, history and transaction.
func OrderDetail(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := ordersvc.Actor{
			UserID:  middleware.UserIDFromContext(r.Context()),
			IsAdmin: middleware.IsAdminFromContext(r.Context()),
		}

		order, err := svc.Get(r.Context(), orderID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// OrderCancel moves the caller's order to CANCELLED and restores stock.
func OrderCancel(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := ordersvc.Actor{
			UserID:  middleware.UserIDFromContext(r.Context()),
			IsAdmin: middleware.IsAdminFromContext(r.Context()),
		}

		order, err := svc.AdvanceStatus(r.Context(), orderID, enums.OrderStatusCancelled, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}
