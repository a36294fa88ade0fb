package controllers

import (
	"net/http"

	"github.com/akhilnathan/shopsite-backend/api/middleware"
	"github.com/akhilnathan/shopsite-backend/api/responses"
	"github.com/akhilnathan/shopsite-backend/api/validators"
	ordersvc "github.com/akhilnathan/shopsite-backend/internal/orders"
	"github.com/akhilnathan/shopsite-backend/pkg/enums"
	pkgerrors "github.com/akhilnathan/shopsite-backend/pkg/errors"
	"github.com/akhilnathan/shopsite-backend/pkg/logger"
)

type adminOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// AdminOrderStatus drives the status state machine for fulfillment staff.
func AdminOrderStatus(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload adminOrderStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseOrderStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status"))
			return
		}

		actor := ordersvc.Actor{
			UserID:  middleware.UserIDFromContext(r.Context()),
			IsAdmin: true,
		}

		order, err := svc.AdvanceStatus(r.Context(), orderID, status, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

type adminPaymentResultRequest struct {
	Success *bool `json:"success" validate:"required"`
}

// AdminPaymentResult records the gateway outcome for a PENDING order,
// confirming or failing it.
func AdminPaymentResult(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload adminPaymentResultRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.MarkPaymentResult(r.Context(), orderID, *payload.Success)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}
