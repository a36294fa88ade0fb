package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/akhilnathan/shopsite-backend/api/middleware"
	"github.com/akhilnathan/shopsite-backend/api/responses"
	"github.com/akhilnathan/shopsite-backend/api/validators"
	cartsvc "github.com/akhilnathan/shopsite-backend/internal/cart"
	checkoutsvc "github.com/akhilnathan/shopsite-backend/internal/checkout"
	couponsvc "github.com/akhilnathan/shopsite-backend/internal/coupons"
	"github.com/akhilnathan/shopsite-backend/pkg/enums"
	pkgerrors "github.com/akhilnathan/shopsite-backend/pkg/errors"
	"github.com/akhilnathan/shopsite-backend/pkg/logger"
)

type quoteLineResponse struct {
	VariantID uuid.UUID       `json:"variant_id"`
	ProductID uuid.UUID       `json:"product_id"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type pricedQuoteResponse struct {
	Lines      []quoteLineResponse `json:"lines"`
	Subtotal   decimal.Decimal     `json:"subtotal"`
	CouponCode string              `json:"coupon_code,omitempty"`
	Discount   decimal.Decimal     `json:"discount"`
	Total      decimal.Decimal     `json:"total"`
}

func newPricedQuoteResponse(priced *couponsvc.PricedQuote) pricedQuoteResponse {
	resp := pricedQuoteResponse{
		CouponCode: priced.CouponCode,
		Discount:   priced.Discount,
		Total:      priced.Total,
	}
	if priced.Quote != nil {
		resp.Subtotal = priced.Quote.Subtotal
		resp.Lines = make([]quoteLineResponse, 0, len(priced.Quote.Lines))
		for _, line := range priced.Quote.Lines {
			resp.Lines = append(resp.Lines, quoteLineResponse{
				VariantID: line.VariantID,
				ProductID: line.ProductID,
				Title:     line.Title,
				UnitPrice: line.UnitPrice,
				Quantity:  line.Quantity,
				LineTotal: line.LineTotal,
			})
		}
	}
	return resp
}

type checkoutQuoteRequest struct {
	CouponCode *string `json:"coupon_code,omitempty"`
}

// CheckoutQuote prices the current cart without committing anything. The
// same evaluation runs again inside the commit, so the preview matches the
// charge unless stock or pricing moves in between.
func CheckoutQuote(carts cartsvc.Service, coupons couponsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())

		var payload checkoutQuoteRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		quote, err := carts.BuildQuote(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		priced := coupons.Price(quote)
		if payload.CouponCode != nil && *payload.CouponCode != "" {
			priced, err = coupons.Apply(r.Context(), quote, *payload.CouponCode, userID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		responses.WriteSuccess(w, newPricedQuoteResponse(priced))
	}
}

type checkoutRequest struct {
	CouponCode    *string `json:"coupon_code,omitempty"`
	PaymentMethod string  `json:"payment_method" validate:"required"`
}

type checkoutResponse struct {
	OrderID       uuid.UUID       `json:"order_id"`
	Status        string          `json:"status"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	Total         decimal.Decimal `json:"total"`
	PaymentStatus string          `json:"payment_status"`
}

// Checkout commits the caller's cart into a PENDING order.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(payload.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		order, err := svc.Commit(r.Context(), userID, checkoutsvc.CommitInput{
			CouponCode:    payload.CouponCode,
			PaymentMethod: method,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, checkoutResponse{
			OrderID:       order.ID,
			Status:        string(order.Status),
			Subtotal:      order.Subtotal,
			Discount:      order.Discount,
			Total:         order.Total,
			PaymentStatus: string(order.PaymentStatus),
		})
	}
}
