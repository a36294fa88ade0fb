package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/akhilnathan/shopsite-backend/api/middleware"
	"github.com/akhilnathan/shopsite-backend/api/responses"
	"github.com/akhilnathan/shopsite-backend/api/validators"
	cartsvc "github.com/akhilnathan/shopsite-backend/internal/cart"
	couponsvc "github.com/akhilnathan/shopsite-backend/internal/coupons"
	"github.com/akhilnathan/shopsite-backend/pkg/db/models"
	"github.com/akhilnathan/shopsite-backend/pkg/enums"
	pkgerrors "github.com/akhilnathan/shopsite-backend/pkg/errors"
	"github.com/akhilnathan/shopsite-backend/pkg/logger"
	"github.com/akhilnathan/shopsite-backend/pkg/pagination"
)

// CouponPreview evaluates a code against the caller's current cart without
// consuming a usage.
func CouponPreview(carts cartsvc.Service, coupons couponsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())

		code := strings.TrimSpace(chi.URLParam(r, "code"))
		if code == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "coupon code required"))
			return
		}

		quote, err := carts.BuildQuote(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		priced, err := coupons.Apply(r.Context(), quote, code, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newPricedQuoteResponse(priced))
	}
}

type couponResponse struct {
	ID                uuid.UUID        `json:"id"`
	Code              string           `json:"code"`
	DiscountType      string           `json:"discount_type"`
	DiscountValue     decimal.Decimal  `json:"discount_value"`
	MinOrderAmount    decimal.Decimal  `json:"min_order_amount"`
	MaxDiscountAmount *decimal.Decimal `json:"max_discount_amount,omitempty"`
	ValidFrom         time.Time        `json:"valid_from"`
	ValidTo           time.Time        `json:"valid_to"`
	UsageLimit        int              `json:"usage_limit"`
	IsAvailable       bool             `json:"is_available"`
}

func newCouponResponse(coupon *models.Coupon) couponResponse {
	return couponResponse{
		ID:                coupon.ID,
		Code:              coupon.Code,
		DiscountType:      string(coupon.DiscountType),
		DiscountValue:     coupon.DiscountValue,
		MinOrderAmount:    coupon.MinOrderAmount,
		MaxDiscountAmount: coupon.MaxDiscountAmount,
		ValidFrom:         coupon.ValidFrom,
		ValidTo:           coupon.ValidTo,
		UsageLimit:        coupon.UsageLimit,
		IsAvailable:       coupon.IsAvailable,
	}
}

type adminCouponCreateRequest struct {
	Code              string           `json:"code" validate:"required"`
	DiscountType      string           `json:"discount_type" validate:"required"`
	DiscountValue     decimal.Decimal  `json:"discount_value" validate:"required"`
	MinOrderAmount    decimal.Decimal  `json:"min_order_amount"`
	MaxDiscountAmount *decimal.Decimal `json:"max_discount_amount,omitempty"`
	ValidFrom         time.Time        `json:"valid_from" validate:"required"`
	ValidTo           time.Time        `json:"valid_to" validate:"required"`
	UsageLimit        int              `json:"usage_limit"`
	IsAvailable       bool             `json:"is_available"`
}

// AdminCouponCreate adds a coupon.
func AdminCouponCreate(svc couponsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload adminCouponCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		discountType, err := enums.ParseCouponType(payload.DiscountType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid discount type"))
			return
		}

		coupon, err := svc.Create(r.Context(), couponsvc.CreateInput{
			Code:              payload.Code,
			DiscountType:      discountType,
			DiscountValue:     payload.DiscountValue,
			MinOrderAmount:    payload.MinOrderAmount,
			MaxDiscountAmount: payload.MaxDiscountAmount,
			ValidFrom:         payload.ValidFrom,
			ValidTo:           payload.ValidTo,
			UsageLimit:        payload.UsageLimit,
			IsAvailable:       payload.IsAvailable,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newCouponResponse(coupon))
	}
}

type adminCouponUpdateRequest struct {
	DiscountValue     *decimal.Decimal `json:"discount_value,omitempty"`
	MinOrderAmount    *decimal.Decimal `json:"min_order_amount,omitempty"`
	MaxDiscountAmount *decimal.Decimal `json:"max_discount_amount,omitempty"`
	ValidFrom         *time.Time       `json:"valid_from,omitempty"`
	ValidTo           *time.Time       `json:"valid_to,omitempty"`
	UsageLimit        *int             `json:"usage_limit,omitempty"`
	IsAvailable       *bool            `json:"is_available,omitempty"`
}

// AdminCouponUpdate applies a partial update to a coupon.
func AdminCouponUpdate(svc couponsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		couponID, err := validators.ParseUUIDParam(r, "couponId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload adminCouponUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updates := map[string]any{}
		if payload.DiscountValue != nil {
			updates["discount_value"] = *payload.DiscountValue
		}
		if payload.MinOrderAmount != nil {
			updates["min_order_amount"] = *payload.MinOrderAmount
		}
		if payload.MaxDiscountAmount != nil {
			updates["max_discount_amount"] = *payload.MaxDiscountAmount
		}
		if payload.ValidFrom != nil {
			updates["valid_from"] = *payload.ValidFrom
		}
		if payload.ValidTo != nil {
			updates["valid_to"] = *payload.ValidTo
		}
		if payload.UsageLimit != nil {
			updates["usage_limit"] = *payload.UsageLimit
		}
		if payload.IsAvailable != nil {
			updates["is_available"] = *payload.IsAvailable
		}

		coupon, err := svc.Update(r.Context(), couponID, updates)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCouponResponse(coupon))
	}
}

// AdminCouponDelete removes a coupon.
func AdminCouponDelete(svc couponsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		couponID, err := validators.ParseUUIDParam(r, "couponId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), couponID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"deleted": couponID})
	}
}

type couponListResponse struct {
	Coupons []couponResponse `json:"coupons"`
	Total   int64            `json:"total"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

// AdminCouponList pages through all coupons.
func AdminCouponList(svc couponsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := pagination.FromRequest(r)

		coupons, total, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := couponListResponse{
			Coupons: make([]couponResponse, 0, len(coupons)),
			Total:   total,
			Limit:   params.Limit,
			Offset:  params.Offset,
		}
		for i := range coupons {
			resp.Coupons = append(resp.Coupons, newCouponResponse(&coupons[i]))
		}
		responses.WriteSuccess(w, resp)
	}
}
