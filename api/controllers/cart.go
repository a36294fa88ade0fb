package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/akhilnathan/shopsite-backend/api/middleware"
	"github.com/akhilnathan/shopsite-backend/api/responses"
	"github.com/akhilnathan/shopsite-backend/api/validators"
	cartsvc "github.com/akhilnathan/shopsite-backend/internal/cart"
	"github.com/akhilnathan/shopsite-backend/pkg/db/models"
	pkgerrors "github.com/akhilnathan/shopsite-backend/pkg/errors"
	"github.com/akhilnathan/shopsite-backend/pkg/logger"
)

type cartLineResponse struct {
	ID        uuid.UUID        `json:"id"`
	VariantID uuid.UUID        `json:"variant_id"`
	Title     string           `json:"title,omitempty"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
	Quantity  int              `json:"quantity"`
	UpdatedAt time.Time        `json:"updated_at"`
}

type cartResponse struct {
	Lines []cartLineResponse `json:"lines"`
}

func newCartLineResponse(line models.CartLine) cartLineResponse {
	resp := cartLineResponse{
		ID:        line.ID,
		VariantID: line.VariantID,
		Quantity:  line.Quantity,
		UpdatedAt: line.UpdatedAt,
	}
	if line.Variant != nil {
		price := line.Variant.Price
		resp.UnitPrice = &price
		if line.Variant.Product != nil {
			resp.Title = line.Variant.Product.Title
		}
	}
	return resp
}

// CartFetch returns the caller's live cart lines.
func CartFetch(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())

		lines, err := svc.List(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := cartResponse{Lines: make([]cartLineResponse, 0, len(lines))}
		for _, line := range lines {
			resp.Lines = append(resp.Lines, newCartLineResponse(line))
		}
		responses.WriteSuccess(w, resp)
	}
}

type cartAddRequest struct {
	VariantID uuid.UUID `json:"variant_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
}

// CartAddItem merges qty units of a variant into the cart.
func CartAddItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())

		var payload cartAddRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		line, err := svc.Upsert(r.Context(), userID, payload.VariantID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newCartLineResponse(*line))
	}
}

type cartUpdateRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

// CartUpdateItem replaces the quantity of an existing line.
func CartUpdateItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())

		variantID, err := validators.ParseUUIDParam(r, "variantId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cartUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.UpdateQuantity(r.Context(), userID, variantID, payload.Quantity); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"variant_id": variantID, "quantity": payload.Quantity})
	}
}

// CartRemoveItem drops a line from the cart.
func CartRemoveItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())

		variantID, err := validators.ParseUUIDParam(r, "variantId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Remove(r.Context(), userID, variantID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"removed": variantID})
	}
}

// CartClear empties the cart.
func CartClear(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		if userID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		if err := svc.Clear(r.Context(), userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "cleared"})
	}
}
