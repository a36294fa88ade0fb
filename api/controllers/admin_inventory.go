package controllers

import (
	"net/http"

	"github.com/akhilnathan/shopsite-backend/api/responses"
	"github.com/akhilnathan/shopsite-backend/api/validators"
	inventorysvc "github.com/akhilnathan/shopsite-backend/internal/inventory"
	pkgerrors "github.com/akhilnathan/shopsite-backend/pkg/errors"
	"github.com/akhilnathan/shopsite-backend/pkg/logger"
)

type adminInventoryAdjustRequest struct {
	Delta int `json:"delta"`
}

type inventoryResponse struct {
	VariantID    string `json:"variant_id"`
	AvailableQty int    `json:"available_qty"`
	ReservedQty  int    `json:"reserved_qty"`
	Status       string `json:"status"`
}

// AdminInventoryAdjust applies a signed delta to a variant's available
// stock. Negative deltas fail when they would take the ledger below zero.
func AdminInventoryAdjust(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		variantID, err := validators.ParseUUIDParam(r, "variantId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload adminInventoryAdjustRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.Delta == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "delta must be non-zero"))
			return
		}

		item, err := svc.AdjustStock(r.Context(), variantID, payload.Delta)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, inventoryResponse{
			VariantID:    item.VariantID.String(),
			AvailableQty: item.AvailableQty,
			ReservedQty:  item.ReservedQty,
			Status:       string(item.Status),
		})
	}
}
