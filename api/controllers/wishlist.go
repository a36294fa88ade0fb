package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/akhilnathan/shopsite-backend/api/middleware"
	"github.com/akhilnathan/shopsite-backend/api/responses"
	"github.com/akhilnathan/shopsite-backend/api/validators"
	wishlistsvc "github.com/akhilnathan/shopsite-backend/internal/wishlist"
	"github.com/akhilnathan/shopsite-backend/pkg/db/models"
	"github.com/akhilnathan/shopsite-backend/pkg/logger"
)

type wishlistItemResponse struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	Title     string    `json:"title,omitempty"`
	AddedAt   time.Time `json:"added_at"`
}

func newWishlistItemResponse(item *models.WishlistItem) wishlistItemResponse {
	resp := wishlistItemResponse{
		ID:        item.ID,
		ProductID: item.ProductID,
		AddedAt:   item.CreatedAt,
	}
	if item.Product != nil {
		resp.Title = item.Product.Title
	}
	return resp
}

// WishlistFetch returns the caller's wishlist.
func WishlistFetch(svc wishlistsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())

		items, err := svc.List(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := make([]wishlistItemResponse, 0, len(items))
		for i := range items {
			resp = append(resp, newWishlistItemResponse(&items[i]))
		}
		responses.WriteSuccess(w, map[string]any{"items": resp})
	}
}

type wishlistAddRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
}

// WishlistAdd saves a product; re-adding is a no-op returning the existing
// entry.
func WishlistAdd(svc wishlistsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())

		var payload wishlistAddRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Add(r.Context(), userID, payload.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newWishlistItemResponse(item))
	}
}

// WishlistRemove drops a product from the wishlist.
func WishlistRemove(svc wishlistsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())

		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Remove(r.Context(), userID, productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"removed": productID})
	}
}
