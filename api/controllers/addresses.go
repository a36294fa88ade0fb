package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/akhilnathan/shopsite-backend/api/middleware"
	"github.com/akhilnathan/shopsite-backend/api/responses"
	"github.com/akhilnathan/shopsite-backend/api/validators"
	addresssvc "github.com/akhilnathan/shopsite-backend/internal/addresses"
	"github.com/akhilnathan/shopsite-backend/pkg/db/models"
	"github.com/akhilnathan/shopsite-backend/pkg/logger"
)

type addressRequest struct {
	Address string `json:"address" validate:"required"`
	City    string `json:"city" validate:"required"`
	State   string `json:"state" validate:"required"`
	Country string `json:"country" validate:"required"`
	Pincode string `json:"pincode" validate:"required"`
}

type addressResponse struct {
	ID      uuid.UUID `json:"id"`
	Address string    `json:"address"`
	City    string    `json:"city"`
	State   string    `json:"state"`
	Country string    `json:"country"`
	Pincode string    `json:"pincode"`
}

func newAddressResponse(addr *models.ShippingAddress) addressResponse {
	return addressResponse{
		ID:      addr.ID,
		Address: addr.Address,
		City:    addr.City,
		State:   addr.State,
		Country: addr.Country,
		Pincode: addr.Pincode,
	}
}

func addressInput(payload addressRequest) addresssvc.Input {
	return addresssvc.Input{
		Address: payload.Address,
		City:    payload.City,
		State:   payload.State,
		Country: payload.Country,
		Pincode: payload.Pincode,
	}
}

// AddressList returns the caller's shipping addresses.
func AddressList(svc addresssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())

		addrs, err := svc.List(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := make([]addressResponse, 0, len(addrs))
		for i := range addrs {
			resp = append(resp, newAddressResponse(&addrs[i]))
		}
		responses.WriteSuccess(w, map[string]any{"addresses": resp})
	}
}

// AddressCreate adds a shipping address.
func AddressCreate(svc addresssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())

		var payload addressRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		addr, err := svc.Create(r.Context(), userID, addressInput(payload))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newAddressResponse(addr))
	}
}

// AddressUpdate replaces one of the caller's addresses.
func AddressUpdate(svc addresssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())

		addressID, err := validators.ParseUUIDParam(r, "addressId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addressRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		addr, err := svc.Update(r.Context(), userID, addressID, addressInput(payload))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newAddressResponse(addr))
	}
}

// AddressDelete removes one of the caller's addresses.
func AddressDelete(svc addresssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())

		addressID, err := validators.ParseUUIDParam(r, "addressId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), userID, addressID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"deleted": addressID})
	}
}
