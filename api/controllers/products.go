package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/akhilnathan/shopsite-backend/api/middleware"
	"github.com/akhilnathan/shopsite-backend/api/responses"
	"github.com/akhilnathan/shopsite-backend/api/validators"
	catalogsvc "github.com/akhilnathan/shopsite-backend/internal/catalog"
	"github.com/akhilnathan/shopsite-backend/pkg/db/models"
	"github.com/akhilnathan/shopsite-backend/pkg/logger"
	"github.com/akhilnathan/shopsite-backend/pkg/pagination"
)

type variantResponse struct {
	ID           uuid.UUID       `json:"id"`
	VariantType  string          `json:"variant_type"`
	VariantValue string          `json:"variant_value"`
	Price        decimal.Decimal `json:"price"`
	IsActive     bool            `json:"is_active"`
	StockStatus  string          `json:"stock_status,omitempty"`
}

type productResponse struct {
	ID          uuid.UUID         `json:"id"`
	Title       string            `json:"title"`
	Description *string           `json:"description,omitempty"`
	BasePrice   decimal.Decimal   `json:"base_price"`
	IsActive    bool              `json:"is_active"`
	Variants    []variantResponse `json:"variants,omitempty"`
}

func newProductResponse(product *models.Product) productResponse {
	resp := productResponse{
		ID:          product.ID,
		Title:       product.Title,
		Description: product.Description,
		BasePrice:   product.BasePrice,
		IsActive:    product.IsActive,
	}
	for _, variant := range product.Variants {
		vr := variantResponse{
			ID:           variant.ID,
			VariantType:  variant.VariantType,
			VariantValue: variant.VariantValue,
			Price:        variant.Price,
			IsActive:     variant.IsActive,
		}
		if variant.Inventory != nil {
			vr.StockStatus = string(variant.Inventory.Status)
		}
		resp.Variants = append(resp.Variants, vr)
	}
	return resp
}

type productListResponse struct {
	Products []productResponse `json:"products"`
	Total    int64             `json:"total"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

// ProductsList returns active catalog entries; admins can include inactive
// ones with ?include_inactive=true.
func ProductsList(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := pagination.FromRequest(r)
		includeInactive := r.URL.Query().Get("include_inactive") == "true" &&
			middleware.IsAdminFromContext(r.Context())

		products, total, err := svc.List(r.Context(), params, includeInactive)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := productListResponse{
			Products: make([]productResponse, 0, len(products)),
			Total:    total,
			Limit:    params.Limit,
			Offset:   params.Offset,
		}
		for i := range products {
			resp.Products = append(resp.Products, newProductResponse(&products[i]))
		}
		responses.WriteSuccess(w, resp)
	}
}

// ProductDetail returns one product with variants and stock status.
func ProductDetail(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Get(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newProductResponse(product))
	}
}

type adminProductCreateRequest struct {
	Title       string          `json:"title" validate:"required"`
	Description *string         `json:"description,omitempty"`
	BasePrice   decimal.Decimal `json:"base_price" validate:"required"`
	IsActive    bool            `json:"is_active"`
}

// AdminProductCreate adds a product with its default variant and an empty
// ledger row.
func AdminProductCreate(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload adminProductCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Create(r.Context(), catalogsvc.CreateProductInput{
			Title:       payload.Title,
			Description: payload.Description,
			BasePrice:   payload.BasePrice,
			IsActive:    payload.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newProductResponse(product))
	}
}

type adminProductUpdateRequest struct {
	Title       *string          `json:"title,omitempty"`
	Description *string          `json:"description,omitempty"`
	BasePrice   *decimal.Decimal `json:"base_price,omitempty"`
	IsActive    *bool            `json:"is_active,omitempty"`
}

// AdminProductUpdate applies a partial update to a product.
func AdminProductUpdate(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload adminProductUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updates := map[string]any{}
		if payload.Title != nil {
			updates["title"] = *payload.Title
		}
		if payload.Description != nil {
			updates["description"] = *payload.Description
		}
		if payload.BasePrice != nil {
			updates["base_price"] = *payload.BasePrice
		}
		if payload.IsActive != nil {
			updates["is_active"] = *payload.IsActive
		}

		product, err := svc.UpdateProduct(r.Context(), productID, updates)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newProductResponse(product))
	}
}
