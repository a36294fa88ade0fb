package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	checkoutsvc "github.com/akhilnathan/shopsite-backend/internal/checkout"
	"github.com/akhilnathan/shopsite-backend/pkg/db/models"
	"github.com/akhilnathan/shopsite-backend/pkg/enums"
	pkgerrors "github.com/akhilnathan/shopsite-backend/pkg/errors"
)

type stubCheckoutService struct {
	order *models.Order
	err   error
	input checkoutsvc.CommitInput
}

func (s *stubCheckoutService) Commit(ctx context.Context, userID uuid.UUID, input checkoutsvc.CommitInput) (*models.Order, error) {
	s.input = input
	return s.order, s.err
}

func TestCheckoutCreated(t *testing.T) {
	order := &models.Order{
		ID:            uuid.New(),
		Status:        enums.OrderStatusPending,
		PaymentStatus: enums.PaymentStatusPending,
		Subtotal:      decimal.RequireFromString("20.00"),
		Discount:      decimal.RequireFromString("2.00"),
		Total:         decimal.RequireFromString("18.00"),
	}
	svc := &stubCheckoutService{order: order}
	handler := Checkout(svc, nil)

	body := `{"coupon_code":"SAVE10","payment_method":"CARD"}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/checkout", &body))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	if svc.input.PaymentMethod != enums.PaymentMethodCard {
		t.Fatalf("unexpected payment method %q", svc.input.PaymentMethod)
	}
	if svc.input.CouponCode == nil || *svc.input.CouponCode != "SAVE10" {
		t.Fatalf("coupon code not forwarded: %v", svc.input.CouponCode)
	}

	var envelope struct {
		Data checkoutResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.OrderID != order.ID {
		t.Fatalf("unexpected order id %s", envelope.Data.OrderID)
	}
	if !envelope.Data.Total.Equal(order.Total) {
		t.Fatalf("unexpected total %s", envelope.Data.Total)
	}
}

func TestCheckoutRejectsUnknownPaymentMethod(t *testing.T) {
	handler := Checkout(&stubCheckoutService{}, nil)

	body := `{"payment_method":"BARTER"}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/checkout", &body))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCheckoutInsufficientStockMapsTo409(t *testing.T) {
	svc := &stubCheckoutService{err: pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock")}
	handler := Checkout(svc, nil)

	body := `{"payment_method":"CARD"}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/checkout", &body))

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
}
