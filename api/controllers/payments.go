package controllers

import (
	"net/http"

	"github.com/angelmondragon/movemarket-backend/api/responses"
	"github.com/angelmondragon/movemarket-backend/api/validators"
	"github.com/angelmondragon/movemarket-backend/internal/payments"
	pkgerrors "github.com/angelmondragon/movemarket-backend/pkg/errors"
	"github.com/angelmondragon/movemarket-backend/pkg/logger"
)

type bidPaymentSheetRequest struct {
	BidID         int64  `json:"bid_id" validate:"required,min=1"`
	CustomerEmail string `json:"customer_email" validate:"required,email"`
}

type orderPaymentSheetRequest struct {
	OrderID       string `json:"order_id" validate:"required,max=64"`
	CustomerEmail string `json:"customer_email" validate:"required,email"`
}

// CreatePaymentSheet answers the mobile payment sheet for a bid. The body is
// returned without the data envelope because the app reads the keys directly.
func CreatePaymentSheet(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		var body bidPaymentSheetRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithField(ctx, "bid_id", body.BidID)
		}

		sheet, err := svc.CreatePaymentSheet(ctx, body.BidID, body.CustomerEmail)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteRaw(w, http.StatusOK, sheet)
	}
}

// CreateOrderPaymentSheet is the checkout-flow variant keyed by order id.
func CreateOrderPaymentSheet(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		var body orderPaymentSheetRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithField(ctx, "order_id", body.OrderID)
		}

		sheet, err := svc.CreateOrderPaymentSheet(ctx, body.OrderID, body.CustomerEmail)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteRaw(w, http.StatusOK, sheet)
	}
}
