package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/kilnandclay/storefront/internal/api/middleware"
	"github.com/kilnandclay/storefront/internal/models"
	service "github.com/kilnandclay/storefront/internal/services"
	"github.com/kilnandclay/storefront/internal/utils"
	"github.com/kilnandclay/storefront/internal/utils/response"
)

type CheckoutHandler struct {
	checkoutService *service.CheckoutService
	validator       *validator.Validate
}

func NewCheckoutHandler(checkoutService *service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
		validator:       validator.New(),
	}
}

// Quote previews pricing for the current cart: subtotal, shipping, coupon
// discount and the amount that would be collected online.
func (h *CheckoutHandler) Quote() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		shopper, ok := shopperOrFail(w, r)
		if !ok {
			return
		}

		var req models.QuoteRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			return
		}

		quote, err := h.checkoutService.Quote(r.Context(), shopper, &req)
		if err != nil {
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusOK, quote)
	}
}

// Submit opens a settlement transaction and returns the gateway redirect URL.
func (h *CheckoutHandler) Submit() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		shopper, ok := shopperOrFail(w, r)
		if !ok {
			return
		}

		var req models.CheckoutRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			return
		}

		result, err := h.checkoutService.Submit(r.Context(), shopper, &req)
		if err != nil {
			middleware.LoggerFromContext(r.Context()).Warn("Checkout submission rejected", slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}

		middleware.LoggerFromContext(r.Context()).Info("Checkout submitted",
			slog.String("pending_id", result.PendingID.String()),
			slog.Int64("amount", result.Quote.Total))

		response.Success(w, http.StatusCreated, result)
	}
}
