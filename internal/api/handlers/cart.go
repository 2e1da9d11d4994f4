package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/kilnandclay/storefront/internal/api/middleware"
	appErrors "github.com/kilnandclay/storefront/internal/errors"
	"github.com/kilnandclay/storefront/internal/models"
	service "github.com/kilnandclay/storefront/internal/services"
	"github.com/kilnandclay/storefront/internal/utils"
	"github.com/kilnandclay/storefront/internal/utils/response"
)

type CartHandler struct {
	cartService *service.CartService
	validator   *validator.Validate
}

func NewCartHandler(cartService *service.CartService) *CartHandler {
	return &CartHandler{
		cartService: cartService,
		validator:   validator.New(),
	}
}

func shopperOrFail(w http.ResponseWriter, r *http.Request) (models.Shopper, bool) {
	shopper, ok := middleware.ShopperFromContext(r.Context())
	if !ok {
		response.Error(w, appErrors.UnauthorizedError("Shopper identity is required"))
	}

	return shopper, ok
}

func (h *CartHandler) GetCart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		shopper, ok := shopperOrFail(w, r)
		if !ok {
			return
		}

		cart, err := h.cartService.GetCart(r.Context(), shopper)
		if err != nil {
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusOK, map[string]any{
			"cart":   cart,
			"totals": cart.Totals(),
		})
	}
}

func (h *CartHandler) AddItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		shopper, ok := shopperOrFail(w, r)
		if !ok {
			return
		}

		var req models.AddItemRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			return
		}

		cart, err := h.cartService.AddItem(r.Context(), shopper, &req)
		if err != nil {
			middleware.LoggerFromContext(r.Context()).Error("Failed to add cart item", slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusOK, cart)
	}
}

func (h *CartHandler) UpdateQuantity() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		shopper, ok := shopperOrFail(w, r)
		if !ok {
			return
		}

		var req models.UpdateQuantityRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			return
		}

		cart, err := h.cartService.UpdateQuantity(r.Context(), shopper, &req)
		if err != nil {
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusOK, cart)
	}
}

func (h *CartHandler) RemoveItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		shopper, ok := shopperOrFail(w, r)
		if !ok {
			return
		}

		productID, err := uuid.Parse(r.PathValue("productId"))
		if err != nil {
			response.Error(w, appErrors.ValidationError("Invalid product id"))
			return
		}

		cart, err := h.cartService.RemoveItem(r.Context(), shopper, productID, r.URL.Query().Get("color"))
		if err != nil {
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusOK, cart)
	}
}

func (h *CartHandler) ClearCart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		shopper, ok := shopperOrFail(w, r)
		if !ok {
			return
		}

		if err := h.cartService.ClearCart(r.Context(), shopper); err != nil {
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusOK, map[string]string{"status": "cleared"})
	}
}

// MergeCart reconciles the device-local guest cart into the authenticated
// shopper's remote cart. Requires both a bearer token and the guest cart
// token header.
func (h *CartHandler) MergeCart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		shopper, ok := shopperOrFail(w, r)
		if !ok {
			return
		}

		if !shopper.Authenticated() {
			response.Error(w, appErrors.UnauthorizedError("Cart merge requires authentication"))
			return
		}

		cart, err := h.cartService.MergeGuestCart(r.Context(), shopper.UserID, shopper.GuestToken)
		if err != nil {
			middleware.LoggerFromContext(r.Context()).Error("Cart merge failed", slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusOK, cart)
	}
}
