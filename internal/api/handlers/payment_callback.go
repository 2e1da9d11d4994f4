package handlers

import (
	"log/slog"
	"net/http"

	"github.com/kilnandclay/storefront/internal/api/middleware"
	service "github.com/kilnandclay/storefront/internal/services"
	"github.com/kilnandclay/storefront/internal/utils/response"
	"github.com/kilnandclay/storefront/pkg/gateway"
)

type PaymentCallbackHandler struct {
	settlementService *service.SettlementService
}

func NewPaymentCallbackHandler(settlementService *service.SettlementService) *PaymentCallbackHandler {
	return &PaymentCallbackHandler{settlementService: settlementService}
}

// Callback is the browser-facing endpoint the gateway redirects back to. It
// is reached by full page navigation and may arrive more than once; the
// settlement service answers replays with the original resolution.
func (h *PaymentCallbackHandler) Callback() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		query := r.URL.Query()

		params := service.CallbackParams{
			GatewayStatus: query.Get(gateway.ParamStatus),
			Authority:     query.Get(gateway.ParamAuthority),
			PendingID:     query.Get(service.CallbackParamPendingID),
			Token:         query.Get(service.CallbackParamToken),
		}

		res, err := h.settlementService.HandleCallback(r.Context(), params)
		if err != nil {
			middleware.LoggerFromContext(r.Context()).Warn("Payment callback rejected", slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}

		middleware.LoggerFromContext(r.Context()).Info("Payment callback resolved",
			slog.String("pending_id", res.TransactionID.String()),
			slog.String("status", string(res.Status)),
			slog.String("reason", string(res.FailureReason)))

		// Failed resolutions keep their reason so the client can suggest the
		// right retry: back to payment for a rejection, back to cart
		// otherwise.
		response.Success(w, http.StatusOK, res)
	}
}
