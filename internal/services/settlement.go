package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/kilnandclay/storefront/internal/config"
	"github.com/kilnandclay/storefront/internal/errors"
	"github.com/kilnandclay/storefront/internal/metrics"
	"github.com/kilnandclay/storefront/internal/models"
	repository "github.com/kilnandclay/storefront/internal/repositories"
	"github.com/kilnandclay/storefront/pkg/gateway"
)

// Callback query parameters owned by this service. The gateway appends its
// own Status and Authority parameters to the same URL.
const (
	CallbackParamPendingID = "pending_id"
	CallbackParamToken     = "token"
)

// CallbackParams are the raw query parameters of one gateway callback
// arrival.
type CallbackParams struct {
	GatewayStatus string
	Authority     string
	PendingID     string
	Token         string
}

// SettlementService drives the payment lifecycle: open a transaction at the
// gateway, persist it durably before the browser leaves, and resolve it
// exactly once when the callback arrives.
type SettlementService struct {
	repo    repository.SettlementRepository
	gateway gateway.Client
	orders  *OrderService
	cfg     config.Gateway
}

func NewSettlementService(repo repository.SettlementRepository, gw gateway.Client, orders *OrderService, cfg config.Gateway) *SettlementService {
	return &SettlementService{repo: repo, gateway: gw, orders: orders, cfg: cfg}
}

func newVerificationToken() (string, error) {
	buf := make([]byte, 32)

	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate verification token: %w", err)
	}

	return hex.EncodeToString(buf), nil
}

func (s *SettlementService) callbackURL(pendingID uuid.UUID, token string) string {
	q := url.Values{}
	q.Set(CallbackParamPendingID, pendingID.String())
	q.Set(CallbackParamToken, token)

	return s.cfg.CallbackURL + "?" + q.Encode()
}

// Open freezes the quote into a settlement transaction, reserves it at the
// gateway and persists the pending record. The redirect URL is returned only
// after the record is durable: nothing needed to finish the flow lives in
// browser memory.
func (s *SettlementService) Open(ctx context.Context, shopper models.Shopper, quote *models.Quote, items []models.CartLine, req *models.CheckoutRequest, couponID *uuid.UUID) (*models.CheckoutResponse, error) {
	logger := slog.Default()

	pendingID := uuid.New()

	token, err := newVerificationToken()
	if err != nil {
		return nil, errors.InternalError("Failed to open settlement").WithError(err)
	}

	session, err := s.gateway.RequestPayment(ctx, &gateway.PaymentRequest{
		Amount:       quote.Total,
		Description:  fmt.Sprintf("Order of %d item(s)", len(items)),
		ContactPhone: req.Destination.Phone,
		CallbackURL:  s.callbackURL(pendingID, token),
		OrderRef:     pendingID.String(),
	})
	if err != nil {
		metrics.GatewayRequestFailures.Inc()
		return nil, errors.GatewayError("Failed to open payment transaction").WithError(err)
	}

	txn := &models.SettlementTransaction{
		ID:                pendingID,
		OwnerKey:          shopper.Key(),
		Items:             items,
		ShippingMethod:    req.ShippingMethod,
		ShippingCost:      quote.ShippingCost,
		Destination:       req.Destination,
		CouponID:          couponID,
		Amount:            quote.Total,
		AuthorityToken:    session.AuthorityToken,
		VerificationToken: token,
		Status:            models.SettlementStatusPending,
		CreatedAt:         time.Now(),
	}

	// If the pending record cannot be persisted the shopper must not be
	// redirected; the gateway-side reservation simply expires.
	if err := s.repo.CreatePending(ctx, txn); err != nil {
		logger.Error("Failed to persist pending settlement",
			slog.String("pending_id", pendingID.String()),
			slog.String("error", err.Error()))

		return nil, errors.DatabaseError("Failed to persist settlement transaction").WithError(err)
	}

	metrics.SettlementsOpened.Inc()

	return &models.CheckoutResponse{
		PendingID:   pendingID,
		RedirectURL: session.RedirectURL,
		Quote:       quote,
	}, nil
}

func resolution(txn *models.SettlementTransaction) *models.SettlementResolution {
	return &models.SettlementResolution{
		TransactionID: txn.ID,
		Status:        txn.Status,
		FailureReason: txn.FailureReason,
		ReferenceID:   txn.ReferenceID,
		OrderID:       txn.OrderID,
	}
}

// HandleCallback resolves one callback arrival. It is safe under at-least-
// once delivery: the first arrival consumes the one-time verification token
// and every later arrival with the same token is answered with the stored
// resolution, without another gateway verify call or a second order.
func (s *SettlementService) HandleCallback(ctx context.Context, params CallbackParams) (*models.SettlementResolution, error) {
	logger := slog.Default()

	pendingID, err := uuid.Parse(params.PendingID)
	if err != nil {
		return nil, errors.VerificationError("Missing or malformed transaction reference")
	}

	txn, err := s.repo.GetByID(ctx, pendingID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFoundError("Settlement transaction not found")
		}

		return nil, errors.DatabaseError("Failed to load settlement transaction").WithError(err)
	}

	// A callback without the one-time token short-circuits to failure before
	// any gateway verify call. The stored token is spent so the transaction
	// still resolves exactly once.
	if params.Token == "" {
		if txn.Status.Terminal() {
			return resolution(txn), nil
		}

		consumed, err := s.repo.ConsumeToken(ctx, pendingID, txn.VerificationToken)
		if err != nil {
			return nil, errors.DatabaseError("Failed to consume verification token").WithError(err)
		}

		if !consumed {
			return nil, errors.ConflictError("Payment verification is already in progress")
		}

		return s.fail(ctx, txn, models.FailureReasonVerification, "Missing verification token")
	}

	consumed, err := s.repo.ConsumeToken(ctx, pendingID, params.Token)
	if err != nil {
		return nil, errors.DatabaseError("Failed to consume verification token").WithError(err)
	}

	if !consumed {
		return s.replay(ctx, pendingID, params.Token)
	}

	// Token spent: from here exactly one resolution is recorded.
	if params.GatewayStatus != gateway.StatusOK {
		return s.fail(ctx, txn, models.FailureReasonUserCancelled, "Payment was cancelled")
	}

	result, err := s.gateway.VerifyPayment(ctx, &gateway.VerifyRequest{
		AuthorityToken: txn.AuthorityToken,
		Amount:         txn.Amount,
	})
	if err != nil {
		logger.Error("Gateway verify failed",
			slog.String("pending_id", pendingID.String()),
			slog.String("error", err.Error()))

		return s.fail(ctx, txn, models.FailureReasonVerification, "Payment could not be verified")
	}

	if !result.Success {
		return s.fail(ctx, txn, models.FailureReasonGatewayReject, result.ErrorReason)
	}

	return s.succeed(ctx, txn, result.ReferenceID)
}

// replay answers a repeated callback for an already-consumed token. The
// original resolution is returned deterministically; a token mismatch is
// rejected outright.
func (s *SettlementService) replay(ctx context.Context, pendingID uuid.UUID, token string) (*models.SettlementResolution, error) {
	txn, err := s.repo.GetByID(ctx, pendingID)
	if err != nil {
		return nil, errors.DatabaseError("Failed to load settlement transaction").WithError(err)
	}

	if txn.VerificationToken != token {
		return nil, errors.VerificationError("Verification token mismatch")
	}

	if !txn.Status.Terminal() {
		return nil, errors.ConflictError("Payment verification is already in progress")
	}

	metrics.SettlementReplays.Inc()

	return resolution(txn), nil
}

func (s *SettlementService) fail(ctx context.Context, txn *models.SettlementTransaction, reason models.FailureReason, detail string) (*models.SettlementResolution, error) {
	if err := s.repo.Resolve(ctx, txn.ID, models.SettlementStatusFailed, reason, "", nil); err != nil {
		return nil, errors.DatabaseError("Failed to record settlement failure").WithError(err)
	}

	txn.Status = models.SettlementStatusFailed
	txn.FailureReason = reason

	metrics.SettlementsResolved.WithLabelValues(string(models.SettlementStatusFailed), string(reason)).Inc()

	slog.Info("Settlement failed",
		slog.String("pending_id", txn.ID.String()),
		slog.String("reason", string(reason)),
		slog.String("detail", detail))

	return resolution(txn), nil
}

func (s *SettlementService) succeed(ctx context.Context, txn *models.SettlementTransaction, referenceID string) (*models.SettlementResolution, error) {
	logger := slog.Default()

	order, err := s.orders.Materialize(ctx, txn, referenceID)

	var orderID *uuid.UUID
	if err != nil {
		// The charge is captured; the resolution must still be success. The
		// missing order is an operational incident, not a shopper-facing
		// failure.
		logger.Error("Order materialization failed after verified payment",
			slog.String("pending_id", txn.ID.String()),
			slog.String("reference_id", referenceID),
			slog.String("error", err.Error()))
	} else {
		orderID = &order.ID
	}

	if err := s.repo.Resolve(ctx, txn.ID, models.SettlementStatusSucceeded, models.FailureReasonNone, referenceID, orderID); err != nil {
		return nil, errors.DatabaseError("Failed to record settlement success").WithError(err)
	}

	txn.Status = models.SettlementStatusSucceeded
	txn.ReferenceID = referenceID
	txn.OrderID = orderID

	metrics.SettlementsResolved.WithLabelValues(string(models.SettlementStatusSucceeded), "").Inc()

	return resolution(txn), nil
}

// SweepAbandoned moves pending transactions older than the TTL to the
// terminal abandoned status. A transaction that never received a callback is
// unresolved, not failed, so the two stay distinct statuses.
func (s *SettlementService) SweepAbandoned(ctx context.Context, ttl time.Duration) (int64, error) {
	count, err := s.repo.MarkAbandoned(ctx, time.Now().Add(-ttl))
	if err != nil {
		return 0, errors.DatabaseError("Failed to sweep abandoned settlements").WithError(err)
	}

	if count > 0 {
		slog.Info("Swept abandoned settlements", slog.Int64("count", count))
	}

	return count, nil
}
