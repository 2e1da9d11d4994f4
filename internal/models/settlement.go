package models

import (
	"time"

	"github.com/google/uuid"
)

type SettlementStatus string

const (
	// SettlementStatusCreated exists only between quote freeze and gateway
	// acceptance; it is never persisted.
	SettlementStatusCreated SettlementStatus = "created"
	// SettlementStatusPending is persisted before the shopper is redirected.
	SettlementStatusPending SettlementStatus = "pending"
	// SettlementStatusVerifying marks the one-time token as consumed while the
	// gateway verify call is in flight.
	SettlementStatusVerifying SettlementStatus = "verifying"
	SettlementStatusSucceeded SettlementStatus = "succeeded"
	SettlementStatusFailed    SettlementStatus = "failed"
	// SettlementStatusAbandoned is a pending transaction that never received a
	// callback. It is unresolved, not failed.
	SettlementStatusAbandoned SettlementStatus = "abandoned"
)

func (s SettlementStatus) Terminal() bool {
	switch s {
	case SettlementStatusSucceeded, SettlementStatusFailed, SettlementStatusAbandoned:
		return true
	}

	return false
}

type FailureReason string

const (
	FailureReasonNone          FailureReason = ""
	FailureReasonUserCancelled FailureReason = "user_cancelled"
	FailureReasonGatewayReject FailureReason = "gateway_rejected"
	FailureReasonVerification  FailureReason = "verification_error"
)

// SettlementTransaction tracks one attempt to pay for a cart through the
// external gateway, from request through verification. Amount is frozen at
// creation and never recomputed from the live cart.
type SettlementTransaction struct {
	ID                uuid.UUID        `json:"id"`
	OwnerKey          string           `json:"owner_key"`
	Items             []CartLine       `json:"items"`
	ShippingMethod    ShippingMethod   `json:"shipping_method"`
	ShippingCost      int64            `json:"shipping_cost"`
	Destination       Destination      `json:"destination"`
	CouponID          *uuid.UUID       `json:"coupon_id,omitempty"`
	Amount            int64            `json:"amount"`
	AuthorityToken    string           `json:"authority_token"`
	VerificationToken string           `json:"verification_token"`
	Status            SettlementStatus `json:"status"`
	FailureReason     FailureReason    `json:"failure_reason,omitempty"`
	ReferenceID       string           `json:"reference_id,omitempty"`
	OrderID           *uuid.UUID       `json:"order_id,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	ResolvedAt        *time.Time       `json:"resolved_at,omitempty"`
}

// SettlementResolution is the durable outcome of a settlement transaction,
// returned verbatim on callback replays.
type SettlementResolution struct {
	TransactionID uuid.UUID        `json:"transaction_id"`
	Status        SettlementStatus `json:"status"`
	FailureReason FailureReason    `json:"failure_reason,omitempty"`
	ReferenceID   string           `json:"reference_id,omitempty"`
	OrderID       *uuid.UUID       `json:"order_id,omitempty"`
}

// QuoteRequest previews pricing for the current cart without opening a
// settlement.
type QuoteRequest struct {
	ShippingMethod ShippingMethod `json:"shipping_method" validate:"required"`
	City           string         `json:"city" validate:"required"`
	CouponCode     string         `json:"coupon_code,omitempty"`
}

// CheckoutRequest is the submit payload of the checkout orchestrator.
type CheckoutRequest struct {
	ShippingMethod ShippingMethod `json:"shipping_method" validate:"required"`
	Destination    Destination    `json:"destination" validate:"required"`
	CouponCode     string         `json:"coupon_code,omitempty"`
}

// CheckoutResponse carries the gateway redirect for a freshly opened
// settlement transaction.
type CheckoutResponse struct {
	PendingID   uuid.UUID `json:"pending_id"`
	RedirectURL string    `json:"redirect_url"`
	Quote       *Quote    `json:"quote"`
}
