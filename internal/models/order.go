package models

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusPendingFulfillment OrderStatus = "pending_fulfillment"
	OrderStatusShipping           OrderStatus = "shipping"
	OrderStatusDelivered          OrderStatus = "delivered"
	OrderStatusCancelled          OrderStatus = "cancelled"
)

// OrderItem is an immutable snapshot of a cart line at settlement time,
// decoupled from the live product record.
type OrderItem struct {
	ID        uuid.UUID `json:"id"`
	OrderID   uuid.UUID `json:"order_id"`
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Color     string    `json:"color,omitempty"`
	ImageURL  string    `json:"image_url,omitempty"`
	UnitPrice int64     `json:"unit_price"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
}

// Order is created only by the order materializer, exactly once per
// successfully verified settlement transaction.
type Order struct {
	ID             uuid.UUID      `json:"id"`
	SettlementID   uuid.UUID      `json:"settlement_id"`
	OwnerKey       string         `json:"owner_key"`
	Status         OrderStatus    `json:"status"`
	TotalAmount    int64          `json:"total_amount"`
	ShippingMethod ShippingMethod `json:"shipping_method"`
	ShippingCost   int64          `json:"shipping_cost"`
	CouponID       *uuid.UUID     `json:"coupon_id,omitempty"`
	Destination    Destination    `json:"destination"`
	Items          []OrderItem    `json:"items"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

type MovementType string

const (
	MovementTypeSale MovementType = "sale"
)

// InventoryMovement is one row of the append-only stock ledger. The
// (ReferenceID, ProductID, MovementType) triple is unique so a settled
// transaction can never decrement stock twice.
type InventoryMovement struct {
	ID            uuid.UUID    `json:"id"`
	ProductID     uuid.UUID    `json:"product_id"`
	QuantityDelta int          `json:"quantity_delta"`
	MovementType  MovementType `json:"movement_type"`
	ReferenceID   uuid.UUID    `json:"reference_id"`
	CreatedAt     time.Time    `json:"created_at"`
}
