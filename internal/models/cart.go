package models

import (
	"time"

	"github.com/google/uuid"
)

// CartLine is one purchasable position in a cart. Two lines with the same
// (ProductID, Color) key never coexist; adding the same key merges quantities.
type CartLine struct {
	ProductID   uuid.UUID         `json:"product_id"`
	Name        string            `json:"name"`
	UnitPrice   int64             `json:"unit_price"`
	Quantity    int               `json:"quantity"`
	Color       string            `json:"color,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	WeightGrams int               `json:"weight_grams,omitempty"`
	PrepDays    int               `json:"prep_days,omitempty"`
	ImageURL    string            `json:"image_url,omitempty"`
}

// Key is the line identity inside a cart.
func (l CartLine) Key() string {
	return l.ProductID.String() + "|" + l.Color
}

type Cart struct {
	UserID    uuid.UUID  `json:"user_id,omitempty"`
	Items     []CartLine `json:"items"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CartTotals are derived values, never persisted separately.
type CartTotals struct {
	Subtotal    int64 `json:"subtotal"`
	ItemCount   int   `json:"item_count"`
	WeightGrams int   `json:"weight_grams"`
	MaxPrepDays int   `json:"max_prep_days"`
}

// Totals derives subtotal, item count, shipment weight and the longest
// preparation time of the cart. A non-empty cart needs at least one prep day.
func (c *Cart) Totals() CartTotals {
	var t CartTotals

	for _, line := range c.Items {
		t.Subtotal += line.UnitPrice * int64(line.Quantity)
		t.ItemCount += line.Quantity
		t.WeightGrams += line.WeightGrams * line.Quantity

		if line.PrepDays > t.MaxPrepDays {
			t.MaxPrepDays = line.PrepDays
		}
	}

	if len(c.Items) > 0 && t.MaxPrepDays == 0 {
		t.MaxPrepDays = 1
	}

	return t
}

// FindLine returns the index of the line with the given identity key, or -1.
func (c *Cart) FindLine(key string) int {
	for i, line := range c.Items {
		if line.Key() == key {
			return i
		}
	}

	return -1
}

type AddItemRequest struct {
	ProductID   uuid.UUID         `json:"product_id" validate:"required"`
	Name        string            `json:"name" validate:"required"`
	UnitPrice   int64             `json:"unit_price" validate:"min=0"`
	Quantity    int               `json:"quantity" validate:"omitempty,min=1"`
	Color       string            `json:"color"`
	Attributes  map[string]string `json:"attributes"`
	WeightGrams int               `json:"weight_grams" validate:"omitempty,min=0"`
	PrepDays    int               `json:"prep_days" validate:"omitempty,min=0"`
	ImageURL    string            `json:"image_url"`
}

type UpdateQuantityRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Color     string    `json:"color"`
	Quantity  int       `json:"quantity"`
}
