package models

type ShippingMethod string

const (
	// ShippingStandard is the nationwide carrier tariff.
	ShippingStandard ShippingMethod = "standard"
	// ShippingCourier is the same-city courier tariff, offered only for the
	// configured courier city.
	ShippingCourier ShippingMethod = "courier"
	// ShippingCOD ships via the standard carrier but the shipping charge is
	// collected on delivery, not online.
	ShippingCOD ShippingMethod = "cod"
)

func (m ShippingMethod) Valid() bool {
	switch m {
	case ShippingStandard, ShippingCourier, ShippingCOD:
		return true
	}

	return false
}

// CollectsShippingOnline reports whether the shipping charge is part of the
// amount collected through the payment gateway.
func (m ShippingMethod) CollectsShippingOnline() bool {
	return m != ShippingCOD
}

type Destination struct {
	RecipientName string `json:"recipient_name" validate:"required"`
	Phone         string `json:"phone" validate:"required,e164"`
	City          string `json:"city" validate:"required"`
	Street        string `json:"street" validate:"required"`
	PostalCode    string `json:"postal_code" validate:"required"`
	Email         string `json:"email,omitempty" validate:"omitempty,email"`
	Notes         string `json:"notes,omitempty"`
}

// Quote is the Pricing Engine output for one cart + shipping + coupon choice.
// Total is the amount collected online; ShippingCost is always the displayed
// charge even when it is settled on delivery.
type Quote struct {
	Subtotal     int64          `json:"subtotal"`
	Discount     int64          `json:"discount"`
	ShippingCost int64          `json:"shipping_cost"`
	ShippingDue  int64          `json:"shipping_due"`
	Total        int64          `json:"total"`
	WeightGrams  int            `json:"weight_grams"`
	MaxPrepDays  int            `json:"max_prep_days"`
	Method       ShippingMethod `json:"shipping_method"`
	CouponCode   string         `json:"coupon_code,omitempty"`
}
