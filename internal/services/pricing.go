package service

import (
	"time"

	"github.com/kilnandclay/storefront/internal/config"
	"github.com/kilnandclay/storefront/internal/errors"
	"github.com/kilnandclay/storefront/internal/models"
)

// PricingEngine computes quotes deterministically from its inputs. It does no
// I/O; coupon lookup happens before it is invoked.
type PricingEngine struct {
	shipping config.Shipping
}

func NewPricingEngine(shipping config.Shipping) *PricingEngine {
	return &PricingEngine{shipping: shipping}
}

func Subtotal(lines []models.CartLine) int64 {
	var subtotal int64

	for _, line := range lines {
		subtotal += line.UnitPrice * int64(line.Quantity)
	}

	return subtotal
}

// standardExtraKg counts billable kilograms above the included first one for
// the nationwide carrier: the weight above 1000g is rounded up to whole
// kilograms. 2000g is exactly one extra kilogram, 2100g is two.
func standardExtraKg(weightGrams int) int {
	if weightGrams <= 1000 {
		return 0
	}

	return (weightGrams - 1000 + 999) / 1000
}

// courierExtraKg uses the courier's schedule: the whole shipment is rounded up
// to whole kilograms first, then the included first kilogram is subtracted.
// This is not the same rounding as the standard carrier.
func courierExtraKg(weightGrams int) int {
	if weightGrams <= 1000 {
		return 0
	}

	return (weightGrams+999)/1000 - 1
}

// StandardShippingCost prices a shipment on the nationwide carrier tariff.
func (e *PricingEngine) StandardShippingCost(weightGrams int) int64 {
	return e.shipping.StandardTier1 + int64(standardExtraKg(weightGrams))*e.shipping.StandardExtraKg
}

// CourierShippingCost prices a shipment on the same-city courier tariff.
func (e *PricingEngine) CourierShippingCost(weightGrams int) int64 {
	return e.shipping.CourierTier1 + int64(courierExtraKg(weightGrams))*e.shipping.CourierExtraKg
}

// ValidateCoupon applies the applicability predicate: active, unexpired, above
// minimum purchase, usage not exhausted. It never mutates the coupon.
func (e *PricingEngine) ValidateCoupon(coupon *models.Coupon, subtotal int64, now time.Time) error {
	if !coupon.IsActive {
		return errors.CouponError("Coupon is not active")
	}

	if coupon.Expired(now) {
		return errors.CouponError("Coupon has expired")
	}

	if subtotal < coupon.MinPurchase {
		return errors.CouponError("Cart subtotal is below the coupon minimum purchase")
	}

	if coupon.Exhausted() {
		return errors.CouponError("Coupon usage limit reached")
	}

	return nil
}

// Discount computes the discount of an already-validated coupon. A percentage
// discount is capped by MaxDiscount; a fixed discount is clamped to the
// subtotal so the total can never go negative.
func (e *PricingEngine) Discount(coupon *models.Coupon, subtotal int64) int64 {
	switch coupon.DiscountType {
	case models.DiscountTypePercentage:
		discount := subtotal * coupon.DiscountValue / 100

		if coupon.MaxDiscount != nil && discount > *coupon.MaxDiscount {
			discount = *coupon.MaxDiscount
		}

		return discount
	case models.DiscountTypeFixed:
		if coupon.DiscountValue > subtotal {
			return subtotal
		}

		return coupon.DiscountValue
	}

	return 0
}

// Quote prices the cart for one shipping choice and optional validated
// coupon. An empty cart yields all zeroes; the orchestrator refuses it before
// any external call.
func (e *PricingEngine) Quote(lines []models.CartLine, method models.ShippingMethod, destCity string, coupon *models.Coupon, now time.Time) (*models.Quote, error) {
	if !method.Valid() {
		return nil, errors.ValidationError("Unknown shipping method")
	}

	cart := models.Cart{Items: lines}
	totals := cart.Totals()

	quote := &models.Quote{
		Subtotal:    totals.Subtotal,
		WeightGrams: totals.WeightGrams,
		MaxPrepDays: totals.MaxPrepDays,
		Method:      method,
	}

	if len(lines) == 0 {
		return quote, nil
	}

	switch method {
	case models.ShippingCourier:
		if destCity != e.shipping.CourierCity {
			return nil, errors.ValidationError("Courier delivery is only available in " + e.shipping.CourierCity)
		}

		quote.ShippingCost = e.CourierShippingCost(totals.WeightGrams)
	default:
		// COD still shows the standard tariff for transparency.
		quote.ShippingCost = e.StandardShippingCost(totals.WeightGrams)
	}

	if coupon != nil {
		if err := e.ValidateCoupon(coupon, totals.Subtotal, now); err != nil {
			return nil, err
		}

		quote.Discount = e.Discount(coupon, totals.Subtotal)
		quote.CouponCode = coupon.Code
	}

	if method.CollectsShippingOnline() {
		quote.ShippingDue = quote.ShippingCost
	}

	quote.Total = quote.Subtotal - quote.Discount + quote.ShippingDue

	return quote, nil
}
