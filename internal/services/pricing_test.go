package service_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kilnandclay/storefront/internal/config"
	appErrors "github.com/kilnandclay/storefront/internal/errors"
	"github.com/kilnandclay/storefront/internal/models"
	service "github.com/kilnandclay/storefront/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testShippingConfig() config.Shipping {
	return config.Shipping{
		StandardTier1:   450000,
		StandardExtraKg: 200000,
		CourierTier1:    350000,
		CourierExtraKg:  100000,
		CourierCity:     "Tehran",
	}
}

func TestStandardShippingCost(t *testing.T) {
	engine := service.NewPricingEngine(testShippingConfig())

	tests := []struct {
		name        string
		weightGrams int
		want        int64
	}{
		{"Below First Kilogram", 800, 450000},
		{"Exactly One Kilogram", 1000, 450000},
		{"Half Kilogram Over Rounds Up To One", 1500, 650000},
		{"Exactly One Extra Kilogram", 2000, 650000},
		{"Just Over One Extra Kilogram", 2100, 850000},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, engine.StandardShippingCost(tc.weightGrams))
		})
	}
}

func TestCourierShippingCost(t *testing.T) {
	engine := service.NewPricingEngine(testShippingConfig())

	tests := []struct {
		name        string
		weightGrams int
		want        int64
	}{
		{"Below First Kilogram", 900, 350000},
		{"Exactly One Kilogram", 1000, 350000},
		// 1800g rounds the whole shipment up to 2kg, so one extra kilogram.
		{"Whole Shipment Rounds Up", 1800, 450000},
		{"Exactly Two Kilograms", 2000, 450000},
		{"Just Over Two Kilograms", 2001, 550000},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, engine.CourierShippingCost(tc.weightGrams))
		})
	}
}

func TestValidateCoupon(t *testing.T) {
	engine := service.NewPricingEngine(testShippingConfig())
	now := time.Now()

	base := func() *models.Coupon {
		return &models.Coupon{
			ID:            uuid.New(),
			Code:          "CLAY10",
			DiscountType:  models.DiscountTypePercentage,
			DiscountValue: 10,
			MinPurchase:   100000,
			IsActive:      true,
		}
	}

	t.Run("Success - Applicable Coupon", func(t *testing.T) {
		assert.NoError(t, engine.ValidateCoupon(base(), 150000, now))
	})

	t.Run("Failure - Inactive", func(t *testing.T) {
		coupon := base()
		coupon.IsActive = false

		err := engine.ValidateCoupon(coupon, 150000, now)

		appErr, ok := appErrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, appErrors.ErrCodeCouponRejected, appErr.Code)
	})

	t.Run("Failure - Expired", func(t *testing.T) {
		coupon := base()
		expired := now.Add(-time.Hour)
		coupon.ExpiresAt = &expired

		err := engine.ValidateCoupon(coupon, 150000, now)

		appErr, ok := appErrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, appErrors.ErrCodeCouponRejected, appErr.Code)
	})

	t.Run("Failure - Below Minimum Purchase", func(t *testing.T) {
		err := engine.ValidateCoupon(base(), 99999, now)

		appErr, ok := appErrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, appErrors.ErrCodeCouponRejected, appErr.Code)
	})

	t.Run("Success - At Minimum Purchase", func(t *testing.T) {
		assert.NoError(t, engine.ValidateCoupon(base(), 100000, now))
	})

	t.Run("Failure - Usage Exhausted", func(t *testing.T) {
		coupon := base()
		limit := 5
		coupon.UsageLimit = &limit
		coupon.UsedCount = 5

		err := engine.ValidateCoupon(coupon, 150000, now)

		appErr, ok := appErrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, appErrors.ErrCodeCouponRejected, appErr.Code)
	})
}

func TestDiscount(t *testing.T) {
	engine := service.NewPricingEngine(testShippingConfig())

	t.Run("Percentage", func(t *testing.T) {
		coupon := &models.Coupon{DiscountType: models.DiscountTypePercentage, DiscountValue: 10}

		assert.Equal(t, int64(20000), engine.Discount(coupon, 200000))
	})

	t.Run("Percentage Capped By Max Discount", func(t *testing.T) {
		cap := int64(15000)
		coupon := &models.Coupon{DiscountType: models.DiscountTypePercentage, DiscountValue: 10, MaxDiscount: &cap}

		assert.Equal(t, int64(15000), engine.Discount(coupon, 200000))
	})

	t.Run("Fixed", func(t *testing.T) {
		coupon := &models.Coupon{DiscountType: models.DiscountTypeFixed, DiscountValue: 50000}

		assert.Equal(t, int64(50000), engine.Discount(coupon, 200000))
	})

	t.Run("Fixed Clamped To Subtotal", func(t *testing.T) {
		coupon := &models.Coupon{DiscountType: models.DiscountTypeFixed, DiscountValue: 250000}

		assert.Equal(t, int64(200000), engine.Discount(coupon, 200000))
	})
}

func TestQuote(t *testing.T) {
	engine := service.NewPricingEngine(testShippingConfig())
	now := time.Now()

	lines := []models.CartLine{
		{ProductID: uuid.New(), Name: "Glazed mug", UnitPrice: 100000, Quantity: 2, WeightGrams: 500, PrepDays: 2},
	}

	t.Run("Standard Shipping Without Coupon", func(t *testing.T) {
		quote, err := engine.Quote(lines, models.ShippingStandard, "Shiraz", nil, now)

		require.NoError(t, err)
		assert.Equal(t, int64(200000), quote.Subtotal)
		assert.Equal(t, 1000, quote.WeightGrams)
		assert.Equal(t, int64(450000), quote.ShippingCost)
		assert.Equal(t, int64(450000), quote.ShippingDue)
		assert.Equal(t, int64(650000), quote.Total)
		assert.Equal(t, 2, quote.MaxPrepDays)
	})

	t.Run("Standard Shipping With Percentage Coupon", func(t *testing.T) {
		coupon := &models.Coupon{
			Code:          "CLAY10",
			DiscountType:  models.DiscountTypePercentage,
			DiscountValue: 10,
			IsActive:      true,
		}

		quote, err := engine.Quote(lines, models.ShippingStandard, "Shiraz", coupon, now)

		require.NoError(t, err)
		assert.Equal(t, int64(20000), quote.Discount)
		assert.Equal(t, int64(180000+450000), quote.Total)
		assert.Equal(t, "CLAY10", quote.CouponCode)
	})

	t.Run("Cash On Delivery Collects No Shipping Online", func(t *testing.T) {
		quote, err := engine.Quote(lines, models.ShippingCOD, "Shiraz", nil, now)

		require.NoError(t, err)
		// The standard tariff is still displayed, it is just settled on
		// delivery.
		assert.Equal(t, int64(450000), quote.ShippingCost)
		assert.Equal(t, int64(0), quote.ShippingDue)
		assert.Equal(t, int64(200000), quote.Total)
	})

	t.Run("Courier In Configured City", func(t *testing.T) {
		quote, err := engine.Quote(lines, models.ShippingCourier, "Tehran", nil, now)

		require.NoError(t, err)
		assert.Equal(t, int64(350000), quote.ShippingCost)
		assert.Equal(t, int64(550000), quote.Total)
	})

	t.Run("Failure - Courier Outside Configured City", func(t *testing.T) {
		quote, err := engine.Quote(lines, models.ShippingCourier, "Isfahan", nil, now)

		assert.Nil(t, quote)

		appErr, ok := appErrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, appErrors.ErrCodeValidation, appErr.Code)
	})

	t.Run("Failure - Rejected Coupon Surfaces", func(t *testing.T) {
		coupon := &models.Coupon{
			Code:          "BIGSPEND",
			DiscountType:  models.DiscountTypeFixed,
			DiscountValue: 50000,
			MinPurchase:   500000,
			IsActive:      true,
		}

		quote, err := engine.Quote(lines, models.ShippingStandard, "Shiraz", coupon, now)

		assert.Nil(t, quote)

		appErr, ok := appErrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, appErrors.ErrCodeCouponRejected, appErr.Code)
	})

	t.Run("Empty Cart Quotes All Zeroes", func(t *testing.T) {
		quote, err := engine.Quote(nil, models.ShippingStandard, "Shiraz", nil, now)

		require.NoError(t, err)
		assert.Equal(t, int64(0), quote.Subtotal)
		assert.Equal(t, int64(0), quote.ShippingCost)
		assert.Equal(t, int64(0), quote.Total)
	})

	t.Run("Failure - Unknown Shipping Method", func(t *testing.T) {
		quote, err := engine.Quote(lines, models.ShippingMethod("drone"), "Shiraz", nil, now)

		assert.Nil(t, quote)
		assert.Error(t, err)
	})
}
