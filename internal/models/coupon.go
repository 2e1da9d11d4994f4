package models

import (
	"time"

	"github.com/google/uuid"
)

type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

type Coupon struct {
	ID            uuid.UUID    `json:"id"`
	Code          string       `json:"code"`
	DiscountType  DiscountType `json:"discount_type"`
	DiscountValue int64        `json:"discount_value"`
	MinPurchase   int64        `json:"min_purchase"`
	MaxDiscount   *int64       `json:"max_discount,omitempty"`
	UsageLimit    *int         `json:"usage_limit,omitempty"`
	UsedCount     int          `json:"used_count"`
	IsActive      bool         `json:"is_active"`
	ExpiresAt     *time.Time   `json:"expires_at,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// Expired reports whether the coupon is past its expiry instant.
func (c *Coupon) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(*c.ExpiresAt)
}

// Exhausted reports whether the usage limit has been consumed.
func (c *Coupon) Exhausted() bool {
	return c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit
}
