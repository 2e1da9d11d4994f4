package service

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kilnandclay/storefront/internal/errors"
	"github.com/kilnandclay/storefront/internal/metrics"
	"github.com/kilnandclay/storefront/internal/models"
	repository "github.com/kilnandclay/storefront/internal/repositories"
)

// CheckoutService validates the cart and destination, prices the order from
// the current cart state and hands the frozen result to the settlement
// service. At most one submission per shopper is in flight at a time.
type CheckoutService struct {
	carts       *CartService
	coupons     repository.CouponRepository
	pricing     *PricingEngine
	settlements *SettlementService

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewCheckoutService(carts *CartService, coupons repository.CouponRepository, pricing *PricingEngine, settlements *SettlementService) *CheckoutService {
	return &CheckoutService{
		carts:       carts,
		coupons:     coupons,
		pricing:     pricing,
		settlements: settlements,
		inFlight:    make(map[string]struct{}),
	}
}

func (s *CheckoutService) acquire(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.inFlight[key]; busy {
		return false
	}

	s.inFlight[key] = struct{}{}

	return true
}

func (s *CheckoutService) release(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.inFlight, key)
}

func (s *CheckoutService) lookupCoupon(ctx context.Context, code string) (*models.Coupon, error) {
	if code == "" {
		return nil, nil
	}

	coupon, err := s.coupons.GetCouponByCode(ctx, code)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.CouponError("Coupon not found")
		}

		return nil, errors.DatabaseError("Failed to look up coupon").WithError(err)
	}

	return coupon, nil
}

// Quote prices the current cart for a shipping choice without any side
// effect. Coupon rejections surface here so the shopper can retry another
// code before submitting.
func (s *CheckoutService) Quote(ctx context.Context, shopper models.Shopper, req *models.QuoteRequest) (*models.Quote, error) {
	cart, err := s.carts.GetCart(ctx, shopper)
	if err != nil {
		return nil, err
	}

	coupon, err := s.lookupCoupon(ctx, req.CouponCode)
	if err != nil {
		return nil, err
	}

	return s.pricing.Quote(cart.Items, req.ShippingMethod, req.City, coupon, time.Now())
}

// Submit opens a settlement for the current cart. The quote is recomputed
// from the cart as it is now, never from a cached preview, and the line
// snapshot frozen into the settlement is taken from the same read.
func (s *CheckoutService) Submit(ctx context.Context, shopper models.Shopper, req *models.CheckoutRequest) (*models.CheckoutResponse, error) {
	if !req.ShippingMethod.Valid() {
		return nil, errors.ValidationError("Unknown shipping method")
	}

	if !s.acquire(shopper.Key()) {
		return nil, errors.ConflictError("A checkout is already in progress")
	}

	defer s.release(shopper.Key())

	cart, err := s.carts.GetCart(ctx, shopper)
	if err != nil {
		return nil, err
	}

	if len(cart.Items) == 0 {
		return nil, errors.BadRequestError("Cannot check out an empty cart")
	}

	coupon, err := s.lookupCoupon(ctx, req.CouponCode)
	if err != nil {
		return nil, err
	}

	quote, err := s.pricing.Quote(cart.Items, req.ShippingMethod, req.Destination.City, coupon, time.Now())
	if err != nil {
		return nil, err
	}

	var couponID *uuid.UUID
	if coupon != nil {
		couponID = &coupon.ID
	}

	metrics.CheckoutSubmissions.Inc()

	snapshot := make([]models.CartLine, len(cart.Items))
	copy(snapshot, cart.Items)

	return s.settlements.Open(ctx, shopper, quote, snapshot, req, couponID)
}
