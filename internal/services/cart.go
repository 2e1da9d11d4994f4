package service

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kilnandclay/storefront/internal/errors"
	"github.com/kilnandclay/storefront/internal/models"
	repository "github.com/kilnandclay/storefront/internal/repositories"
	"github.com/redis/go-redis/v9"
)

// CartService is the cart store: line mutations write through to the guest
// redis record for anonymous shoppers and to the per-user postgres record for
// authenticated ones. Writes are serialized per shopper so two tabs of the
// same session cannot interleave into a torn record; last write wins at the
// whole-record level.
type CartService struct {
	userCarts  repository.CartRepository
	guestCarts repository.GuestCartRepository

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewCartService(userCarts repository.CartRepository, guestCarts repository.GuestCartRepository) *CartService {
	return &CartService{
		userCarts:  userCarts,
		guestCarts: guestCarts,
		locks:      make(map[string]*sync.Mutex),
	}
}

func (s *CartService) shopperLock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}

	return lock
}

// load returns the shopper's cart, or an empty cart when none exists yet.
func (s *CartService) load(ctx context.Context, shopper models.Shopper) (*models.Cart, error) {
	var (
		cart *models.Cart
		err  error
	)

	if shopper.Authenticated() {
		cart, err = s.userCarts.GetCartByUserID(ctx, shopper.UserID)
		if err == sql.ErrNoRows {
			return &models.Cart{UserID: shopper.UserID, CreatedAt: time.Now()}, nil
		}
	} else {
		cart, err = s.guestCarts.GetCart(ctx, shopper.GuestToken)
		if err == redis.Nil {
			return &models.Cart{CreatedAt: time.Now()}, nil
		}
	}

	if err != nil {
		return nil, errors.DatabaseError("Failed to retrieve cart").WithError(err)
	}

	return cart, nil
}

func (s *CartService) save(ctx context.Context, shopper models.Shopper, cart *models.Cart) error {
	cart.UpdatedAt = time.Now()

	var err error
	if shopper.Authenticated() {
		err = s.userCarts.SaveCart(ctx, cart)
	} else {
		err = s.guestCarts.SaveCart(ctx, shopper.GuestToken, cart)
	}

	if err != nil {
		return errors.DatabaseError("Failed to save cart").WithError(err)
	}

	return nil
}

func (s *CartService) GetCart(ctx context.Context, shopper models.Shopper) (*models.Cart, error) {
	return s.load(ctx, shopper)
}

// AddItem appends a new line, or merges quantities when a line with the same
// (product, color) key already exists. A missing quantity adds one.
func (s *CartService) AddItem(ctx context.Context, shopper models.Shopper, req *models.AddItemRequest) (*models.Cart, error) {
	lock := s.shopperLock(shopper.Key())
	lock.Lock()
	defer lock.Unlock()

	cart, err := s.load(ctx, shopper)
	if err != nil {
		return nil, err
	}

	quantity := req.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	line := models.CartLine{
		ProductID:   req.ProductID,
		Name:        req.Name,
		UnitPrice:   req.UnitPrice,
		Quantity:    quantity,
		Color:       req.Color,
		Attributes:  req.Attributes,
		WeightGrams: req.WeightGrams,
		PrepDays:    req.PrepDays,
		ImageURL:    req.ImageURL,
	}

	if i := cart.FindLine(line.Key()); i >= 0 {
		cart.Items[i].Quantity += quantity
	} else {
		cart.Items = append(cart.Items, line)
	}

	if err := s.save(ctx, shopper, cart); err != nil {
		return nil, err
	}

	return cart, nil
}

// UpdateQuantity sets the quantity of an existing line directly. A quantity
// of zero or less removes the line; no negative quantity is ever observable.
func (s *CartService) UpdateQuantity(ctx context.Context, shopper models.Shopper, req *models.UpdateQuantityRequest) (*models.Cart, error) {
	lock := s.shopperLock(shopper.Key())
	lock.Lock()
	defer lock.Unlock()

	cart, err := s.load(ctx, shopper)
	if err != nil {
		return nil, err
	}

	key := models.CartLine{ProductID: req.ProductID, Color: req.Color}.Key()

	i := cart.FindLine(key)
	if i < 0 {
		return nil, errors.BadRequestError("Item not found in the cart")
	}

	if req.Quantity <= 0 {
		cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
	} else {
		cart.Items[i].Quantity = req.Quantity
	}

	if err := s.save(ctx, shopper, cart); err != nil {
		return nil, err
	}

	return cart, nil
}

func (s *CartService) RemoveItem(ctx context.Context, shopper models.Shopper, productID uuid.UUID, color string) (*models.Cart, error) {
	return s.UpdateQuantity(ctx, shopper, &models.UpdateQuantityRequest{
		ProductID: productID,
		Color:     color,
		Quantity:  0,
	})
}

func (s *CartService) ClearCart(ctx context.Context, shopper models.Shopper) error {
	lock := s.shopperLock(shopper.Key())
	lock.Lock()
	defer lock.Unlock()

	return s.clearLocked(ctx, shopper)
}

func (s *CartService) clearLocked(ctx context.Context, shopper models.Shopper) error {
	var err error
	if shopper.Authenticated() {
		err = s.userCarts.DeleteCart(ctx, shopper.UserID)
	} else {
		err = s.guestCarts.DeleteCart(ctx, shopper.GuestToken)
	}

	if err != nil {
		return errors.DatabaseError("Failed to clear cart").WithError(err)
	}

	return nil
}

// MergeCartLines merges the local lines into the remote ones: quantities are
// summed for matching (product, color) keys, lines present on only one side
// are kept as-is. Prices are snapshot fields and are not reconciled.
func MergeCartLines(local, remote []models.CartLine) []models.CartLine {
	merged := make([]models.CartLine, len(remote))
	copy(merged, remote)

	cart := models.Cart{Items: merged}

	for _, line := range local {
		if i := cart.FindLine(line.Key()); i >= 0 {
			cart.Items[i].Quantity += line.Quantity
		} else {
			cart.Items = append(cart.Items, line)
		}
	}

	return cart.Items
}

// MergeGuestCart reconciles the guest cart into the authenticated shopper's
// remote cart, once per login transition. The guest record is deleted only
// after the merged cart is durably saved, so a failure to reach the remote
// store loses nothing and an empty remote cart is never silently adopted as
// truth.
func (s *CartService) MergeGuestCart(ctx context.Context, userID uuid.UUID, guestToken string) (*models.Cart, error) {
	if guestToken == "" {
		return nil, errors.BadRequestError("Guest cart token is required")
	}

	shopper := models.Shopper{UserID: userID}

	lock := s.shopperLock(shopper.Key())
	lock.Lock()
	defer lock.Unlock()

	guestCart, err := s.guestCarts.GetCart(ctx, guestToken)
	if err == redis.Nil {
		// Nothing to merge; the remote cart is already authoritative.
		return s.load(ctx, shopper)
	}

	if err != nil {
		return nil, errors.DatabaseError("Failed to retrieve guest cart").WithError(err)
	}

	remoteCart, err := s.load(ctx, shopper)
	if err != nil {
		return nil, err
	}

	remoteCart.UserID = userID
	remoteCart.Items = MergeCartLines(guestCart.Items, remoteCart.Items)

	if err := s.save(ctx, shopper, remoteCart); err != nil {
		return nil, err
	}

	if err := s.guestCarts.DeleteCart(ctx, guestToken); err != nil {
		// The merge is already durable; a stale guest record is harmless.
		return remoteCart, nil
	}

	return remoteCart, nil
}
