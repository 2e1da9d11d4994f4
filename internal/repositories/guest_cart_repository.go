package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kilnandclay/storefront/internal/models"
	"github.com/redis/go-redis/v9"
)

// Guest carts are device-local state: they live in redis under the anonymous
// cart token and expire if the device never comes back.
const guestCartTTL = 30 * 24 * time.Hour

// GuestCartRepository persists the anonymous shopper's cart record, keyed by
// the opaque device-local cart token.
type GuestCartRepository interface {
	GetCart(ctx context.Context, token string) (*models.Cart, error)
	SaveCart(ctx context.Context, token string, cart *models.Cart) error
	DeleteCart(ctx context.Context, token string) error
}

type guestCartRepository struct {
	client *redis.Client
}

func NewGuestCartRepo(client *redis.Client) GuestCartRepository {
	return &guestCartRepository{client: client}
}

func guestCartKey(token string) string {
	return "guest_cart:" + token
}

// GetCart returns redis.Nil when no record exists for the token.
func (r *guestCartRepository) GetCart(ctx context.Context, token string) (*models.Cart, error) {
	data, err := r.client.Get(ctx, guestCartKey(token)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, err
		}
		return nil, fmt.Errorf("failed to read guest cart: %w", err)
	}

	cart := &models.Cart{}
	if err := json.Unmarshal(data, cart); err != nil {
		return nil, fmt.Errorf("failed to unmarshal guest cart: %w", err)
	}

	return cart, nil
}

func (r *guestCartRepository) SaveCart(ctx context.Context, token string, cart *models.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("failed to marshal guest cart: %w", err)
	}

	if err := r.client.Set(ctx, guestCartKey(token), data, guestCartTTL).Err(); err != nil {
		return fmt.Errorf("failed to save guest cart: %w", err)
	}

	return nil
}

func (r *guestCartRepository) DeleteCart(ctx context.Context, token string) error {
	if err := r.client.Del(ctx, guestCartKey(token)).Err(); err != nil {
		return fmt.Errorf("failed to delete guest cart: %w", err)
	}

	return nil
}
