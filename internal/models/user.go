package models

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Shopper identifies the cart owner for one request: an authenticated user id
// or an anonymous device-local cart token, never both authoritative at once.
type Shopper struct {
	UserID     uuid.UUID
	GuestToken string
}

func (s Shopper) Authenticated() bool {
	return s.UserID != uuid.Nil
}

// Key is the stable owner key used for write serialization and settlement
// ownership.
func (s Shopper) Key() string {
	if s.Authenticated() {
		return "user:" + s.UserID.String()
	}

	return "guest:" + s.GuestToken
}

// ParseOwnerKey reverses Shopper.Key.
func ParseOwnerKey(key string) (Shopper, error) {
	if rest, ok := strings.CutPrefix(key, "user:"); ok {
		id, err := uuid.Parse(rest)
		if err != nil {
			return Shopper{}, fmt.Errorf("invalid owner key %q: %w", key, err)
		}

		return Shopper{UserID: id}, nil
	}

	if rest, ok := strings.CutPrefix(key, "guest:"); ok && rest != "" {
		return Shopper{GuestToken: rest}, nil
	}

	return Shopper{}, fmt.Errorf("invalid owner key %q", key)
}
