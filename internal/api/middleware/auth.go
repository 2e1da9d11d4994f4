package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/kilnandclay/storefront/internal/models"
	"github.com/kilnandclay/storefront/internal/utils/response"
)

type shopperContextKey string

const shopperKey = shopperContextKey("shopper")

// GuestTokenHeader carries the anonymous device-local cart token.
const GuestTokenHeader = "X-Cart-Token"

type AuthMiddleware struct {
	jwtKey []byte
}

func NewAuthMiddleware(jwtKey []byte) *AuthMiddleware {
	return &AuthMiddleware{jwtKey: jwtKey}
}

func (m *AuthMiddleware) parseToken(r *http.Request) (*models.Claims, error) {

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, errors.New("authorization header is required")
	}

	// Token is of format : "Bearer <token>"
	tokenParts := strings.Split(authHeader, " ")
	if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
		return nil, errors.New("invalid authorization header format")
	}

	claims := &models.Claims{}

	token, err := jwt.ParseWithClaims(tokenParts[1], claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}

		return m.jwtKey, nil
	})
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	if claims.ExpiresAt != nil && claims.ExpiresAt.Time.Before(time.Now()) {
		return nil, errors.New("token expired")
	}

	return claims, nil
}

// Authenticate requires a valid bearer token and puts the authenticated
// shopper into the request context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		claims, err := m.parseToken(r)
		if err != nil {
			response.WriteJson(w, http.StatusUnauthorized, response.GeneralError(err))
			return
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			response.WriteJson(w, http.StatusUnauthorized, response.GeneralError(errors.New("invalid user id in token")))
			return
		}

		shopper := models.Shopper{
			UserID:     userID,
			GuestToken: r.Header.Get(GuestTokenHeader),
		}

		ctx := context.WithValue(r.Context(), shopperKey, shopper)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// Identify resolves the shopper without requiring authentication: a valid
// bearer token wins, otherwise the guest cart token identifies the device.
func (m *AuthMiddleware) Identify(next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		shopper := models.Shopper{GuestToken: r.Header.Get(GuestTokenHeader)}

		if r.Header.Get("Authorization") != "" {
			claims, err := m.parseToken(r)
			if err != nil {
				response.WriteJson(w, http.StatusUnauthorized, response.GeneralError(err))
				return
			}

			userID, err := uuid.Parse(claims.UserID)
			if err != nil {
				response.WriteJson(w, http.StatusUnauthorized, response.GeneralError(errors.New("invalid user id in token")))
				return
			}

			shopper.UserID = userID
		}

		if !shopper.Authenticated() && shopper.GuestToken == "" {
			response.WriteJson(w, http.StatusBadRequest, response.GeneralError(errors.New("either a bearer token or a cart token is required")))
			return
		}

		ctx := context.WithValue(r.Context(), shopperKey, shopper)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// ShopperFromContext returns the shopper resolved by Authenticate or
// Identify.
func ShopperFromContext(ctx context.Context) (models.Shopper, bool) {
	shopper, ok := ctx.Value(shopperKey).(models.Shopper)

	return shopper, ok
}
