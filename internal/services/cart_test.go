package service_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/google/uuid"
	appErrors "github.com/kilnandclay/storefront/internal/errors"
	"github.com/kilnandclay/storefront/internal/models"
	service "github.com/kilnandclay/storefront/internal/services"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupCartServiceTest() (*service.CartService, *mockCartRepository, *mockGuestCartRepository) {
	mockUserCarts := &mockCartRepository{}
	mockGuestCarts := &mockGuestCartRepository{}
	cartService := service.NewCartService(mockUserCarts, mockGuestCarts)

	return cartService, mockUserCarts, mockGuestCarts
}

func TestAddItem(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	shopper := models.Shopper{UserID: userID}
	productID := uuid.New()

	addReq := &models.AddItemRequest{
		ProductID:   productID,
		Name:        "Speckled bowl",
		UnitPrice:   120000,
		Quantity:    2,
		Color:       "sand",
		WeightGrams: 400,
	}

	t.Run("Success - New Line On Empty Cart", func(t *testing.T) {
		cartService, mockUserCarts, _ := setupCartServiceTest()

		// Arrange
		mockUserCarts.On("GetCartByUserID", ctx, userID).Return(nil, sql.ErrNoRows).Once()
		mockUserCarts.On("SaveCart", ctx, mock.MatchedBy(func(cart *models.Cart) bool {
			return len(cart.Items) == 1 &&
				cart.Items[0].ProductID == productID &&
				cart.Items[0].Quantity == 2 &&
				cart.Items[0].Color == "sand"
		})).Return(nil).Once()

		// Act
		cart, err := cartService.AddItem(ctx, shopper, addReq)

		// Assert
		assert.NoError(t, err)
		require.NotNil(t, cart)
		assert.Len(t, cart.Items, 1)
		mockUserCarts.AssertExpectations(t)
	})

	t.Run("Success - Same Key Merges Quantities", func(t *testing.T) {
		cartService, mockUserCarts, _ := setupCartServiceTest()

		// Arrange
		existing := &models.Cart{
			UserID: userID,
			Items: []models.CartLine{
				{ProductID: productID, Name: "Speckled bowl", UnitPrice: 120000, Quantity: 1, Color: "sand"},
			},
		}

		mockUserCarts.On("GetCartByUserID", ctx, userID).Return(existing, nil).Once()
		mockUserCarts.On("SaveCart", ctx, mock.MatchedBy(func(cart *models.Cart) bool {
			return len(cart.Items) == 1 && cart.Items[0].Quantity == 3
		})).Return(nil).Once()

		// Act
		cart, err := cartService.AddItem(ctx, shopper, addReq)

		// Assert
		assert.NoError(t, err)
		assert.Len(t, cart.Items, 1)
		assert.Equal(t, 3, cart.Items[0].Quantity)
		mockUserCarts.AssertExpectations(t)
	})

	t.Run("Success - Same Product Different Color Stays Separate", func(t *testing.T) {
		cartService, mockUserCarts, _ := setupCartServiceTest()

		// Arrange
		existing := &models.Cart{
			UserID: userID,
			Items: []models.CartLine{
				{ProductID: productID, Name: "Speckled bowl", UnitPrice: 120000, Quantity: 1, Color: "cobalt"},
			},
		}

		mockUserCarts.On("GetCartByUserID", ctx, userID).Return(existing, nil).Once()
		mockUserCarts.On("SaveCart", ctx, mock.AnythingOfType("*models.Cart")).Return(nil).Once()

		// Act
		cart, err := cartService.AddItem(ctx, shopper, addReq)

		// Assert
		assert.NoError(t, err)
		assert.Len(t, cart.Items, 2)
		mockUserCarts.AssertExpectations(t)
	})

	t.Run("Success - Missing Quantity Adds One", func(t *testing.T) {
		cartService, mockUserCarts, _ := setupCartServiceTest()

		// Arrange
		req := &models.AddItemRequest{ProductID: productID, Name: "Speckled bowl", UnitPrice: 120000}

		mockUserCarts.On("GetCartByUserID", ctx, userID).Return(nil, sql.ErrNoRows).Once()
		mockUserCarts.On("SaveCart", ctx, mock.MatchedBy(func(cart *models.Cart) bool {
			return len(cart.Items) == 1 && cart.Items[0].Quantity == 1
		})).Return(nil).Once()

		// Act
		cart, err := cartService.AddItem(ctx, shopper, req)

		// Assert
		assert.NoError(t, err)
		assert.Equal(t, 1, cart.Items[0].Quantity)
		mockUserCarts.AssertExpectations(t)
	})

	t.Run("Success - Guest Cart Goes Through Redis", func(t *testing.T) {
		cartService, mockUserCarts, mockGuestCarts := setupCartServiceTest()
		guest := models.Shopper{GuestToken: "device-token"}

		// Arrange
		mockGuestCarts.On("GetCart", ctx, "device-token").Return(nil, redis.Nil).Once()
		mockGuestCarts.On("SaveCart", ctx, "device-token", mock.MatchedBy(func(cart *models.Cart) bool {
			return len(cart.Items) == 1 && cart.Items[0].ProductID == productID
		})).Return(nil).Once()

		// Act
		cart, err := cartService.AddItem(ctx, guest, addReq)

		// Assert
		assert.NoError(t, err)
		assert.Len(t, cart.Items, 1)
		mockGuestCarts.AssertExpectations(t)
		mockUserCarts.AssertNotCalled(t, "SaveCart", mock.Anything, mock.Anything)
	})

	t.Run("Failure - Database Error On Save", func(t *testing.T) {
		cartService, mockUserCarts, _ := setupCartServiceTest()

		// Arrange
		dbError := errors.New("connection reset")
		mockUserCarts.On("GetCartByUserID", ctx, userID).Return(nil, sql.ErrNoRows).Once()
		mockUserCarts.On("SaveCart", ctx, mock.AnythingOfType("*models.Cart")).Return(dbError).Once()

		// Act
		cart, err := cartService.AddItem(ctx, shopper, addReq)

		// Assert
		assert.Nil(t, cart)

		appErr, ok := appErrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, appErrors.ErrCodeDatabaseError, appErr.Code)
		assert.ErrorIs(t, err, dbError)
		mockUserCarts.AssertExpectations(t)
	})
}

func TestUpdateQuantity(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	shopper := models.Shopper{UserID: userID}
	productID := uuid.New()

	existing := func() *models.Cart {
		return &models.Cart{
			UserID: userID,
			Items: []models.CartLine{
				{ProductID: productID, Name: "Raku vase", UnitPrice: 300000, Quantity: 2},
			},
		}
	}

	t.Run("Success - Set Quantity Directly", func(t *testing.T) {
		cartService, mockUserCarts, _ := setupCartServiceTest()

		// Arrange
		mockUserCarts.On("GetCartByUserID", ctx, userID).Return(existing(), nil).Once()
		mockUserCarts.On("SaveCart", ctx, mock.MatchedBy(func(cart *models.Cart) bool {
			return len(cart.Items) == 1 && cart.Items[0].Quantity == 5
		})).Return(nil).Once()

		// Act
		cart, err := cartService.UpdateQuantity(ctx, shopper, &models.UpdateQuantityRequest{ProductID: productID, Quantity: 5})

		// Assert
		assert.NoError(t, err)
		assert.Equal(t, 5, cart.Items[0].Quantity)
		mockUserCarts.AssertExpectations(t)
	})

	t.Run("Success - Zero Quantity Removes Line", func(t *testing.T) {
		cartService, mockUserCarts, _ := setupCartServiceTest()

		// Arrange
		mockUserCarts.On("GetCartByUserID", ctx, userID).Return(existing(), nil).Once()
		mockUserCarts.On("SaveCart", ctx, mock.MatchedBy(func(cart *models.Cart) bool {
			return len(cart.Items) == 0
		})).Return(nil).Once()

		// Act
		cart, err := cartService.UpdateQuantity(ctx, shopper, &models.UpdateQuantityRequest{ProductID: productID, Quantity: 0})

		// Assert
		assert.NoError(t, err)
		assert.Empty(t, cart.Items)
		mockUserCarts.AssertExpectations(t)
	})

	t.Run("Success - Negative Quantity Removes Line", func(t *testing.T) {
		cartService, mockUserCarts, _ := setupCartServiceTest()

		// Arrange
		mockUserCarts.On("GetCartByUserID", ctx, userID).Return(existing(), nil).Once()
		mockUserCarts.On("SaveCart", ctx, mock.MatchedBy(func(cart *models.Cart) bool {
			return len(cart.Items) == 0
		})).Return(nil).Once()

		// Act
		cart, err := cartService.UpdateQuantity(ctx, shopper, &models.UpdateQuantityRequest{ProductID: productID, Quantity: -3})

		// Assert
		assert.NoError(t, err)
		assert.Empty(t, cart.Items)
		mockUserCarts.AssertExpectations(t)
	})

	t.Run("Failure - Line Not In Cart", func(t *testing.T) {
		cartService, mockUserCarts, _ := setupCartServiceTest()

		// Arrange
		mockUserCarts.On("GetCartByUserID", ctx, userID).Return(existing(), nil).Once()

		// Act
		cart, err := cartService.UpdateQuantity(ctx, shopper, &models.UpdateQuantityRequest{ProductID: uuid.New(), Quantity: 1})

		// Assert
		assert.Nil(t, cart)

		appErr, ok := appErrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, appErrors.ErrCodeBadRequest, appErr.Code)
		mockUserCarts.AssertExpectations(t)
		mockUserCarts.AssertNotCalled(t, "SaveCart", mock.Anything, mock.Anything)
	})
}

func TestMergeCartLines(t *testing.T) {
	productA := uuid.New()
	productB := uuid.New()

	t.Run("Quantities Sum For Matching Keys", func(t *testing.T) {
		local := []models.CartLine{{ProductID: productA, Quantity: 2}}
		remote := []models.CartLine{{ProductID: productA, Quantity: 3}}

		merged := service.MergeCartLines(local, remote)

		require.Len(t, merged, 1)
		assert.Equal(t, 5, merged[0].Quantity)

		// Commutative on quantities.
		reversed := service.MergeCartLines(remote, local)

		require.Len(t, reversed, 1)
		assert.Equal(t, 5, reversed[0].Quantity)
	})

	t.Run("Disjoint Keys Are Kept As Is", func(t *testing.T) {
		local := []models.CartLine{{ProductID: productA, Quantity: 2}}
		remote := []models.CartLine{{ProductID: productB, Quantity: 1}}

		merged := service.MergeCartLines(local, remote)

		assert.Len(t, merged, 2)
	})

	t.Run("Does Not Mutate Inputs", func(t *testing.T) {
		local := []models.CartLine{{ProductID: productA, Quantity: 2}}
		remote := []models.CartLine{{ProductID: productA, Quantity: 3}}

		service.MergeCartLines(local, remote)

		assert.Equal(t, 2, local[0].Quantity)
		assert.Equal(t, 3, remote[0].Quantity)
	})
}

func TestMergeGuestCart(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	productID := uuid.New()

	guestCart := func() *models.Cart {
		return &models.Cart{
			Items: []models.CartLine{{ProductID: productID, Name: "Tea cup", UnitPrice: 80000, Quantity: 2}},
		}
	}

	t.Run("Success - Guest Lines Merged Into Remote Cart", func(t *testing.T) {
		cartService, mockUserCarts, mockGuestCarts := setupCartServiceTest()

		// Arrange
		remote := &models.Cart{
			UserID: userID,
			Items:  []models.CartLine{{ProductID: productID, Name: "Tea cup", UnitPrice: 80000, Quantity: 1}},
		}

		mockGuestCarts.On("GetCart", ctx, "device-token").Return(guestCart(), nil).Once()
		mockUserCarts.On("GetCartByUserID", ctx, userID).Return(remote, nil).Once()
		mockUserCarts.On("SaveCart", ctx, mock.MatchedBy(func(cart *models.Cart) bool {
			return cart.UserID == userID && len(cart.Items) == 1 && cart.Items[0].Quantity == 3
		})).Return(nil).Once()
		mockGuestCarts.On("DeleteCart", ctx, "device-token").Return(nil).Once()

		// Act
		cart, err := cartService.MergeGuestCart(ctx, userID, "device-token")

		// Assert
		assert.NoError(t, err)
		require.NotNil(t, cart)
		assert.Equal(t, 3, cart.Items[0].Quantity)
		mockUserCarts.AssertExpectations(t)
		mockGuestCarts.AssertExpectations(t)
	})

	t.Run("Success - No Guest Record Leaves Remote Cart Untouched", func(t *testing.T) {
		cartService, mockUserCarts, mockGuestCarts := setupCartServiceTest()

		// Arrange
		remote := &models.Cart{
			UserID: userID,
			Items:  []models.CartLine{{ProductID: productID, Quantity: 4}},
		}

		mockGuestCarts.On("GetCart", ctx, "device-token").Return(nil, redis.Nil).Once()
		mockUserCarts.On("GetCartByUserID", ctx, userID).Return(remote, nil).Once()

		// Act
		cart, err := cartService.MergeGuestCart(ctx, userID, "device-token")

		// Assert
		assert.NoError(t, err)
		assert.Equal(t, 4, cart.Items[0].Quantity)
		mockUserCarts.AssertNotCalled(t, "SaveCart", mock.Anything, mock.Anything)
		mockGuestCarts.AssertNotCalled(t, "DeleteCart", mock.Anything, mock.Anything)
	})

	t.Run("Failure - Remote Save Fails, Guest Cart Is Kept", func(t *testing.T) {
		cartService, mockUserCarts, mockGuestCarts := setupCartServiceTest()

		// Arrange
		dbError := errors.New("write timeout")
		mockGuestCarts.On("GetCart", ctx, "device-token").Return(guestCart(), nil).Once()
		mockUserCarts.On("GetCartByUserID", ctx, userID).Return(nil, sql.ErrNoRows).Once()
		mockUserCarts.On("SaveCart", ctx, mock.AnythingOfType("*models.Cart")).Return(dbError).Once()

		// Act
		cart, err := cartService.MergeGuestCart(ctx, userID, "device-token")

		// Assert
		assert.Nil(t, cart)
		assert.Error(t, err)
		mockGuestCarts.AssertNotCalled(t, "DeleteCart", mock.Anything, mock.Anything)
	})

	t.Run("Success - Guest Delete Failure Is Not Surfaced", func(t *testing.T) {
		cartService, mockUserCarts, mockGuestCarts := setupCartServiceTest()

		// Arrange
		mockGuestCarts.On("GetCart", ctx, "device-token").Return(guestCart(), nil).Once()
		mockUserCarts.On("GetCartByUserID", ctx, userID).Return(nil, sql.ErrNoRows).Once()
		mockUserCarts.On("SaveCart", ctx, mock.AnythingOfType("*models.Cart")).Return(nil).Once()
		mockGuestCarts.On("DeleteCart", ctx, "device-token").Return(errors.New("redis down")).Once()

		// Act
		cart, err := cartService.MergeGuestCart(ctx, userID, "device-token")

		// Assert
		assert.NoError(t, err)
		assert.NotNil(t, cart)
		mockGuestCarts.AssertExpectations(t)
	})

	t.Run("Failure - Missing Guest Token", func(t *testing.T) {
		cartService, _, _ := setupCartServiceTest()

		// Act
		cart, err := cartService.MergeGuestCart(ctx, userID, "")

		// Assert
		assert.Nil(t, cart)

		appErr, ok := appErrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, appErrors.ErrCodeBadRequest, appErr.Code)
	})
}
