package service_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kilnandclay/storefront/internal/models"
	"github.com/kilnandclay/storefront/pkg/gateway"
	"github.com/kilnandclay/storefront/pkg/sendgrid"
	sendgridclient "github.com/sendgrid/sendgrid-go"
	"github.com/stretchr/testify/mock"
)

type mockCartRepository struct {
	mock.Mock
}

func (m *mockCartRepository) GetCartByUserID(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	args := m.Called(ctx, userID)

	if cart, ok := args.Get(0).(*models.Cart); ok {
		return cart, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *mockCartRepository) SaveCart(ctx context.Context, cart *models.Cart) error {
	args := m.Called(ctx, cart)

	return args.Error(0)
}

func (m *mockCartRepository) DeleteCart(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)

	return args.Error(0)
}

type mockGuestCartRepository struct {
	mock.Mock
}

func (m *mockGuestCartRepository) GetCart(ctx context.Context, token string) (*models.Cart, error) {
	args := m.Called(ctx, token)

	if cart, ok := args.Get(0).(*models.Cart); ok {
		return cart, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *mockGuestCartRepository) SaveCart(ctx context.Context, token string, cart *models.Cart) error {
	args := m.Called(ctx, token, cart)

	return args.Error(0)
}

func (m *mockGuestCartRepository) DeleteCart(ctx context.Context, token string) error {
	args := m.Called(ctx, token)

	return args.Error(0)
}

type mockCouponRepository struct {
	mock.Mock
}

func (m *mockCouponRepository) GetCouponByCode(ctx context.Context, code string) (*models.Coupon, error) {
	args := m.Called(ctx, code)

	if coupon, ok := args.Get(0).(*models.Coupon); ok {
		return coupon, args.Error(1)
	}

	return nil, args.Error(1)
}

type mockSettlementRepository struct {
	mock.Mock
}

func (m *mockSettlementRepository) CreatePending(ctx context.Context, txn *models.SettlementTransaction) error {
	args := m.Called(ctx, txn)

	return args.Error(0)
}

func (m *mockSettlementRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.SettlementTransaction, error) {
	args := m.Called(ctx, id)

	if txn, ok := args.Get(0).(*models.SettlementTransaction); ok {
		return txn, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *mockSettlementRepository) ConsumeToken(ctx context.Context, id uuid.UUID, token string) (bool, error) {
	args := m.Called(ctx, id, token)

	return args.Bool(0), args.Error(1)
}

func (m *mockSettlementRepository) Resolve(ctx context.Context, id uuid.UUID, status models.SettlementStatus, reason models.FailureReason, referenceID string, orderID *uuid.UUID) error {
	args := m.Called(ctx, id, status, reason, referenceID, orderID)

	return args.Error(0)
}

func (m *mockSettlementRepository) MarkAbandoned(ctx context.Context, olderThan time.Time) (int64, error) {
	args := m.Called(ctx, olderThan)

	return args.Get(0).(int64), args.Error(1)
}

type mockOrderRepository struct {
	mock.Mock
}

func (m *mockOrderRepository) CreateOrder(ctx context.Context, order *models.Order) error {
	args := m.Called(ctx, order)

	return args.Error(0)
}

func (m *mockOrderRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, id)

	if order, ok := args.Get(0).(*models.Order); ok {
		return order, args.Error(1)
	}

	return nil, args.Error(1)
}

type mockInventoryRepository struct {
	mock.Mock
}

func (m *mockInventoryRepository) RecordMovements(ctx context.Context, movements []models.InventoryMovement) error {
	args := m.Called(ctx, movements)

	return args.Error(0)
}

type mockGatewayClient struct {
	mock.Mock
}

func (m *mockGatewayClient) RequestPayment(ctx context.Context, req *gateway.PaymentRequest) (*gateway.PaymentSession, error) {
	args := m.Called(ctx, req)

	if session, ok := args.Get(0).(*gateway.PaymentSession); ok {
		return session, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *mockGatewayClient) VerifyPayment(ctx context.Context, req *gateway.VerifyRequest) (*gateway.VerifyResult, error) {
	args := m.Called(ctx, req)

	if result, ok := args.Get(0).(*gateway.VerifyResult); ok {
		return result, args.Error(1)
	}

	return nil, args.Error(1)
}

type mockEmailService struct {
	mock.Mock
}

func (m *mockEmailService) Send(ctx context.Context, msg *sendgrid.Message) error {
	args := m.Called(ctx, msg)

	return args.Error(0)
}

func (m *mockEmailService) GetSendGridClient() *sendgridclient.Client {
	return nil
}
