package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kilnandclay/storefront/internal/errors"
	"github.com/kilnandclay/storefront/internal/models"
	repository "github.com/kilnandclay/storefront/internal/repositories"
	"github.com/kilnandclay/storefront/pkg/sendgrid"
)

// OrderService materializes a verified settlement into a persisted order. It
// is invoked only on the succeeded transition and only once per transaction;
// the one-time verification token upstream guarantees that.
type OrderService struct {
	orders    repository.OrderRepository
	inventory repository.InventoryRepository
	carts     *CartService
	mailer    sendgrid.EmailService
}

func NewOrderService(orders repository.OrderRepository, inventory repository.InventoryRepository, carts *CartService, mailer sendgrid.EmailService) *OrderService {
	return &OrderService{orders: orders, inventory: inventory, carts: carts, mailer: mailer}
}

// Materialize creates the order header and its immutable item snapshot (plus
// the coupon usage increment) as one unit, then appends the stock decrement
// movements and clears the shopper's cart. The movement ledger is keyed by
// the settlement id, so a replay can never decrement stock twice.
func (s *OrderService) Materialize(ctx context.Context, txn *models.SettlementTransaction, referenceID string) (*models.Order, error) {
	logger := slog.Default()

	order := &models.Order{
		ID:             uuid.New(),
		SettlementID:   txn.ID,
		OwnerKey:       txn.OwnerKey,
		Status:         models.OrderStatusPendingFulfillment,
		TotalAmount:    txn.Amount,
		ShippingMethod: txn.ShippingMethod,
		ShippingCost:   txn.ShippingCost,
		CouponID:       txn.CouponID,
		Destination:    txn.Destination,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}

	for _, line := range txn.Items {
		order.Items = append(order.Items, models.OrderItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: line.ProductID,
			Name:      line.Name,
			Color:     line.Color,
			ImageURL:  line.ImageURL,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
			CreatedAt: time.Now(),
		})
	}

	if err := s.orders.CreateOrder(ctx, order); err != nil {
		return nil, errors.DatabaseError("Failed to create order").WithError(err)
	}

	movements := make([]models.InventoryMovement, 0, len(txn.Items))
	for _, line := range txn.Items {
		movements = append(movements, models.InventoryMovement{
			ID:            uuid.New(),
			ProductID:     line.ProductID,
			QuantityDelta: -line.Quantity,
			MovementType:  models.MovementTypeSale,
			ReferenceID:   txn.ID,
		})
	}

	// Stock decrement is a related but independent concern; a failure here
	// must not undo the order.
	if err := s.inventory.RecordMovements(ctx, movements); err != nil {
		logger.Error("Failed to record inventory movements",
			slog.String("settlement_id", txn.ID.String()),
			slog.String("error", err.Error()))
	}

	shopper, err := models.ParseOwnerKey(txn.OwnerKey)
	if err != nil {
		logger.Error("Cannot clear cart for settled transaction",
			slog.String("settlement_id", txn.ID.String()),
			slog.String("error", err.Error()))
	} else if err := s.carts.ClearCart(ctx, shopper); err != nil {
		logger.Error("Failed to clear cart after settlement",
			slog.String("settlement_id", txn.ID.String()),
			slog.String("error", err.Error()))
	}

	s.sendConfirmation(order, referenceID)

	return order, nil
}

// sendConfirmation is best-effort: the order exists whether or not the email
// goes out.
func (s *OrderService) sendConfirmation(order *models.Order, referenceID string) {
	if s.mailer == nil || order.Destination.Email == "" {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		msg := &sendgrid.Message{
			To:      order.Destination.Email,
			Subject: "Your order is confirmed",
			Content: fmt.Sprintf(
				"Thank you, %s! Your payment (reference %s) was received and order %s is being prepared.",
				order.Destination.RecipientName, referenceID, order.ID),
		}

		if err := s.mailer.Send(ctx, msg); err != nil {
			slog.Error("Failed to send order confirmation",
				slog.String("order_id", order.ID.String()),
				slog.String("error", err.Error()))
		}
	}()
}
