package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/kilnandclay/storefront/internal/models"
	"github.com/kilnandclay/storefront/internal/utils"
)

type OrderRepository interface {
	// CreateOrder inserts the order header, its items and the coupon usage
	// increment as one transaction; no partial state is ever visible.
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

type orderRepository struct {
	DB *sql.DB
}

func NewOrderRepo(db *sql.DB) OrderRepository {
	return &orderRepository{DB: db}
}

func (r *orderRepository) CreateOrder(ctx context.Context, order *models.Order) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	destJSON, err := json.Marshal(order.Destination)
	if err != nil {
		return fmt.Errorf("failed to marshal destination: %w", err)
	}

	tx, err := r.DB.BeginTx(dbCtx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer tx.Rollback()

	query := `
		INSERT INTO orders
			(id, settlement_id, owner_key, status, total_amount, shipping_method,
			 shipping_cost, coupon_id, destination, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
	`

	_, err = tx.ExecContext(dbCtx, query,
		order.ID, order.SettlementID, order.OwnerKey, order.Status, order.TotalAmount,
		order.ShippingMethod, order.ShippingCost, order.CouponID, destJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (id, order_id, product_id, name, color, image_url, unit_price, quantity, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
	`

	for _, item := range order.Items {
		_, err := tx.ExecContext(dbCtx, itemQuery,
			item.ID, order.ID, item.ProductID, item.Name, item.Color, item.ImageURL, item.UnitPrice, item.Quantity)
		if err != nil {
			return fmt.Errorf("failed to insert an order item: %w", err)
		}
	}

	if order.CouponID != nil {
		couponQuery := `UPDATE coupons SET used_count = used_count + 1, updated_at = NOW() WHERE id = $1`

		if _, err := tx.ExecContext(dbCtx, couponQuery, *order.CouponID); err != nil {
			return fmt.Errorf("failed to increment coupon usage: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order: %w", err)
	}

	return nil
}

func (r *orderRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	order := &models.Order{}

	query := `
		SELECT id, settlement_id, owner_key, status, total_amount, shipping_method,
		       shipping_cost, coupon_id, destination, created_at, updated_at
		FROM orders
		WHERE id = $1
	`

	var destJSON []byte

	err := r.DB.QueryRowContext(dbCtx, query, id).Scan(
		&order.ID, &order.SettlementID, &order.OwnerKey, &order.Status, &order.TotalAmount,
		&order.ShippingMethod, &order.ShippingCost, &order.CouponID, &destJSON,
		&order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get the order: %w", err)
	}

	if err := json.Unmarshal(destJSON, &order.Destination); err != nil {
		return nil, fmt.Errorf("failed to unmarshal destination: %w", err)
	}

	itemsQuery := `
		SELECT id, product_id, name, color, image_url, unit_price, quantity, created_at
		FROM order_items
		WHERE order_id = $1
	`

	rows, err := r.DB.QueryContext(dbCtx, itemsQuery, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get the order items: %w", err)
	}

	defer rows.Close()

	var items []models.OrderItem

	for rows.Next() {
		var item models.OrderItem

		err := rows.Scan(&item.ID, &item.ProductID, &item.Name, &item.Color, &item.ImageURL, &item.UnitPrice, &item.Quantity, &item.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}

		item.OrderID = order.ID

		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	order.Items = items

	return order, nil
}
