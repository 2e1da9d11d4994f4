package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kilnandclay/storefront/internal/models"
	"github.com/kilnandclay/storefront/internal/utils"
)

type CouponRepository interface {
	GetCouponByCode(ctx context.Context, code string) (*models.Coupon, error)
}

type couponRepository struct {
	DB *sql.DB
}

func NewCouponRepo(db *sql.DB) CouponRepository {
	return &couponRepository{DB: db}
}

func (r *couponRepository) GetCouponByCode(ctx context.Context, code string) (*models.Coupon, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, code, discount_type, discount_value, min_purchase, max_discount,
		       usage_limit, used_count, is_active, expires_at, created_at, updated_at
		FROM coupons
		WHERE code = $1
	`

	coupon := &models.Coupon{}

	err := r.DB.QueryRowContext(dbCtx, query, code).Scan(
		&coupon.ID, &coupon.Code, &coupon.DiscountType, &coupon.DiscountValue,
		&coupon.MinPurchase, &coupon.MaxDiscount, &coupon.UsageLimit, &coupon.UsedCount,
		&coupon.IsActive, &coupon.ExpiresAt, &coupon.CreatedAt, &coupon.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("querying database: %w", err)
	}

	return coupon, nil
}
