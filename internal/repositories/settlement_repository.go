package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kilnandclay/storefront/internal/models"
	"github.com/kilnandclay/storefront/internal/utils"
)

// SettlementRepository persists payment attempts. The one-time verification
// token is enforced here: ConsumeToken moves pending → verifying exactly once
// per (id, token) pair, so a replayed callback can never re-enter verification.
type SettlementRepository interface {
	CreatePending(ctx context.Context, txn *models.SettlementTransaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.SettlementTransaction, error)
	ConsumeToken(ctx context.Context, id uuid.UUID, token string) (bool, error)
	Resolve(ctx context.Context, id uuid.UUID, status models.SettlementStatus, reason models.FailureReason, referenceID string, orderID *uuid.UUID) error
	MarkAbandoned(ctx context.Context, olderThan time.Time) (int64, error)
}

type settlementRepository struct {
	DB *sql.DB
}

func NewSettlementRepo(db *sql.DB) SettlementRepository {
	return &settlementRepository{DB: db}
}

func (r *settlementRepository) CreatePending(ctx context.Context, txn *models.SettlementTransaction) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	itemsJSON, err := json.Marshal(txn.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal cart snapshot: %w", err)
	}

	destJSON, err := json.Marshal(txn.Destination)
	if err != nil {
		return fmt.Errorf("failed to marshal destination: %w", err)
	}

	query := `
		INSERT INTO settlement_transactions
			(id, owner_key, items, shipping_method, shipping_cost, destination,
			 coupon_id, amount, authority_token, verification_token, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
	`

	_, err = r.DB.ExecContext(dbCtx, query,
		txn.ID, txn.OwnerKey, itemsJSON, txn.ShippingMethod, txn.ShippingCost, destJSON,
		txn.CouponID, txn.Amount, txn.AuthorityToken, txn.VerificationToken, models.SettlementStatusPending,
	)
	if err != nil {
		return fmt.Errorf("failed to insert settlement transaction: %w", err)
	}

	return nil
}

func (r *settlementRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.SettlementTransaction, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, owner_key, items, shipping_method, shipping_cost, destination,
		       coupon_id, amount, authority_token, verification_token, status,
		       failure_reason, reference_id, order_id, created_at, resolved_at
		FROM settlement_transactions
		WHERE id = $1
	`

	txn := &models.SettlementTransaction{}

	var itemsJSON, destJSON []byte

	err := r.DB.QueryRowContext(dbCtx, query, id).Scan(
		&txn.ID, &txn.OwnerKey, &itemsJSON, &txn.ShippingMethod, &txn.ShippingCost, &destJSON,
		&txn.CouponID, &txn.Amount, &txn.AuthorityToken, &txn.VerificationToken, &txn.Status,
		&txn.FailureReason, &txn.ReferenceID, &txn.OrderID, &txn.CreatedAt, &txn.ResolvedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("querying database: %w", err)
	}

	if err := json.Unmarshal(itemsJSON, &txn.Items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cart snapshot: %w", err)
	}

	if err := json.Unmarshal(destJSON, &txn.Destination); err != nil {
		return nil, fmt.Errorf("failed to unmarshal destination: %w", err)
	}

	return txn, nil
}

// ConsumeToken atomically spends the one-time verification token. It returns
// false when the token does not match or was already consumed, in which case
// the caller must answer with the stored resolution instead of re-verifying.
func (r *settlementRepository) ConsumeToken(ctx context.Context, id uuid.UUID, token string) (bool, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		UPDATE settlement_transactions
		SET status = $1
		WHERE id = $2 AND verification_token = $3 AND status = $4
	`

	result, err := r.DB.ExecContext(dbCtx, query,
		models.SettlementStatusVerifying, id, token, models.SettlementStatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to consume verification token: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get updated rows: %w", err)
	}

	return rows == 1, nil
}

func (r *settlementRepository) Resolve(ctx context.Context, id uuid.UUID, status models.SettlementStatus, reason models.FailureReason, referenceID string, orderID *uuid.UUID) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		UPDATE settlement_transactions
		SET status = $1, failure_reason = $2, reference_id = $3, order_id = $4, resolved_at = NOW()
		WHERE id = $5 AND status = $6
	`

	result, err := r.DB.ExecContext(dbCtx, query, status, reason, referenceID, orderID, id, models.SettlementStatusVerifying)
	if err != nil {
		return fmt.Errorf("failed to resolve settlement transaction: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get updated rows: %w", err)
	}

	if rows == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// MarkAbandoned moves pending transactions that never received a callback to
// the terminal abandoned status. Abandoned is "never confirmed", not "failed".
func (r *settlementRepository) MarkAbandoned(ctx context.Context, olderThan time.Time) (int64, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		UPDATE settlement_transactions
		SET status = $1, resolved_at = NOW()
		WHERE status = $2 AND created_at < $3
	`

	result, err := r.DB.ExecContext(dbCtx, query, models.SettlementStatusAbandoned, models.SettlementStatusPending, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to mark abandoned transactions: %w", err)
	}

	return result.RowsAffected()
}
