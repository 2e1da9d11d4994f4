package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/kilnandclay/storefront/internal/models"
	"github.com/kilnandclay/storefront/internal/utils"
)

// InventoryRepository appends to the stock movement ledger. The ledger is
// owned by the inventory collaborator; this core only writes sale decrements.
type InventoryRepository interface {
	RecordMovements(ctx context.Context, movements []models.InventoryMovement) error
}

type inventoryRepository struct {
	DB *sql.DB
}

func NewInventoryRepo(db *sql.DB) InventoryRepository {
	return &inventoryRepository{DB: db}
}

// RecordMovements is idempotent per (reference_id, product_id, movement_type):
// replaying the same settled transaction never decrements stock twice.
func (r *inventoryRepository) RecordMovements(ctx context.Context, movements []models.InventoryMovement) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO inventory_movements (id, product_id, quantity_delta, movement_type, reference_id, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (reference_id, product_id, movement_type) DO NOTHING
	`

	for _, m := range movements {
		id := m.ID
		if id == uuid.Nil {
			id = uuid.New()
		}

		if _, err := r.DB.ExecContext(dbCtx, query, id, m.ProductID, m.QuantityDelta, m.MovementType, m.ReferenceID); err != nil {
			return fmt.Errorf("failed to record inventory movement: %w", err)
		}
	}

	return nil
}
