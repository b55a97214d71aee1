package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/cataloghq/catalog-service/internal/model"
	"github.com/cataloghq/catalog-service/internal/pkg/txmanager"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

// CountByVariant runs inside the caller's atomic unit when one is open, so
// the dependent-inventory guard and the variant delete observe the same state.
// Any mirror row blocks deletion, a zero quantity included; the row records
// that a store tracks the variant, not that stock remains.
func (r *PGRepository) CountByVariant(ctx context.Context, variantID string) (int, error) {
	q := txmanager.FromContext(ctx, r.DB)

	var count int
	query := `SELECT count(*) FROM inventory WHERE variant_id = $1`
	if err := q.GetContext(ctx, &count, query, variantID); err != nil {
		return 0, errors.Wrap(err, "count inventory by variant")
	}
	return count, nil
}

func (r *PGRepository) GetByVariant(ctx context.Context, merchantID, variantID string, storeID *string) (*model.Inventory, error) {
	var inv model.Inventory
	query := `SELECT * FROM inventory WHERE merchant_id = $1 AND variant_id = $2`
	args := []interface{}{merchantID, variantID}

	if storeID != nil && *storeID != "" {
		query += ` AND store_id = $3`
		args = append(args, *storeID)
	} else {
		query += ` AND store_id IS NULL`
	}

	err := r.DB.GetContext(ctx, &inv, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Caller handles creating defaults
		}
		return nil, errors.Wrap(err, "get inventory by variant")
	}
	return &inv, nil
}

// Adjust writes the already-computed mirror row, inserting it on first sight.
// The usecase holds the per-variant lock, so the absolute quantity is safe.
func (r *PGRepository) Adjust(ctx context.Context, inv *model.Inventory) error {
	query := `
        INSERT INTO inventory (id, merchant_id, store_id, variant_id, quantity, updated_at)
        VALUES (:id, :merchant_id, :store_id, :variant_id, :quantity, :updated_at)
        ON CONFLICT (id) DO UPDATE
        SET quantity = EXCLUDED.quantity, updated_at = EXCLUDED.updated_at
    `
	if _, err := r.DB.NamedExecContext(ctx, query, inv); err != nil {
		return errors.Wrap(err, "adjust inventory")
	}
	return nil
}
