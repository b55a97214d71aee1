package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/cataloghq/catalog-service/internal/changerequest/dto"
	"github.com/cataloghq/catalog-service/internal/model"
	"github.com/cataloghq/catalog-service/internal/pkg/txmanager"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, cr *model.ProductVariantChangeRequest) error {
	q := txmanager.FromContext(ctx, r.DB)
	query := `
        INSERT INTO product_variant_change_requests (
            id, merchant_id, variant_id, requested_by, changes, status,
            reviewed_by, rejection_reason, created_at, updated_at
        )
        VALUES (
            :id, :merchant_id, :variant_id, :requested_by, :changes, :status,
            :reviewed_by, :rejection_reason, :created_at, :updated_at
        )
    `
	if _, err := q.NamedExecContext(ctx, query, cr); err != nil {
		return errors.Wrap(err, "insert change request")
	}
	return nil
}

func (r *PGRepository) FindByID(ctx context.Context, id string) (*model.ProductVariantChangeRequest, error) {
	q := txmanager.FromContext(ctx, r.DB)

	var cr model.ProductVariantChangeRequest
	query := `SELECT * FROM product_variant_change_requests WHERE id = $1 LIMIT 1`
	err := q.GetContext(ctx, &cr, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "find change request")
	}
	return &cr, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.ChangeRequestFilters) ([]model.ProductVariantChangeRequest, int, error) {
	conditions := []string{"status = :status"}
	args := map[string]interface{}{"status": f.Status}

	if f.MerchantID != "" {
		conditions = append(conditions, "merchant_id = :merchant_id")
		args["merchant_id"] = f.MerchantID
	}

	whereClause := " WHERE " + conditions[0]
	for _, c := range conditions[1:] {
		whereClause += " AND " + c
	}

	var count int
	countQuery := "SELECT count(*) FROM product_variant_change_requests" + whereClause
	rows, err := r.DB.NamedQueryContext(ctx, countQuery, args)
	if err != nil {
		return nil, 0, errors.Wrap(err, "count change requests")
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			return nil, 0, errors.Wrap(err, "scan change request count")
		}
	}

	query := "SELECT * FROM product_variant_change_requests" + whereClause + " ORDER BY created_at ASC"
	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, (page-1)*f.PageSize)
	}

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, 0, errors.Wrap(err, "prepare change request query")
	}
	defer nstmt.Close()

	var requests []model.ProductVariantChangeRequest
	if err := nstmt.SelectContext(ctx, &requests, args); err != nil {
		return nil, 0, errors.Wrap(err, "list change requests")
	}
	return requests, count, nil
}

func (r *PGRepository) Update(ctx context.Context, cr *model.ProductVariantChangeRequest) error {
	q := txmanager.FromContext(ctx, r.DB)
	query := `
        UPDATE product_variant_change_requests
        SET status = :status,
            reviewed_by = :reviewed_by,
            rejection_reason = :rejection_reason,
            updated_at = :updated_at
        WHERE id = :id
    `
	if _, err := q.NamedExecContext(ctx, query, cr); err != nil {
		return errors.Wrap(err, "update change request")
	}
	return nil
}
