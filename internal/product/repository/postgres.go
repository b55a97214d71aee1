package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/cataloghq/catalog-service/internal/model"
	"github.com/cataloghq/catalog-service/internal/pkg/txmanager"
	"github.com/cataloghq/catalog-service/internal/product/dto"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, p *model.Product) error {
	q := txmanager.FromContext(ctx, r.DB)
	query := `
        INSERT INTO products (
            id, merchant_id, category_id, name, brand, description,
            tags, images, created_at, updated_at
        )
        VALUES (
            :id, :merchant_id, :category_id, :name, :brand, :description,
            :tags, :images, :created_at, :updated_at
        )
    `
	if _, err := q.NamedExecContext(ctx, query, p); err != nil {
		return errors.Wrap(err, "insert product")
	}
	return nil
}

func (r *PGRepository) FindByID(ctx context.Context, id string) (*model.Product, error) {
	q := txmanager.FromContext(ctx, r.DB)

	var product model.Product
	query := `SELECT * FROM products WHERE id = $1 LIMIT 1`
	err := q.GetContext(ctx, &product, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "find product")
	}
	return &product, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.ProductFilters) ([]model.Product, int, error) {
	conditions := []string{}
	args := map[string]interface{}{}

	if f.MerchantID != "" {
		conditions = append(conditions, "merchant_id = :merchant_id")
		args["merchant_id"] = f.MerchantID
	}
	if f.CategoryID != "" {
		conditions = append(conditions, "category_id = :category_id")
		args["category_id"] = f.CategoryID
	}
	if f.SearchQuery != "" {
		conditions = append(conditions, "(name ILIKE :search OR brand ILIKE :search OR description ILIKE :search)")
		args["search"] = "%" + f.SearchQuery + "%"
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	var count int
	rows, err := r.DB.NamedQueryContext(ctx, "SELECT count(*) FROM products"+whereClause, args)
	if err != nil {
		return nil, 0, errors.Wrap(err, "count products")
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			return nil, 0, errors.Wrap(err, "scan product count")
		}
	}

	// Sort fields are whitelisted; user input never reaches the ORDER BY raw.
	orderBy := "created_at DESC"
	switch f.SortBy {
	case "name":
		orderBy = "name"
	case "created_at":
		orderBy = "created_at"
	}
	if f.SortBy != "" {
		if strings.EqualFold(f.SortOrder, "asc") {
			orderBy += " ASC"
		} else {
			orderBy += " DESC"
		}
	}

	query := fmt.Sprintf("SELECT * FROM products%s ORDER BY %s", whereClause, orderBy)
	if f.PageSize > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, (f.Page-1)*f.PageSize)
	}

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, 0, errors.Wrap(err, "prepare product list")
	}
	defer nstmt.Close()

	var products []model.Product
	if err := nstmt.SelectContext(ctx, &products, args); err != nil {
		return nil, 0, errors.Wrap(err, "list products")
	}
	return products, count, nil
}

func (r *PGRepository) Update(ctx context.Context, p *model.Product) error {
	q := txmanager.FromContext(ctx, r.DB)
	query := `
        UPDATE products
        SET category_id = :category_id,
            name = :name,
            brand = :brand,
            description = :description,
            tags = :tags,
            images = :images,
            updated_at = :updated_at
        WHERE id = :id AND merchant_id = :merchant_id
    `
	if _, err := q.NamedExecContext(ctx, query, p); err != nil {
		return errors.Wrap(err, "update product")
	}
	return nil
}

func (r *PGRepository) CreateVariant(ctx context.Context, v *model.ProductVariant) error {
	q := txmanager.FromContext(ctx, r.DB)
	query := `
        INSERT INTO product_variants (
            id, product_id, merchant_id, name, unit, sku, barcode,
            weight, prices, attributes, images, created_at, updated_at
        )
        VALUES (
            :id, :product_id, :merchant_id, :name, :unit, :sku, :barcode,
            :weight, :prices, :attributes, :images, :created_at, :updated_at
        )
    `
	if _, err := q.NamedExecContext(ctx, query, v); err != nil {
		return errors.Wrap(err, "insert variant")
	}
	return nil
}

func (r *PGRepository) FindVariantByID(ctx context.Context, id string) (*model.ProductVariant, error) {
	q := txmanager.FromContext(ctx, r.DB)

	var variant model.ProductVariant
	query := `SELECT * FROM product_variants WHERE id = $1 LIMIT 1`
	err := q.GetContext(ctx, &variant, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "find variant")
	}
	return &variant, nil
}

func (r *PGRepository) FindVariantsByProduct(ctx context.Context, productID string) ([]model.ProductVariant, error) {
	q := txmanager.FromContext(ctx, r.DB)

	var variants []model.ProductVariant
	query := `SELECT * FROM product_variants WHERE product_id = $1 ORDER BY created_at ASC`
	if err := q.SelectContext(ctx, &variants, query, productID); err != nil {
		return nil, errors.Wrap(err, "list variants by product")
	}
	return variants, nil
}

// UpdateVariant never touches product_id; the ownership reference is
// immutable after creation.
func (r *PGRepository) UpdateVariant(ctx context.Context, v *model.ProductVariant) error {
	q := txmanager.FromContext(ctx, r.DB)
	query := `
        UPDATE product_variants
        SET name = :name,
            unit = :unit,
            sku = :sku,
            barcode = :barcode,
            weight = :weight,
            prices = :prices,
            attributes = :attributes,
            images = :images,
            updated_at = :updated_at
        WHERE id = :id
    `
	if _, err := q.NamedExecContext(ctx, query, v); err != nil {
		return errors.Wrap(err, "update variant")
	}
	return nil
}

func (r *PGRepository) DeleteVariant(ctx context.Context, id string) error {
	q := txmanager.FromContext(ctx, r.DB)
	if _, err := q.ExecContext(ctx, `DELETE FROM product_variants WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "delete variant")
	}
	return nil
}
