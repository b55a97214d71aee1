package product

import (
	"context"

	"github.com/cataloghq/catalog-service/internal/model"
	"github.com/cataloghq/catalog-service/internal/product/dto"
)

type UseCase interface {
	// CreateProductWithVariants writes the product and all its variants as one
	// atomic unit; media uploaded for a failed attempt is purged.
	CreateProductWithVariants(ctx context.Context, input *dto.CreateProductInput) (*model.Product, error)
	// UpdateProductWithVariants applies a partial product delta and reconciles
	// the variant set against the supplied complete target list.
	UpdateProductWithVariants(ctx context.Context, input *dto.UpdateProductInput) (*model.Product, error)
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	ListProducts(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error)

	// Variant ops
	CreateVariant(ctx context.Context, input *dto.CreateVariantInput) (*model.ProductVariant, error)
	// UpdateVariant routes by caller privilege: direct write or change request.
	UpdateVariant(ctx context.Context, input *dto.UpdateVariantInput) (*dto.UpdateVariantResult, error)
	DeleteVariant(ctx context.Context, variantID string) error
}
