package inventory

import (
	"context"

	"github.com/cataloghq/catalog-service/internal/model"
)

type Repository interface {
	CountByVariant(ctx context.Context, variantID string) (int, error)
	GetByVariant(ctx context.Context, merchantID, variantID string, storeID *string) (*model.Inventory, error)
	Adjust(ctx context.Context, inv *model.Inventory) error
}
