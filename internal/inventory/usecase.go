package inventory

import (
	"context"

	"github.com/cataloghq/catalog-service/internal/inventory/dto"
	"github.com/cataloghq/catalog-service/internal/model"
)

// Existence is what the catalog mutation paths consume: "does any stock
// record reference this variant?". Quantities stay out of scope.
type Existence interface {
	CountByVariant(ctx context.Context, variantID string) (int, error)
}

type UseCase interface {
	Existence
	GetStock(ctx context.Context, merchantID, variantID string, storeID *string) (*model.Inventory, error)
	AdjustInventory(ctx context.Context, input *dto.AdjustInventoryInput) (*model.Inventory, error)
}
