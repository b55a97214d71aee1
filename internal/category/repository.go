package category

import (
	"context"

	"github.com/cataloghq/catalog-service/internal/category/dto"
	"github.com/cataloghq/catalog-service/internal/model"
)

// Repository is the read-side surface over the catalog hierarchy. Category
// CRUD belongs to the hierarchy service; this core validates references and
// serves lookups.
type Repository interface {
	Exists(ctx context.Context, id string) (bool, error)
	FindByID(ctx context.Context, id string) (*model.Category, error)
	FindAll(ctx context.Context, filters *dto.CategoryFilters) ([]model.Category, int, error)
}
