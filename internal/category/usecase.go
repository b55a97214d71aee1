package category

import (
	"context"

	"github.com/cataloghq/catalog-service/internal/category/dto"
	"github.com/cataloghq/catalog-service/internal/model"
)

type UseCase interface {
	GetCategory(ctx context.Context, id string) (*model.Category, error)
	ListCategories(ctx context.Context, filters *dto.CategoryFilters) ([]model.Category, int, error)
}
