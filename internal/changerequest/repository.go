package changerequest

import (
	"context"

	"github.com/cataloghq/catalog-service/internal/changerequest/dto"
	"github.com/cataloghq/catalog-service/internal/model"
)

type Repository interface {
	Create(ctx context.Context, cr *model.ProductVariantChangeRequest) error
	FindByID(ctx context.Context, id string) (*model.ProductVariantChangeRequest, error)
	FindAll(ctx context.Context, filters *dto.ChangeRequestFilters) ([]model.ProductVariantChangeRequest, int, error)
	Update(ctx context.Context, cr *model.ProductVariantChangeRequest) error
}
