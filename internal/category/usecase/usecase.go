package usecase

import (
	"context"

	"github.com/cataloghq/catalog-service/internal/apperror"
	"github.com/cataloghq/catalog-service/internal/category"
	"github.com/cataloghq/catalog-service/internal/category/dto"
	"github.com/cataloghq/catalog-service/internal/model"
	"github.com/cataloghq/catalog-service/internal/pkg/logger"
)

type categoryUseCase struct {
	repo   category.Repository
	logger logger.ZapLogger
}

func NewCategoryUseCase(repo category.Repository, log logger.ZapLogger) category.UseCase {
	return &categoryUseCase{
		repo:   repo,
		logger: log,
	}
}

func (uc *categoryUseCase) GetCategory(ctx context.Context, id string) (*model.Category, error) {
	cat, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apperror.Internal(err, "load category")
	}
	if cat == nil {
		return nil, apperror.NotFound("category %s not found", id)
	}
	return cat, nil
}

func (uc *categoryUseCase) ListCategories(ctx context.Context, filters *dto.CategoryFilters) ([]model.Category, int, error) {
	categories, count, err := uc.repo.FindAll(ctx, filters)
	if err != nil {
		return nil, 0, apperror.Internal(err, "list categories")
	}
	return categories, count, nil
}
