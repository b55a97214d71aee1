package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cataloghq/catalog-service/internal/apperror"
	"github.com/cataloghq/catalog-service/internal/inventory"
	"github.com/cataloghq/catalog-service/internal/inventory/dto"
	"github.com/cataloghq/catalog-service/internal/model"
	"github.com/cataloghq/catalog-service/internal/pkg/cache"
	"github.com/cataloghq/catalog-service/internal/pkg/logger"
)

type inventoryUseCase struct {
	repo   inventory.Repository
	cache  *cache.RedisClient
	logger logger.ZapLogger
}

func NewInventoryUseCase(repo inventory.Repository, cache *cache.RedisClient, log logger.ZapLogger) inventory.UseCase {
	return &inventoryUseCase{
		repo:   repo,
		cache:  cache,
		logger: log,
	}
}

// CountByVariant backs the dependent-inventory guard on variant deletion.
func (uc *inventoryUseCase) CountByVariant(ctx context.Context, variantID string) (int, error) {
	return uc.repo.CountByVariant(ctx, variantID)
}

func (uc *inventoryUseCase) GetStock(ctx context.Context, merchantID, variantID string, storeID *string) (*model.Inventory, error) {
	inv, err := uc.repo.GetByVariant(ctx, merchantID, variantID, storeID)
	if err != nil {
		return nil, apperror.Internal(err, "load inventory")
	}
	if inv == nil {
		return nil, apperror.NotFound("no inventory recorded for variant %s", variantID)
	}
	return inv, nil
}

func (uc *inventoryUseCase) AdjustInventory(ctx context.Context, input *dto.AdjustInventoryInput) (*model.Inventory, error) {
	// Serialize adjustments per variant; the mirror has no version column.
	lockKey := fmt.Sprintf("lock:inventory:%s:%s", input.MerchantID, input.VariantID)
	if input.StoreID != nil {
		lockKey += ":" + *input.StoreID
	}

	lockValue := uuid.New().String()
	acquired := false
	for i := 0; i < 3; i++ {
		ok, err := uc.cache.AcquireLock(ctx, lockKey, lockValue, 5*time.Second)
		if err != nil {
			uc.logger.Error("failed to acquire inventory lock", zap.Error(err))
		}
		if ok {
			acquired = true
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	if !acquired {
		return nil, apperror.Conflict("inventory busy, please retry")
	}
	defer uc.cache.ReleaseLock(ctx, lockKey, lockValue)

	inv, err := uc.repo.GetByVariant(ctx, input.MerchantID, input.VariantID, input.StoreID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if inv == nil {
		inv = &model.Inventory{
			ID:         uuid.New().String(),
			MerchantID: input.MerchantID,
			StoreID:    input.StoreID,
			VariantID:  input.VariantID,
			Quantity:   0,
			UpdatedAt:  now,
		}
	}

	inv.Quantity += input.QuantityChange
	inv.UpdatedAt = now
	if inv.Quantity < 0 {
		return nil, apperror.Conflict("insufficient inventory for variant %s", input.VariantID)
	}

	if err := uc.repo.Adjust(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}
