package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cataloghq/catalog-service/internal/apperror"
	"github.com/cataloghq/catalog-service/internal/events"
	"github.com/cataloghq/catalog-service/internal/model"
	"github.com/cataloghq/catalog-service/internal/product/dto"
)

func (uc *productUseCase) CreateVariant(ctx context.Context, input *dto.CreateVariantInput) (*model.ProductVariant, error) {
	if input.Variant.Name == "" {
		return nil, apperror.Validation("variant name is required")
	}

	p, err := uc.repo.FindByID(ctx, input.ProductID)
	if err != nil {
		return nil, apperror.Internal(err, "load product")
	}
	if p == nil {
		return nil, apperror.NotFound("product %s not found", input.ProductID)
	}

	var uploaded []string
	images, err := uc.uploadImages(ctx, input.Variant.Images, &uploaded)
	if err != nil {
		uc.purgeMedia(uploaded)
		return nil, err
	}

	now := time.Now()
	v := buildVariant(p, &input.Variant, images, now)

	err = uc.txm.Do(ctx, func(ctx context.Context) error {
		return uc.repo.CreateVariant(ctx, &v)
	})
	if err != nil {
		uc.purgeMedia(uploaded)
		return nil, uc.classifyWriteError(err, "create variant")
	}

	uc.afterMutation(p.MerchantID, nil, events.VariantCreated, v)
	return &v, nil
}

// UpdateVariant routes the mutation by caller privilege: privileged actors
// write through immediately, everyone else stages a change request for
// moderation. Product reassignment is rejected for both paths before any
// state is touched.
func (uc *productUseCase) UpdateVariant(ctx context.Context, input *dto.UpdateVariantInput) (*dto.UpdateVariantResult, error) {
	if len(input.Changes) == 0 {
		return nil, apperror.Validation("no changes supplied")
	}
	if err := rejectProductKey(input.Changes); err != nil {
		return nil, err
	}

	v, err := uc.repo.FindVariantByID(ctx, input.VariantID)
	if err != nil {
		return nil, apperror.Internal(err, "load variant")
	}
	if v == nil {
		return nil, apperror.NotFound("variant %s not found", input.VariantID)
	}

	if uc.authz.CanApplyDirectly(input.Actor) {
		if err := model.ApplyVariantDelta(v, input.Changes); err != nil {
			return nil, deltaError(err)
		}
		v.UpdatedAt = time.Now()

		err = uc.txm.Do(ctx, func(ctx context.Context) error {
			return uc.repo.UpdateVariant(ctx, v)
		})
		if err != nil {
			return nil, uc.classifyWriteError(err, "update variant")
		}

		uc.afterMutation(v.MerchantID, nil, events.VariantUpdated, v)
		return &dto.UpdateVariantResult{Variant: v}, nil
	}

	// The staged delta is stored verbatim; it is applied against whatever the
	// variant looks like at approval time.
	now := time.Now()
	cr := &model.ProductVariantChangeRequest{
		BaseModel:   model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		MerchantID:  v.MerchantID,
		VariantID:   v.ID,
		RequestedBy: input.Actor.ID,
		Changes:     input.Changes,
		Status:      model.ChangeRequestPending,
	}
	if err := uc.crRepo.Create(ctx, cr); err != nil {
		return nil, apperror.Internal(err, "create change request")
	}

	return &dto.UpdateVariantResult{ChangeRequest: cr, PendingReview: true}, nil
}

func (uc *productUseCase) DeleteVariant(ctx context.Context, variantID string) error {
	var (
		purgeURLs  []string
		merchantID string
		deleted    *model.ProductVariant
	)

	err := uc.txm.Do(ctx, func(ctx context.Context) error {
		v, err := uc.repo.FindVariantByID(ctx, variantID)
		if err != nil {
			return err
		}
		if v == nil {
			return apperror.NotFound("variant %s not found", variantID)
		}

		count, err := uc.inv.CountByVariant(ctx, variantID)
		if err != nil {
			return err
		}
		if count > 0 {
			return apperror.Conflict("cannot delete variant %q: dependent inventory exists", v.Name)
		}

		if err := uc.repo.DeleteVariant(ctx, variantID); err != nil {
			return err
		}
		purgeURLs = v.Images.URLs()
		merchantID = v.MerchantID
		deleted = v
		return nil
	})
	if err != nil {
		return uc.classifyWriteError(err, "delete variant")
	}

	// Owned media goes only after the delete durably committed.
	uc.purgeMedia(purgeURLs)
	uc.afterMutation(merchantID, nil, events.VariantDeleted, deleted)
	return nil
}
