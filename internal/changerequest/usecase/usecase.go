package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cataloghq/catalog-service/internal/apperror"
	"github.com/cataloghq/catalog-service/internal/auth"
	"github.com/cataloghq/catalog-service/internal/changerequest"
	"github.com/cataloghq/catalog-service/internal/changerequest/dto"
	"github.com/cataloghq/catalog-service/internal/events"
	"github.com/cataloghq/catalog-service/internal/model"
	"github.com/cataloghq/catalog-service/internal/pkg/broker"
	"github.com/cataloghq/catalog-service/internal/pkg/cache"
	"github.com/cataloghq/catalog-service/internal/pkg/logger"
	"github.com/cataloghq/catalog-service/internal/pkg/postgres"
	"github.com/cataloghq/catalog-service/internal/pkg/txmanager"
	"github.com/cataloghq/catalog-service/internal/product"
)

type changeRequestUseCase struct {
	repo     changerequest.Repository
	products product.Repository
	txm      txmanager.Manager

	cache     *cache.RedisClient
	publisher broker.Publisher
	logger    logger.ZapLogger
}

func NewChangeRequestUseCase(
	repo changerequest.Repository,
	products product.Repository,
	txm txmanager.Manager,
	cache *cache.RedisClient,
	publisher broker.Publisher,
	log logger.ZapLogger,
) changerequest.UseCase {
	return &changeRequestUseCase{
		repo:      repo,
		products:  products,
		txm:       txm,
		cache:     cache,
		publisher: publisher,
		logger:    log,
	}
}

func (uc *changeRequestUseCase) List(ctx context.Context, filters *dto.ChangeRequestFilters) ([]model.ProductVariantChangeRequest, int, error) {
	if filters.Status == "" {
		filters.Status = model.ChangeRequestPending
	}
	requests, count, err := uc.repo.FindAll(ctx, filters)
	if err != nil {
		return nil, 0, apperror.Internal(err, "list change requests")
	}
	return requests, count, nil
}

func (uc *changeRequestUseCase) Approve(ctx context.Context, requestID string, actor auth.Actor) (*model.ProductVariant, error) {
	var (
		approved     *model.ProductVariant
		request      *model.ProductVariantChangeRequest
		autoRejected bool
	)

	err := uc.txm.Do(ctx, func(ctx context.Context) error {
		cr, err := uc.repo.FindByID(ctx, requestID)
		if err != nil {
			return err
		}
		if cr == nil {
			return apperror.NotFound("change request %s not found", requestID)
		}
		if cr.Status != model.ChangeRequestPending {
			return apperror.Conflict("change request already %s", cr.Status)
		}
		request = cr

		now := time.Now()
		v, err := uc.products.FindVariantByID(ctx, cr.VariantID)
		if err != nil {
			return err
		}
		if v == nil {
			// A vanished target would otherwise clog the moderation queue
			// forever; reject it with a system reason and commit that.
			reason := "target variant no longer exists"
			reviewer := actor.ID
			cr.Status = model.ChangeRequestRejected
			cr.RejectionReason = &reason
			cr.ReviewedBy = &reviewer
			cr.UpdatedAt = now
			if err := uc.repo.Update(ctx, cr); err != nil {
				return err
			}
			autoRejected = true
			return nil
		}

		// The delta is merged onto the variant as it exists right now, not as
		// it looked when the request was filed. Interim edits therefore shape
		// the outcome; there is deliberately no staleness token.
		if err := model.ApplyVariantDelta(v, cr.Changes); err != nil {
			if err == model.ErrImmutableField {
				return apperror.Validation("variant product reference is immutable")
			}
			return apperror.Validation("%s", err.Error())
		}
		v.UpdatedAt = now
		if err := uc.products.UpdateVariant(ctx, v); err != nil {
			return err
		}

		reviewer := actor.ID
		cr.Status = model.ChangeRequestApproved
		cr.ReviewedBy = &reviewer
		cr.UpdatedAt = now
		if err := uc.repo.Update(ctx, cr); err != nil {
			return err
		}

		approved = v
		return nil
	})
	if err != nil {
		// A uniqueness conflict rolls the whole unit back, so the request
		// stays pending and can be retried or rejected explicitly.
		return nil, classifyWriteError(err, "approve change request")
	}

	if autoRejected {
		uc.publishEvent(events.ChangeRequestRejected, request)
		return nil, apperror.NotFound("variant %s no longer exists; change request was rejected", request.VariantID)
	}

	go uc.invalidateProductCache(context.Background(), request.MerchantID)
	uc.publishEvent(events.ChangeRequestApproved, request)
	return approved, nil
}

func (uc *changeRequestUseCase) Reject(ctx context.Context, requestID, reason string, actor auth.Actor) (*model.ProductVariantChangeRequest, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, apperror.Validation("rejection reason is required")
	}

	var request *model.ProductVariantChangeRequest
	err := uc.txm.Do(ctx, func(ctx context.Context) error {
		cr, err := uc.repo.FindByID(ctx, requestID)
		if err != nil {
			return err
		}
		if cr == nil {
			return apperror.NotFound("change request %s not found", requestID)
		}
		if cr.Status != model.ChangeRequestPending {
			return apperror.Conflict("change request already %s", cr.Status)
		}

		reviewer := actor.ID
		cr.Status = model.ChangeRequestRejected
		cr.RejectionReason = &reason
		cr.ReviewedBy = &reviewer
		cr.UpdatedAt = time.Now()
		if err := uc.repo.Update(ctx, cr); err != nil {
			return err
		}
		request = cr
		return nil
	})
	if err != nil {
		return nil, classifyWriteError(err, "reject change request")
	}

	uc.publishEvent(events.ChangeRequestRejected, request)
	return request, nil
}

func (uc *changeRequestUseCase) invalidateProductCache(ctx context.Context, merchantID string) {
	if uc.cache == nil {
		return
	}
	pattern := fmt.Sprintf("products:list:%s:*", merchantID)
	if err := uc.cache.DeleteByPattern(ctx, pattern); err != nil {
		uc.logger.Error("failed to invalidate product cache", zap.Error(err))
	}
}

func (uc *changeRequestUseCase) publishEvent(eventType string, payload interface{}) {
	if uc.publisher == nil {
		return
	}
	go func() {
		env := events.New(eventType, payload)
		if err := uc.publisher.Publish(context.Background(), env.EventID, env); err != nil {
			uc.logger.Error("failed to publish moderation event", zap.String("event_type", eventType), zap.Error(err))
		}
	}()
}

func classifyWriteError(err error, op string) error {
	if constraint, ok := postgres.UniqueViolation(err); ok {
		field := "identifier"
		switch {
		case strings.Contains(constraint, "sku"):
			field = "sku"
		case strings.Contains(constraint, "barcode"):
			field = "barcode"
		case strings.Contains(constraint, "name"):
			field = "name"
		}
		return apperror.Conflict("duplicate %s: another record already uses this %s", field, field)
	}
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperror.Internal(err, "%s", op)
}
