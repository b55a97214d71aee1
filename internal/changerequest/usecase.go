package changerequest

import (
	"context"

	"github.com/cataloghq/catalog-service/internal/auth"
	"github.com/cataloghq/catalog-service/internal/changerequest/dto"
	"github.com/cataloghq/catalog-service/internal/model"
)

type UseCase interface {
	List(ctx context.Context, filters *dto.ChangeRequestFilters) ([]model.ProductVariantChangeRequest, int, error)
	// Approve applies the staged delta onto the variant's current state and
	// marks the request approved, atomically. A vanished target variant
	// auto-rejects the request and reports not-found.
	Approve(ctx context.Context, requestID string, actor auth.Actor) (*model.ProductVariant, error)
	Reject(ctx context.Context, requestID, reason string, actor auth.Actor) (*model.ProductVariantChangeRequest, error)
}
