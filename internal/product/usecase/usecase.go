package usecase

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cataloghq/catalog-service/internal/apperror"
	"github.com/cataloghq/catalog-service/internal/auth"
	"github.com/cataloghq/catalog-service/internal/category"
	"github.com/cataloghq/catalog-service/internal/changerequest"
	"github.com/cataloghq/catalog-service/internal/events"
	"github.com/cataloghq/catalog-service/internal/inventory"
	"github.com/cataloghq/catalog-service/internal/media"
	"github.com/cataloghq/catalog-service/internal/model"
	"github.com/cataloghq/catalog-service/internal/pkg/broker"
	"github.com/cataloghq/catalog-service/internal/pkg/cache"
	"github.com/cataloghq/catalog-service/internal/pkg/logger"
	"github.com/cataloghq/catalog-service/internal/pkg/postgres"
	"github.com/cataloghq/catalog-service/internal/pkg/search"
	"github.com/cataloghq/catalog-service/internal/pkg/txmanager"
	"github.com/cataloghq/catalog-service/internal/product"
	"github.com/cataloghq/catalog-service/internal/product/dto"
)

type productUseCase struct {
	repo       product.Repository
	crRepo     changerequest.Repository
	categories category.Repository
	inv        inventory.Existence
	media      media.Store
	txm        txmanager.Manager
	authz      auth.Authorizer

	cache     *cache.RedisClient
	es        *search.Client
	publisher broker.Publisher
	logger    logger.ZapLogger
}

func NewProductUseCase(
	repo product.Repository,
	crRepo changerequest.Repository,
	categories category.Repository,
	inv inventory.Existence,
	mediaStore media.Store,
	txm txmanager.Manager,
	authz auth.Authorizer,
	cache *cache.RedisClient,
	es *search.Client,
	publisher broker.Publisher,
	log logger.ZapLogger,
) product.UseCase {
	return &productUseCase{
		repo:       repo,
		crRepo:     crRepo,
		categories: categories,
		inv:        inv,
		media:      mediaStore,
		txm:        txm,
		authz:      authz,
		cache:      cache,
		es:         es,
		publisher:  publisher,
		logger:     log,
	}
}

func (uc *productUseCase) CreateProductWithVariants(ctx context.Context, input *dto.CreateProductInput) (*model.Product, error) {
	if input.Product.Name == "" {
		return nil, apperror.Validation("product name is required")
	}
	if len(input.Variants) == 0 {
		return nil, apperror.Validation("at least one variant is required")
	}
	for i, v := range input.Variants {
		if v.Name == "" {
			return nil, apperror.Validation("variant #%d: name is required", i+1)
		}
	}
	if input.Product.CategoryID == "" {
		return nil, apperror.Validation("product category is required")
	}

	exists, err := uc.categories.Exists(ctx, input.Product.CategoryID)
	if err != nil {
		return nil, apperror.Internal(err, "validate category")
	}
	if !exists {
		return nil, apperror.NotFound("category %s not found", input.Product.CategoryID)
	}

	// Uploads happen before the atomic unit begins; every URL produced during
	// this attempt is tracked so a failed unit can be compensated.
	var uploaded []string
	productImages, err := uc.uploadImages(ctx, input.Product.Images, &uploaded)
	if err != nil {
		uc.purgeMedia(uploaded)
		return nil, err
	}

	now := time.Now()
	categoryID := input.Product.CategoryID
	p := &model.Product{
		BaseModel:   model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		MerchantID:  input.MerchantID,
		CategoryID:  &categoryID,
		Name:        input.Product.Name,
		Brand:       optional(input.Product.Brand),
		Description: optional(input.Product.Description),
		Tags:        input.Product.Tags,
		Images:      productImages,
	}

	variants := make([]model.ProductVariant, 0, len(input.Variants))
	for _, payload := range input.Variants {
		images, err := uc.uploadImages(ctx, payload.Images, &uploaded)
		if err != nil {
			uc.purgeMedia(uploaded)
			return nil, err
		}
		variants = append(variants, buildVariant(p, &payload, images, now))
	}

	err = uc.txm.Do(ctx, func(ctx context.Context) error {
		if err := uc.repo.Create(ctx, p); err != nil {
			return err
		}
		for i := range variants {
			if err := uc.repo.CreateVariant(ctx, &variants[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		// The unit already aborted; compensate the uploads.
		uc.purgeMedia(uploaded)
		return nil, uc.classifyWriteError(err, "create product with variants")
	}

	p.Variants = variants
	uc.afterMutation(p.MerchantID, p, events.ProductCreated, p)
	return p, nil
}

func (uc *productUseCase) UpdateProductWithVariants(ctx context.Context, input *dto.UpdateProductInput) (*model.Product, error) {
	p, err := uc.repo.FindByID(ctx, input.ID)
	if err != nil {
		return nil, apperror.Internal(err, "load product")
	}
	if p == nil {
		return nil, apperror.NotFound("product %s not found", input.ID)
	}

	previousCategory := p.CategoryID
	if input.Product != nil {
		if err := model.ApplyProductDelta(p, input.Product); err != nil {
			return nil, apperror.Validation("%s", err.Error())
		}
	}
	if categoryChanged(previousCategory, p.CategoryID) && p.CategoryID != nil {
		exists, err := uc.categories.Exists(ctx, *p.CategoryID)
		if err != nil {
			return nil, apperror.Internal(err, "validate category")
		}
		if !exists {
			return nil, apperror.NotFound("category %s not found", *p.CategoryID)
		}
	}

	// Reject immutable-ownership violations before any upload or write.
	for _, up := range input.Variants {
		if err := rejectProductKey(up.Changes); err != nil {
			return nil, err
		}
	}

	var uploaded []string
	newProductImages, err := uc.uploadImages(ctx, input.NewImages, &uploaded)
	if err != nil {
		uc.purgeMedia(uploaded)
		return nil, err
	}

	variantImages := make([]model.ImageList, len(input.Variants))
	for i := range input.Variants {
		images, err := uc.uploadImages(ctx, input.Variants[i].NewImages, &uploaded)
		if err != nil {
			uc.purgeMedia(uploaded)
			return nil, err
		}
		variantImages[i] = images
	}

	now := time.Now()
	var removedAfterCommit []string

	p.Images, removedAfterCommit = reconcileImages(p.Images, newProductImages, input.ImagesToRemove, removedAfterCommit)
	p.UpdatedAt = now

	err = uc.txm.Do(ctx, func(ctx context.Context) error {
		existing, err := uc.repo.FindVariantsByProduct(ctx, p.ID)
		if err != nil {
			return err
		}

		byID := make(map[string]*model.ProductVariant, len(existing))
		for i := range existing {
			byID[existing[i].ID] = &existing[i]
		}
		supplied := make(map[string]bool, len(input.Variants))
		for _, up := range input.Variants {
			if up.ID != "" {
				supplied[up.ID] = true
			}
		}

		// Existing variants missing from the target list are deleted,
		// inventory permitting; a single blocked delete aborts the whole unit.
		for i := range existing {
			v := &existing[i]
			if supplied[v.ID] {
				continue
			}
			count, err := uc.inv.CountByVariant(ctx, v.ID)
			if err != nil {
				return err
			}
			if count > 0 {
				return apperror.Conflict("cannot delete variant %q: dependent inventory exists", v.Name)
			}
			if err := uc.repo.DeleteVariant(ctx, v.ID); err != nil {
				return err
			}
			removedAfterCommit = append(removedAfterCommit, v.Images.URLs()...)
		}

		updated := make([]model.ProductVariant, 0, len(input.Variants))
		for i, up := range input.Variants {
			if up.ID == "" {
				v := model.ProductVariant{
					BaseModel:  model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
					ProductID:  p.ID,
					MerchantID: p.MerchantID,
					Images:     variantImages[i],
				}
				if err := model.ApplyVariantDelta(&v, up.Changes); err != nil {
					return deltaError(err)
				}
				if v.Name == "" {
					return apperror.Validation("variant #%d: name is required", i+1)
				}
				if err := uc.repo.CreateVariant(ctx, &v); err != nil {
					return err
				}
				updated = append(updated, v)
				continue
			}

			v, ok := byID[up.ID]
			if !ok {
				return apperror.NotFound("variant %s does not belong to product %s", up.ID, p.ID)
			}
			if err := model.ApplyVariantDelta(v, up.Changes); err != nil {
				return deltaError(err)
			}
			v.Images, removedAfterCommit = reconcileImages(v.Images, variantImages[i], up.ImagesToRemove, removedAfterCommit)
			v.UpdatedAt = now
			if err := uc.repo.UpdateVariant(ctx, v); err != nil {
				return err
			}
			updated = append(updated, *v)
		}

		if err := uc.repo.Update(ctx, p); err != nil {
			return err
		}
		p.Variants = updated
		return nil
	})
	if err != nil {
		uc.purgeMedia(uploaded)
		return nil, uc.classifyWriteError(err, "update product with variants")
	}

	// Removed images are deleted only after the unit durably committed.
	uc.purgeMedia(removedAfterCommit)
	uc.afterMutation(p.MerchantID, p, events.ProductUpdated, p)
	return p, nil
}

func (uc *productUseCase) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	p, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apperror.Internal(err, "load product")
	}
	if p == nil {
		return nil, apperror.NotFound("product %s not found", id)
	}
	variants, err := uc.repo.FindVariantsByProduct(ctx, id)
	if err != nil {
		return nil, apperror.Internal(err, "load variants")
	}
	p.Variants = variants
	return p, nil
}

func (uc *productUseCase) ListProducts(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error) {
	cacheKey := uc.listCacheKey(filters)
	if uc.cache != nil && cacheKey != "" {
		if val, err := uc.cache.Client.Get(ctx, cacheKey).Result(); err == nil {
			var cached listCacheEntry
			if err := json.Unmarshal([]byte(val), &cached); err == nil {
				return cached.Products, cached.Count, nil
			}
		}
	}

	if filters.SearchQuery != "" && uc.es != nil {
		if products, count, err := uc.searchProducts(ctx, filters); err == nil {
			return products, count, nil
		} else {
			uc.logger.Error("search failed, falling back to database", zap.Error(err))
		}
	}

	products, count, err := uc.repo.FindAll(ctx, filters)
	if err != nil {
		return nil, 0, apperror.Internal(err, "list products")
	}

	if uc.cache != nil && cacheKey != "" {
		if data, err := json.Marshal(listCacheEntry{Products: products, Count: count}); err == nil {
			uc.cache.Client.Set(ctx, cacheKey, data, 5*time.Minute)
		}
	}
	return products, count, nil
}

type listCacheEntry struct {
	Products []model.Product `json:"products"`
	Count    int             `json:"count"`
}

func (uc *productUseCase) listCacheKey(filters *dto.ProductFilters) string {
	data, err := json.Marshal(filters)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("products:list:%s:%x", filters.MerchantID, md5.Sum(data))
}

func (uc *productUseCase) searchProducts(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error) {
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []map[string]interface{}{
					{
						"query_string": map[string]interface{}{
							"query":  fmt.Sprintf("*%s*", filters.SearchQuery),
							"fields": []string{"name^3", "brand", "description", "tags"},
						},
					},
					{
						"term": map[string]interface{}{
							"merchant_id": filters.MerchantID,
						},
					},
				},
			},
		},
		"from": (filters.Page - 1) * filters.PageSize,
	}
	if filters.PageSize > 0 {
		query["size"] = filters.PageSize
	}

	res, err := uc.es.Search(ctx, "products", query)
	if err != nil {
		return nil, 0, err
	}
	products := make([]model.Product, 0, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		var p model.Product
		if err := json.Unmarshal(hit.Source, &p); err == nil {
			products = append(products, p)
		}
	}
	return products, res.Hits.Total.Value, nil
}

// uploadImages pushes files to the media store, appending every produced URL
// to the caller's uploaded-this-attempt set before anything can fail.
func (uc *productUseCase) uploadImages(ctx context.Context, images []dto.UploadImage, uploaded *[]string) (model.ImageList, error) {
	if len(images) == 0 {
		return nil, nil
	}
	list := make(model.ImageList, 0, len(images))
	for _, img := range images {
		if img.File == nil {
			continue
		}
		url, err := uc.media.Upload(ctx, img.File)
		if err != nil {
			return nil, apperror.Internal(err, "upload media")
		}
		*uploaded = append(*uploaded, url)
		list = append(list, model.Image{URL: url, AltText: img.AltText})
	}
	return list, nil
}

// purgeMedia best-effort deletes the given URLs. Failures are logged and
// swallowed; catalog consistency is never traded for media tidiness.
func (uc *productUseCase) purgeMedia(urls []string) {
	if len(urls) == 0 {
		return
	}
	ctx := context.Background()
	for _, url := range urls {
		if err := uc.media.Delete(ctx, url); err != nil {
			uc.logger.Error("failed to delete media object", zap.String("url", url), zap.Error(err))
		}
	}
}

// classifyWriteError translates store failures into the outcome vocabulary.
// Taxonomy errors raised inside the unit pass through untouched.
func (uc *productUseCase) classifyWriteError(err error, op string) error {
	if constraint, ok := postgres.UniqueViolation(err); ok {
		field := fieldFromConstraint(constraint)
		return apperror.Conflict("duplicate %s: another record already uses this %s", field, field)
	}
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperror.Internal(err, "%s", op)
}

func fieldFromConstraint(constraint string) string {
	switch {
	case strings.Contains(constraint, "sku"):
		return "sku"
	case strings.Contains(constraint, "barcode"):
		return "barcode"
	case strings.Contains(constraint, "name"):
		return "name"
	default:
		return "identifier"
	}
}

// afterMutation runs the post-commit side effects: cache invalidation, search
// sync and event publishing. All best-effort, all detached from the request.
func (uc *productUseCase) afterMutation(merchantID string, p *model.Product, eventType string, payload interface{}) {
	go uc.invalidateProductCache(context.Background(), merchantID)
	if p != nil {
		go uc.syncToElastic(context.Background(), p)
	}
	go uc.publishEvent(context.Background(), eventType, payload)
}

func (uc *productUseCase) invalidateProductCache(ctx context.Context, merchantID string) {
	if uc.cache == nil {
		return
	}
	pattern := fmt.Sprintf("products:list:%s:*", merchantID)
	if err := uc.cache.DeleteByPattern(ctx, pattern); err != nil {
		uc.logger.Error("failed to invalidate product cache", zap.Error(err))
	}
}

func (uc *productUseCase) syncToElastic(ctx context.Context, p *model.Product) {
	if uc.es == nil {
		return
	}
	const indexName = "products"

	mapping := `{
		"mappings": {
			"properties": {
				"merchant_id": { "type": "keyword" },
				"name": { "type": "text" },
				"brand": { "type": "text" },
				"description": { "type": "text" },
				"tags": { "type": "keyword" },
				"created_at": { "type": "date" }
			}
		}
	}`
	_ = uc.es.CreateIndex(ctx, indexName, mapping)

	if err := uc.es.Index(ctx, indexName, p.ID, p); err != nil {
		uc.logger.Error("failed to index product", zap.Error(err))
	}
}

func (uc *productUseCase) publishEvent(ctx context.Context, eventType string, payload interface{}) {
	if uc.publisher == nil {
		return
	}
	env := events.New(eventType, payload)
	if err := uc.publisher.Publish(ctx, env.EventID, env); err != nil {
		uc.logger.Error("failed to publish catalog event", zap.String("event_type", eventType), zap.Error(err))
	}
}

func buildVariant(p *model.Product, payload *dto.VariantPayload, images model.ImageList, now time.Time) model.ProductVariant {
	return model.ProductVariant{
		BaseModel:  model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		ProductID:  p.ID,
		MerchantID: p.MerchantID,
		Name:       payload.Name,
		Unit:       payload.Unit,
		SKU:        optional(payload.SKU),
		Barcode:    optional(payload.Barcode),
		Weight:     payload.Weight,
		Prices:     payload.Prices,
		Attributes: payload.Attributes,
		Images:     images,
	}
}

// reconcileImages appends freshly uploaded images and strips the ones marked
// for removal, collecting removed URLs for post-commit deletion.
func reconcileImages(current, added model.ImageList, toRemove []string, removed []string) (model.ImageList, []string) {
	removeSet := make(map[string]bool, len(toRemove))
	for _, url := range toRemove {
		removeSet[url] = true
	}

	result := make(model.ImageList, 0, len(current)+len(added))
	for _, img := range current {
		if removeSet[img.URL] {
			removed = append(removed, img.URL)
			continue
		}
		result = append(result, img)
	}
	result = append(result, added...)
	return result, removed
}

func rejectProductKey(changes map[string]interface{}) error {
	if changes == nil {
		return nil
	}
	if _, ok := changes["product"]; ok {
		return apperror.Validation("variant product reference is immutable")
	}
	if _, ok := changes["product_id"]; ok {
		return apperror.Validation("variant product reference is immutable")
	}
	return nil
}

func deltaError(err error) error {
	if err == model.ErrImmutableField {
		return apperror.Validation("variant product reference is immutable")
	}
	return apperror.Validation("%s", err.Error())
}

func categoryChanged(before, after *string) bool {
	switch {
	case before == nil && after == nil:
		return false
	case before == nil || after == nil:
		return true
	default:
		return *before != *after
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
