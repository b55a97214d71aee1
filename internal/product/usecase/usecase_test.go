package usecase_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/cataloghq/catalog-service/internal/apperror"
	"github.com/cataloghq/catalog-service/internal/auth"
	crdto "github.com/cataloghq/catalog-service/internal/changerequest/dto"
	catdto "github.com/cataloghq/catalog-service/internal/category/dto"
	"github.com/cataloghq/catalog-service/internal/media"
	"github.com/cataloghq/catalog-service/internal/model"
	"github.com/cataloghq/catalog-service/internal/pkg/logger"
	"github.com/cataloghq/catalog-service/internal/product"
	"github.com/cataloghq/catalog-service/internal/product/dto"
	"github.com/cataloghq/catalog-service/internal/product/usecase"
)

type fakeRepo struct {
	mu       sync.Mutex
	products map[string]*model.Product
	variants map[string]*model.ProductVariant

	createVariantErr func(v *model.ProductVariant) error
	updateVariantErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		products: map[string]*model.Product{},
		variants: map[string]*model.ProductVariant{},
	}
}

func (r *fakeRepo) Create(_ context.Context, p *model.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.products[p.ID] = &cp
	return nil
}

func (r *fakeRepo) FindByID(_ context.Context, id string) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *fakeRepo) FindAll(_ context.Context, _ *dto.ProductFilters) ([]model.Product, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Product
	for _, p := range r.products {
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (r *fakeRepo) Update(_ context.Context, p *model.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.products[p.ID] = &cp
	return nil
}

func (r *fakeRepo) CreateVariant(_ context.Context, v *model.ProductVariant) error {
	if r.createVariantErr != nil {
		if err := r.createVariantErr(v); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *v
	r.variants[v.ID] = &cp
	return nil
}

func (r *fakeRepo) FindVariantByID(_ context.Context, id string) (*model.ProductVariant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.variants[id]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

func (r *fakeRepo) FindVariantsByProduct(_ context.Context, productID string) ([]model.ProductVariant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.ProductVariant
	for _, v := range r.variants {
		if v.ProductID == productID {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (r *fakeRepo) UpdateVariant(_ context.Context, v *model.ProductVariant) error {
	if r.updateVariantErr != nil {
		return r.updateVariantErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *v
	r.variants[v.ID] = &cp
	return nil
}

func (r *fakeRepo) DeleteVariant(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.variants, id)
	return nil
}

type repoSnapshot struct {
	products map[string]*model.Product
	variants map[string]*model.ProductVariant
}

func (r *fakeRepo) snapshot() repoSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := repoSnapshot{
		products: make(map[string]*model.Product, len(r.products)),
		variants: make(map[string]*model.ProductVariant, len(r.variants)),
	}
	for id, p := range r.products {
		cp := *p
		snap.products[id] = &cp
	}
	for id, v := range r.variants {
		cp := *v
		snap.variants[id] = &cp
	}
	return snap
}

func (r *fakeRepo) restore(snap repoSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products = snap.products
	r.variants = snap.variants
}

type fakeCRRepo struct {
	mu      sync.Mutex
	created []*model.ProductVariantChangeRequest
}

func (r *fakeCRRepo) Create(_ context.Context, cr *model.ProductVariantChangeRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *cr
	r.created = append(r.created, &cp)
	return nil
}

func (r *fakeCRRepo) FindByID(_ context.Context, id string) (*model.ProductVariantChangeRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cr := range r.created {
		if cr.ID == id {
			cp := *cr
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeCRRepo) FindAll(_ context.Context, _ *crdto.ChangeRequestFilters) ([]model.ProductVariantChangeRequest, int, error) {
	return nil, 0, nil
}

func (r *fakeCRRepo) Update(_ context.Context, _ *model.ProductVariantChangeRequest) error {
	return nil
}

func (r *fakeCRRepo) snapshot() []*model.ProductVariantChangeRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.ProductVariantChangeRequest, len(r.created))
	for i, cr := range r.created {
		cp := *cr
		out[i] = &cp
	}
	return out
}

func (r *fakeCRRepo) restore(snap []*model.ProductVariantChangeRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = snap
}

type fakeCategories struct {
	known map[string]bool
}

func (c *fakeCategories) Exists(_ context.Context, id string) (bool, error) {
	return c.known[id], nil
}

func (c *fakeCategories) FindByID(_ context.Context, id string) (*model.Category, error) {
	if !c.known[id] {
		return nil, nil
	}
	return &model.Category{BaseModel: model.BaseModel{ID: id}}, nil
}

func (c *fakeCategories) FindAll(_ context.Context, _ *catdto.CategoryFilters) ([]model.Category, int, error) {
	return nil, 0, nil
}

// fakeInventory mirrors the real guard: a recorded row blocks deletion no
// matter its quantity.
type fakeInventory struct {
	quantities map[string]int
}

func (i *fakeInventory) CountByVariant(_ context.Context, variantID string) (int, error) {
	if _, ok := i.quantities[variantID]; ok {
		return 1, nil
	}
	return 0, nil
}

type fakeMedia struct {
	mu      sync.Mutex
	seq     int
	deleted []string
}

func (m *fakeMedia) Upload(_ context.Context, _ *media.File) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	return fmt.Sprintf("https://cdn.test/obj-%d", m.seq), nil
}

func (m *fakeMedia) Delete(_ context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, url)
	return nil
}

func (m *fakeMedia) deletedURLs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deleted...)
}

// rollbackTxm mirrors the real manager's contract against the in-memory
// fakes: the outermost unit snapshots repository state on entry and restores
// it when the unit returns an error, so partial writes never survive a
// failed unit. Nested units join the outer one, like the real manager.
type rollbackTxm struct {
	repo  *fakeRepo
	cr    *fakeCRRepo
	depth int
}

func (m *rollbackTxm) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	m.depth++
	defer func() { m.depth-- }()
	if m.depth > 1 {
		return fn(ctx)
	}

	repoSnap := m.repo.snapshot()
	crSnap := m.cr.snapshot()
	err := fn(ctx)
	if err != nil {
		m.repo.restore(repoSnap)
		m.cr.restore(crSnap)
	}
	return err
}

type fixture struct {
	uc    product.UseCase
	repo  *fakeRepo
	cr    *fakeCRRepo
	inv   *fakeInventory
	media *fakeMedia
}

func newFixture() *fixture {
	repo := newFakeRepo()
	cr := &fakeCRRepo{}
	inv := &fakeInventory{quantities: map[string]int{}}
	mediaStore := &fakeMedia{}
	cats := &fakeCategories{known: map[string]bool{"cat-1": true}}

	uc := usecase.NewProductUseCase(
		repo, cr, cats, inv, mediaStore,
		&rollbackTxm{repo: repo, cr: cr}, auth.NewRoleAuthorizer(),
		nil, nil, nil, logger.NewNop(),
	)
	return &fixture{uc: uc, repo: repo, cr: cr, inv: inv, media: mediaStore}
}

func upload(name string) dto.UploadImage {
	return dto.UploadImage{
		File:    &media.File{Name: name, ContentType: "image/png", Data: []byte{0x89}},
		AltText: name,
	}
}

func (f *fixture) seedProduct(t *testing.T) *model.Product {
	t.Helper()
	p := &model.Product{
		BaseModel:  model.BaseModel{ID: uuid.New().String()},
		MerchantID: "m-1",
		Name:       "Coffee Beans",
	}
	require.NoError(t, f.repo.Create(context.Background(), p))
	return p
}

func (f *fixture) seedVariant(t *testing.T, productID string, images ...string) *model.ProductVariant {
	t.Helper()
	var list model.ImageList
	for _, url := range images {
		list = append(list, model.Image{URL: url})
	}
	v := &model.ProductVariant{
		BaseModel:  model.BaseModel{ID: uuid.New().String()},
		ProductID:  productID,
		MerchantID: "m-1",
		Name:       "250g",
		Unit:       "bag",
		Images:     list,
	}
	require.NoError(t, f.repo.CreateVariant(context.Background(), v))
	return v
}

func TestCreateProductWithVariants(t *testing.T) {
	f := newFixture()

	got, err := f.uc.CreateProductWithVariants(context.Background(), &dto.CreateProductInput{
		MerchantID: "m-1",
		Product: dto.ProductPayload{
			Name:       "Coffee Beans",
			CategoryID: "cat-1",
			Images:     []dto.UploadImage{upload("hero.png")},
		},
		Variants: []dto.VariantPayload{
			{Name: "250g", Unit: "bag", SKU: "SKU-250"},
			{Name: "1kg", Unit: "bag", Images: []dto.UploadImage{upload("big.png")}},
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, got.ID)
	require.Len(t, got.Variants, 2)
	require.Len(t, got.Images, 1)

	stored, err := f.repo.FindByID(context.Background(), got.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Empty(t, f.media.deletedURLs())
}

func TestCreateProductWithVariants_Validation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.uc.CreateProductWithVariants(ctx, &dto.CreateProductInput{
		MerchantID: "m-1",
		Product:    dto.ProductPayload{CategoryID: "cat-1"},
		Variants:   []dto.VariantPayload{{Name: "v"}},
	})
	require.True(t, apperror.IsValidation(err))

	_, err = f.uc.CreateProductWithVariants(ctx, &dto.CreateProductInput{
		MerchantID: "m-1",
		Product:    dto.ProductPayload{Name: "p", CategoryID: "cat-1"},
	})
	require.True(t, apperror.IsValidation(err))
}

func TestCreateProductWithVariants_UnknownCategory(t *testing.T) {
	f := newFixture()

	_, err := f.uc.CreateProductWithVariants(context.Background(), &dto.CreateProductInput{
		MerchantID: "m-1",
		Product:    dto.ProductPayload{Name: "p", CategoryID: "cat-missing"},
		Variants:   []dto.VariantPayload{{Name: "v"}},
	})
	require.True(t, apperror.IsNotFound(err))
}

func TestCreateProductWithVariants_DuplicateSKUCompensatesUploads(t *testing.T) {
	f := newFixture()
	f.repo.createVariantErr = func(v *model.ProductVariant) error {
		if v.SKU != nil && *v.SKU == "SKU-DUP" {
			return &pq.Error{Code: "23505", Constraint: "product_variants_sku_key"}
		}
		return nil
	}

	_, err := f.uc.CreateProductWithVariants(context.Background(), &dto.CreateProductInput{
		MerchantID: "m-1",
		Product: dto.ProductPayload{
			Name:       "Coffee Beans",
			CategoryID: "cat-1",
			Images:     []dto.UploadImage{upload("hero.png")},
		},
		Variants: []dto.VariantPayload{
			{Name: "250g", SKU: "SKU-DUP", Images: []dto.UploadImage{upload("v.png")}},
		},
	})
	require.True(t, apperror.IsConflict(err))
	require.Contains(t, apperror.Message(err), "sku")

	// Every upload of the failed attempt is purged.
	require.Len(t, f.media.deletedURLs(), 2)

	// The unit rolled back whole: no product and no variant survives the
	// failed attempt.
	remaining, total, findErr := f.repo.FindAll(context.Background(), nil)
	require.NoError(t, findErr)
	require.Empty(t, remaining)
	require.Zero(t, total)
}

func TestUpdateVariant_AdminAppliesDirectly(t *testing.T) {
	f := newFixture()
	p := f.seedProduct(t)
	v := f.seedVariant(t, p.ID)

	res, err := f.uc.UpdateVariant(context.Background(), &dto.UpdateVariantInput{
		VariantID: v.ID,
		Changes:   map[string]interface{}{"name": "500g", "roast": "dark"},
		Actor:     auth.Actor{ID: "u-1", MerchantID: "m-1", Role: auth.RoleAdmin},
	})
	require.NoError(t, err)
	require.False(t, res.PendingReview)
	require.Equal(t, "500g", res.Variant.Name)
	require.Equal(t, "dark", res.Variant.Attributes["roast"])

	stored, _ := f.repo.FindVariantByID(context.Background(), v.ID)
	require.Equal(t, "500g", stored.Name)
	require.Empty(t, f.cr.created)
}

func TestUpdateVariant_MemberStagesChangeRequest(t *testing.T) {
	f := newFixture()
	p := f.seedProduct(t)
	v := f.seedVariant(t, p.ID)

	changes := map[string]interface{}{"name": "500g"}
	res, err := f.uc.UpdateVariant(context.Background(), &dto.UpdateVariantInput{
		VariantID: v.ID,
		Changes:   changes,
		Actor:     auth.Actor{ID: "u-2", MerchantID: "m-1", Role: auth.RoleMember},
	})
	require.NoError(t, err)
	require.True(t, res.PendingReview)
	require.Nil(t, res.Variant)
	require.Equal(t, model.ChangeRequestPending, res.ChangeRequest.Status)
	require.Equal(t, "u-2", res.ChangeRequest.RequestedBy)
	require.Equal(t, "500g", res.ChangeRequest.Changes["name"])

	// The variant itself is untouched until review.
	stored, _ := f.repo.FindVariantByID(context.Background(), v.ID)
	require.Equal(t, "250g", stored.Name)
	require.Len(t, f.cr.created, 1)
}

func TestUpdateVariant_ProductReferenceImmutable(t *testing.T) {
	f := newFixture()
	p := f.seedProduct(t)
	v := f.seedVariant(t, p.ID)

	for _, key := range []string{"product", "product_id"} {
		_, err := f.uc.UpdateVariant(context.Background(), &dto.UpdateVariantInput{
			VariantID: v.ID,
			Changes:   map[string]interface{}{key: "p-other"},
			Actor:     auth.Actor{ID: "u-1", Role: auth.RoleAdmin},
		})
		require.True(t, apperror.IsValidation(err), "key %q", key)
	}
	require.Empty(t, f.cr.created)
}

func TestUpdateVariant_EmptyChanges(t *testing.T) {
	f := newFixture()
	_, err := f.uc.UpdateVariant(context.Background(), &dto.UpdateVariantInput{
		VariantID: "v-x",
		Actor:     auth.Actor{Role: auth.RoleAdmin},
	})
	require.True(t, apperror.IsValidation(err))
}

func TestUpdateVariant_NotFound(t *testing.T) {
	f := newFixture()
	_, err := f.uc.UpdateVariant(context.Background(), &dto.UpdateVariantInput{
		VariantID: "v-missing",
		Changes:   map[string]interface{}{"name": "x"},
		Actor:     auth.Actor{Role: auth.RoleAdmin},
	})
	require.True(t, apperror.IsNotFound(err))
}

func TestDeleteVariant_PurgesMediaAfterCommit(t *testing.T) {
	f := newFixture()
	p := f.seedProduct(t)
	v := f.seedVariant(t, p.ID, "https://cdn.test/a.png", "https://cdn.test/b.png")

	require.NoError(t, f.uc.DeleteVariant(context.Background(), v.ID))

	stored, _ := f.repo.FindVariantByID(context.Background(), v.ID)
	require.Nil(t, stored)
	require.ElementsMatch(t,
		[]string{"https://cdn.test/a.png", "https://cdn.test/b.png"},
		f.media.deletedURLs(),
	)
}

func TestDeleteVariant_BlockedByInventory(t *testing.T) {
	f := newFixture()
	p := f.seedProduct(t)
	v := f.seedVariant(t, p.ID, "https://cdn.test/a.png")
	f.inv.quantities[v.ID] = 3

	err := f.uc.DeleteVariant(context.Background(), v.ID)
	require.True(t, apperror.IsConflict(err))

	stored, _ := f.repo.FindVariantByID(context.Background(), v.ID)
	require.NotNil(t, stored)
	require.Empty(t, f.media.deletedURLs())
}

func TestDeleteVariant_BlockedByDepletedInventory(t *testing.T) {
	f := newFixture()
	p := f.seedProduct(t)
	v := f.seedVariant(t, p.ID)
	f.inv.quantities[v.ID] = 0

	err := f.uc.DeleteVariant(context.Background(), v.ID)
	require.True(t, apperror.IsConflict(err))

	stored, _ := f.repo.FindVariantByID(context.Background(), v.ID)
	require.NotNil(t, stored)
}

func TestUpdateProductWithVariants_ReconcilesVariantSet(t *testing.T) {
	f := newFixture()
	p := f.seedProduct(t)
	keep := f.seedVariant(t, p.ID)
	drop := f.seedVariant(t, p.ID, "https://cdn.test/old.png")

	got, err := f.uc.UpdateProductWithVariants(context.Background(), &dto.UpdateProductInput{
		ID:         p.ID,
		MerchantID: "m-1",
		Product:    map[string]interface{}{"name": "Single Origin"},
		Variants: []dto.VariantUpsert{
			{ID: keep.ID, Changes: map[string]interface{}{"name": "renamed"}},
			{Changes: map[string]interface{}{"name": "fresh", "unit": "box"}},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "Single Origin", got.Name)
	require.Len(t, got.Variants, 2)

	gone, _ := f.repo.FindVariantByID(context.Background(), drop.ID)
	require.Nil(t, gone)
	// The dropped variant's media goes only after commit.
	require.Contains(t, f.media.deletedURLs(), "https://cdn.test/old.png")

	kept, _ := f.repo.FindVariantByID(context.Background(), keep.ID)
	require.Equal(t, "renamed", kept.Name)
}

func TestUpdateProductWithVariants_DeleteBlockedByInventory(t *testing.T) {
	f := newFixture()
	p := f.seedProduct(t)
	v := f.seedVariant(t, p.ID)
	f.inv.quantities[v.ID] = 1

	_, err := f.uc.UpdateProductWithVariants(context.Background(), &dto.UpdateProductInput{
		ID:         p.ID,
		MerchantID: "m-1",
		Variants:   []dto.VariantUpsert{},
	})
	require.True(t, apperror.IsConflict(err))

	stored, _ := f.repo.FindVariantByID(context.Background(), v.ID)
	require.NotNil(t, stored)
}

func TestUpdateProductWithVariants_ForeignVariantRejected(t *testing.T) {
	f := newFixture()
	p := f.seedProduct(t)
	other := f.seedProduct(t)
	foreign := f.seedVariant(t, other.ID)

	_, err := f.uc.UpdateProductWithVariants(context.Background(), &dto.UpdateProductInput{
		ID:         p.ID,
		MerchantID: "m-1",
		Variants: []dto.VariantUpsert{
			{ID: foreign.ID, Changes: map[string]interface{}{"name": "hijack"}},
		},
	})
	require.True(t, apperror.IsNotFound(err))
}

func TestUpdateProductWithVariants_UnknownProductField(t *testing.T) {
	f := newFixture()
	p := f.seedProduct(t)

	_, err := f.uc.UpdateProductWithVariants(context.Background(), &dto.UpdateProductInput{
		ID:         p.ID,
		MerchantID: "m-1",
		Product:    map[string]interface{}{"sku": "nope"},
	})
	require.True(t, apperror.IsValidation(err))
}
