package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/cataloghq/catalog-service/internal/apperror"
	"github.com/cataloghq/catalog-service/internal/auth"
	"github.com/cataloghq/catalog-service/internal/model"
	"github.com/cataloghq/catalog-service/internal/pkg/logger"
	"github.com/cataloghq/catalog-service/internal/product/dto"
	"github.com/cataloghq/catalog-service/internal/product/handler"
)

// stubUseCase scripts per-operation outcomes so the handler's status mapping
// can be exercised without any real stack behind it.
type stubUseCase struct {
	updateVariantResult *dto.UpdateVariantResult
	updateVariantErr    error
	getProductErr       error
	deleteVariantErr    error
}

func (s *stubUseCase) CreateProductWithVariants(_ context.Context, _ *dto.CreateProductInput) (*model.Product, error) {
	return &model.Product{BaseModel: model.BaseModel{ID: "p-1"}}, nil
}

func (s *stubUseCase) UpdateProductWithVariants(_ context.Context, _ *dto.UpdateProductInput) (*model.Product, error) {
	return nil, apperror.Conflict("duplicate sku: another record already uses this sku")
}

func (s *stubUseCase) GetProduct(_ context.Context, id string) (*model.Product, error) {
	if s.getProductErr != nil {
		return nil, s.getProductErr
	}
	return &model.Product{BaseModel: model.BaseModel{ID: id}}, nil
}

func (s *stubUseCase) ListProducts(_ context.Context, _ *dto.ProductFilters) ([]model.Product, int, error) {
	return nil, 0, nil
}

func (s *stubUseCase) CreateVariant(_ context.Context, _ *dto.CreateVariantInput) (*model.ProductVariant, error) {
	return &model.ProductVariant{BaseModel: model.BaseModel{ID: "v-1"}}, nil
}

func (s *stubUseCase) UpdateVariant(_ context.Context, _ *dto.UpdateVariantInput) (*dto.UpdateVariantResult, error) {
	return s.updateVariantResult, s.updateVariantErr
}

func (s *stubUseCase) DeleteVariant(_ context.Context, _ string) error {
	return s.deleteVariantErr
}

func newRouter(stub *stubUseCase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(auth.Middleware())
	handler.NewProductHandler(stub, logger.NewNop()).Register(router)
	return router
}

func patchVariant(router *gin.Engine, changes map[string]interface{}) *httptest.ResponseRecorder {
	body, _ := json.Marshal(changes)
	req := httptest.NewRequest(http.MethodPatch, "/variants/v-1", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestUpdateVariant_DirectWriteReturns200(t *testing.T) {
	router := newRouter(&stubUseCase{
		updateVariantResult: &dto.UpdateVariantResult{
			Variant: &model.ProductVariant{BaseModel: model.BaseModel{ID: "v-1"}, Name: "500g"},
		},
	})

	w := patchVariant(router, map[string]interface{}{"name": "500g"})
	require.Equal(t, http.StatusOK, w.Code)

	var got model.ProductVariant
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Equal(t, "500g", got.Name)
}

func TestUpdateVariant_PendingReviewReturns202(t *testing.T) {
	router := newRouter(&stubUseCase{
		updateVariantResult: &dto.UpdateVariantResult{
			ChangeRequest: &model.ProductVariantChangeRequest{
				BaseModel: model.BaseModel{ID: "cr-1"},
				Status:    model.ChangeRequestPending,
			},
			PendingReview: true,
		},
	})

	w := patchVariant(router, map[string]interface{}{"name": "500g"})
	require.Equal(t, http.StatusAccepted, w.Code)

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.JSONEq(t, `"pending_review"`, string(body["status"]))
	require.Contains(t, string(body["change_request"]), "cr-1")
}

func TestErrorKindToStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", apperror.Validation("bad input"), http.StatusBadRequest},
		{"not found", apperror.NotFound("variant missing"), http.StatusNotFound},
		{"conflict", apperror.Conflict("duplicate sku"), http.StatusConflict},
		{"internal", apperror.Internal(context.DeadlineExceeded, "store down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newRouter(&stubUseCase{updateVariantErr: tc.err})
			w := patchVariant(router, map[string]interface{}{"name": "x"})
			require.Equal(t, tc.want, w.Code)
		})
	}
}

func TestInternalErrorMessageDoesNotLeak(t *testing.T) {
	router := newRouter(&stubUseCase{
		updateVariantErr: apperror.Internal(context.DeadlineExceeded, "store down"),
	})

	w := patchVariant(router, map[string]interface{}{"name": "x"})
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.NotContains(t, w.Body.String(), "deadline")
}

func TestGetProduct_NotFound(t *testing.T) {
	router := newRouter(&stubUseCase{getProductErr: apperror.NotFound("product p-9 not found")})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/products/p-9", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateProduct_AcceptsJSONPayload(t *testing.T) {
	router := newRouter(&stubUseCase{})

	payload := map[string]interface{}{
		"product":  map[string]interface{}{"name": "Coffee", "category_id": "cat-1"},
		"variants": []map[string]interface{}{{"name": "250g"}},
	}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/products", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
}
