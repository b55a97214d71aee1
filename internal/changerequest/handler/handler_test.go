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
	"github.com/cataloghq/catalog-service/internal/changerequest/dto"
	"github.com/cataloghq/catalog-service/internal/changerequest/handler"
	"github.com/cataloghq/catalog-service/internal/model"
	"github.com/cataloghq/catalog-service/internal/pkg/logger"
)

type stubUseCase struct {
	listFilters *dto.ChangeRequestFilters
	listResult  []model.ProductVariantChangeRequest
	approveErr  error
	rejectErr   error
}

func (s *stubUseCase) List(_ context.Context, filters *dto.ChangeRequestFilters) ([]model.ProductVariantChangeRequest, int, error) {
	s.listFilters = filters
	return s.listResult, len(s.listResult), nil
}

func (s *stubUseCase) Approve(_ context.Context, requestID string, _ auth.Actor) (*model.ProductVariant, error) {
	if s.approveErr != nil {
		return nil, s.approveErr
	}
	return &model.ProductVariant{BaseModel: model.BaseModel{ID: "v-1"}, Name: "500g"}, nil
}

func (s *stubUseCase) Reject(_ context.Context, requestID, reason string, actor auth.Actor) (*model.ProductVariantChangeRequest, error) {
	if s.rejectErr != nil {
		return nil, s.rejectErr
	}
	cr := &model.ProductVariantChangeRequest{
		BaseModel:       model.BaseModel{ID: requestID},
		Status:          model.ChangeRequestRejected,
		ReviewedBy:      &actor.ID,
		RejectionReason: &reason,
	}
	return cr, nil
}

func newRouter(stub *stubUseCase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(auth.Middleware())
	handler.NewChangeRequestHandler(stub, logger.NewNop()).Register(router)
	return router
}

func adminRequest(method, target string, body []byte) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.Header.Set("X-Actor-Id", "u-admin")
	req.Header.Set("X-Merchant-Id", "m-1")
	req.Header.Set("X-Actor-Role", "admin")
	return req
}

func TestList_StatusQueryReachesFilters(t *testing.T) {
	stub := &stubUseCase{
		listResult: []model.ProductVariantChangeRequest{
			{BaseModel: model.BaseModel{ID: "cr-1"}, Status: model.ChangeRequestRejected},
		},
	}
	router := newRouter(stub)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, adminRequest(http.MethodGet, "/change-requests?status=rejected&page=2&page_size=5", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, stub.listFilters)
	require.Equal(t, model.ChangeRequestRejected, stub.listFilters.Status)
	require.Equal(t, "m-1", stub.listFilters.MerchantID)
	require.Equal(t, 2, stub.listFilters.Page)
	require.Equal(t, 5, stub.listFilters.PageSize)
}

func TestList_DefaultsPagination(t *testing.T) {
	stub := &stubUseCase{}
	router := newRouter(stub)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, adminRequest(http.MethodGet, "/change-requests", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, model.ChangeRequestStatus(""), stub.listFilters.Status)
	require.Equal(t, 1, stub.listFilters.Page)
	require.Equal(t, 20, stub.listFilters.PageSize)
}

func TestApprove_ReturnsVariant(t *testing.T) {
	router := newRouter(&stubUseCase{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, adminRequest(http.MethodPost, "/change-requests/cr-1/approve", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.JSONEq(t, `"approved"`, string(body["status"]))
	require.Contains(t, string(body["variant"]), "v-1")
}

func TestApprove_ErrorKindToStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", apperror.NotFound("change request cr-9 not found"), http.StatusNotFound},
		{"already reviewed", apperror.Conflict("change request already rejected"), http.StatusConflict},
		{"internal", apperror.Internal(context.DeadlineExceeded, "store down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newRouter(&stubUseCase{approveErr: tc.err})
			w := httptest.NewRecorder()
			router.ServeHTTP(w, adminRequest(http.MethodPost, "/change-requests/cr-1/approve", nil))
			require.Equal(t, tc.want, w.Code)
		})
	}
}

func TestReject_PassesReason(t *testing.T) {
	router := newRouter(&stubUseCase{})

	body, _ := json.Marshal(map[string]string{"reason": "unit not carried"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, adminRequest(http.MethodPost, "/change-requests/cr-1/reject", body))

	require.Equal(t, http.StatusOK, w.Code)

	var got model.ProductVariantChangeRequest
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Equal(t, model.ChangeRequestRejected, got.Status)
	require.NotNil(t, got.RejectionReason)
	require.Equal(t, "unit not carried", *got.RejectionReason)
}

func TestReject_MissingReasonMapsToBadRequest(t *testing.T) {
	router := newRouter(&stubUseCase{rejectErr: apperror.Validation("a rejection reason is required")})

	body, _ := json.Marshal(map[string]string{"reason": ""})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, adminRequest(http.MethodPost, "/change-requests/cr-1/reject", body))

	require.Equal(t, http.StatusBadRequest, w.Code)
}
