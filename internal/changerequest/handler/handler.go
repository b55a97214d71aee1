package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cataloghq/catalog-service/internal/apperror"
	"github.com/cataloghq/catalog-service/internal/auth"
	"github.com/cataloghq/catalog-service/internal/changerequest"
	"github.com/cataloghq/catalog-service/internal/changerequest/dto"
	"github.com/cataloghq/catalog-service/internal/model"
	"github.com/cataloghq/catalog-service/internal/pkg/logger"
)

type ChangeRequestHandler struct {
	uc     changerequest.UseCase
	logger logger.ZapLogger
}

func NewChangeRequestHandler(uc changerequest.UseCase, log logger.ZapLogger) *ChangeRequestHandler {
	return &ChangeRequestHandler{uc: uc, logger: log}
}

// Register mounts the moderation routes. Callers are expected to guard the
// route group with auth.RequireAdmin.
func (h *ChangeRequestHandler) Register(r gin.IRoutes) {
	r.GET("/change-requests", h.List)
	r.POST("/change-requests/:id/approve", h.Approve)
	r.POST("/change-requests/:id/reject", h.Reject)
}

func (h *ChangeRequestHandler) List(c *gin.Context) {
	actor := auth.FromContext(c.Request.Context())

	filters := &dto.ChangeRequestFilters{
		MerchantID: actor.MerchantID,
		Status:     model.ChangeRequestStatus(c.Query("status")),
		Page:       queryInt(c, "page", 1),
		PageSize:   queryInt(c, "page_size", 20),
	}

	requests, total, err := h.uc.List(c.Request.Context(), filters)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":      requests,
		"total":     total,
		"page":      filters.Page,
		"page_size": filters.PageSize,
	})
}

func (h *ChangeRequestHandler) Approve(c *gin.Context) {
	actor := auth.FromContext(c.Request.Context())

	variant, err := h.uc.Approve(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "approved",
		"variant": variant,
	})
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h *ChangeRequestHandler) Reject(c *gin.Context) {
	actor := auth.FromContext(c.Request.Context())

	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	cr, err := h.uc.Reject(c.Request.Context(), c.Param("id"), req.Reason, actor)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cr)
}

func queryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func (h *ChangeRequestHandler) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch apperror.KindOf(err) {
	case apperror.KindValidation:
		status = http.StatusBadRequest
	case apperror.KindNotFound:
		status = http.StatusNotFound
	case apperror.KindConflict:
		status = http.StatusConflict
	default:
		h.logger.Error("internal error", zap.Error(err))
	}
	c.JSON(status, gin.H{"error": apperror.Message(err)})
}
