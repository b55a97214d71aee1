package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cataloghq/catalog-service/internal/apperror"
	"github.com/cataloghq/catalog-service/internal/auth"
	"github.com/cataloghq/catalog-service/internal/category"
	"github.com/cataloghq/catalog-service/internal/category/dto"
	"github.com/cataloghq/catalog-service/internal/pkg/logger"
)

type CategoryHandler struct {
	uc     category.UseCase
	logger logger.ZapLogger
}

func NewCategoryHandler(uc category.UseCase, log logger.ZapLogger) *CategoryHandler {
	return &CategoryHandler{uc: uc, logger: log}
}

func (h *CategoryHandler) Register(r gin.IRoutes) {
	r.GET("/categories", h.List)
	r.GET("/categories/:id", h.Get)
}

func (h *CategoryHandler) List(c *gin.Context) {
	actor := auth.FromContext(c.Request.Context())

	filters := &dto.CategoryFilters{
		MerchantID: actor.MerchantID,
		Page:       queryInt(c, "page", 1),
		PageSize:   queryInt(c, "page_size", 50),
	}
	if parent, ok := c.GetQuery("parent_id"); ok {
		filters.ParentID = &parent
	}
	if raw, ok := c.GetQuery("is_active"); ok {
		if active, err := strconv.ParseBool(raw); err == nil {
			filters.IsActive = &active
		}
	}

	categories, total, err := h.uc.ListCategories(c.Request.Context(), filters)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":      categories,
		"total":     total,
		"page":      filters.Page,
		"page_size": filters.PageSize,
	})
}

func (h *CategoryHandler) Get(c *gin.Context) {
	cat, err := h.uc.GetCategory(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cat)
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

func (h *CategoryHandler) respondError(c *gin.Context, err error) {
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
