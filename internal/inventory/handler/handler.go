package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cataloghq/catalog-service/internal/apperror"
	"github.com/cataloghq/catalog-service/internal/auth"
	"github.com/cataloghq/catalog-service/internal/inventory"
	"github.com/cataloghq/catalog-service/internal/pkg/logger"
)

// InventoryHandler exposes the read side of the stock mirror. Quantities are
// written only by the order-events listener.
type InventoryHandler struct {
	uc     inventory.UseCase
	logger logger.ZapLogger
}

func NewInventoryHandler(uc inventory.UseCase, log logger.ZapLogger) *InventoryHandler {
	return &InventoryHandler{uc: uc, logger: log}
}

func (h *InventoryHandler) Register(r gin.IRoutes) {
	r.GET("/variants/:id/inventory", h.GetStock)
}

func (h *InventoryHandler) GetStock(c *gin.Context) {
	actor := auth.FromContext(c.Request.Context())

	var storeID *string
	if store, ok := c.GetQuery("store_id"); ok {
		storeID = &store
	}

	inv, err := h.uc.GetStock(c.Request.Context(), actor.MerchantID, c.Param("id"), storeID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (h *InventoryHandler) respondError(c *gin.Context, err error) {
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
