package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cataloghq/catalog-service/internal/apperror"
	"github.com/cataloghq/catalog-service/internal/auth"
	"github.com/cataloghq/catalog-service/internal/media"
	"github.com/cataloghq/catalog-service/internal/model"
	"github.com/cataloghq/catalog-service/internal/pkg/logger"
	"github.com/cataloghq/catalog-service/internal/product"
	"github.com/cataloghq/catalog-service/internal/product/dto"
)

type ProductHandler struct {
	uc     product.UseCase
	logger logger.ZapLogger
}

func NewProductHandler(uc product.UseCase, log logger.ZapLogger) *ProductHandler {
	return &ProductHandler{uc: uc, logger: log}
}

func (h *ProductHandler) Register(r gin.IRoutes) {
	r.POST("/products", h.CreateProduct)
	r.GET("/products", h.ListProducts)
	r.GET("/products/:id", h.GetProduct)
	r.PATCH("/products/:id", h.UpdateProduct)
	r.POST("/products/:id/variants", h.CreateVariant)
	r.PATCH("/variants/:id", h.UpdateVariant)
	r.DELETE("/variants/:id", h.DeleteVariant)
}

type createProductPayload struct {
	Product struct {
		Name        string   `json:"name"`
		Brand       string   `json:"brand"`
		Description string   `json:"description"`
		CategoryID  string   `json:"category_id"`
		Tags        []string `json:"tags"`
		ImageAlts   []string `json:"image_alts"`
	} `json:"product"`
	Variants []variantPayload `json:"variants"`
}

type variantPayload struct {
	Name       string                 `json:"name"`
	Unit       string                 `json:"unit"`
	SKU        string                 `json:"sku"`
	Barcode    string                 `json:"barcode"`
	Weight     *float64               `json:"weight"`
	Prices     []model.PriceEntry     `json:"prices"`
	Attributes map[string]interface{} `json:"attributes"`
	ImageAlts  []string               `json:"image_alts"`
}

// CreateProduct accepts a multipart form: a "payload" JSON part plus file
// parts named "images" (product) and "variants.<index>.images".
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	actor := auth.FromContext(c.Request.Context())

	var payload createProductPayload
	if !h.bindPayload(c, &payload) {
		return
	}

	form, err := c.MultipartForm()
	if err != nil && err != http.ErrNotMultipart {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		return
	}

	input := &dto.CreateProductInput{MerchantID: actor.MerchantID}
	input.Product = dto.ProductPayload{
		Name:        payload.Product.Name,
		Brand:       payload.Product.Brand,
		Description: payload.Product.Description,
		CategoryID:  payload.Product.CategoryID,
		Tags:        payload.Product.Tags,
		Images:      readUploads(form, "images", payload.Product.ImageAlts),
	}
	for i, v := range payload.Variants {
		input.Variants = append(input.Variants, dto.VariantPayload{
			Name:       v.Name,
			Unit:       v.Unit,
			SKU:        v.SKU,
			Barcode:    v.Barcode,
			Weight:     v.Weight,
			Prices:     v.Prices,
			Attributes: v.Attributes,
			Images:     readUploads(form, fmt.Sprintf("variants.%d.images", i), v.ImageAlts),
		})
	}

	p, err := h.uc.CreateProductWithVariants(c.Request.Context(), input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *ProductHandler) ListProducts(c *gin.Context) {
	actor := auth.FromContext(c.Request.Context())

	filters := &dto.ProductFilters{
		MerchantID:  actor.MerchantID,
		CategoryID:  c.Query("category_id"),
		SearchQuery: c.Query("q"),
		SortBy:      c.Query("sort_by"),
		SortOrder:   c.Query("sort_order"),
		Page:        queryInt(c, "page", 1),
		PageSize:    queryInt(c, "page_size", 20),
	}

	products, total, err := h.uc.ListProducts(c.Request.Context(), filters)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":      products,
		"total":     total,
		"page":      filters.Page,
		"page_size": filters.PageSize,
	})
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

func (h *ProductHandler) GetProduct(c *gin.Context) {
	p, err := h.uc.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type updateProductPayload struct {
	Product        map[string]interface{} `json:"product"`
	Variants       []variantUpsertPayload `json:"variants"`
	ImagesToRemove []string               `json:"images_to_remove"`
	ImageAlts      []string               `json:"image_alts"`
}

type variantUpsertPayload struct {
	ID             string                 `json:"id"`
	Changes        map[string]interface{} `json:"changes"`
	ImagesToRemove []string               `json:"images_to_remove"`
	ImageAlts      []string               `json:"image_alts"`
}

// UpdateProduct applies a partial product delta and reconciles the complete
// target variant list supplied in the payload.
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	actor := auth.FromContext(c.Request.Context())

	var payload updateProductPayload
	if !h.bindPayload(c, &payload) {
		return
	}

	form, err := c.MultipartForm()
	if err != nil && err != http.ErrNotMultipart {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		return
	}

	input := &dto.UpdateProductInput{
		ID:             c.Param("id"),
		MerchantID:     actor.MerchantID,
		Product:        payload.Product,
		ImagesToRemove: payload.ImagesToRemove,
		NewImages:      readUploads(form, "images", payload.ImageAlts),
	}
	for i, v := range payload.Variants {
		input.Variants = append(input.Variants, dto.VariantUpsert{
			ID:             v.ID,
			Changes:        v.Changes,
			ImagesToRemove: v.ImagesToRemove,
			NewImages:      readUploads(form, fmt.Sprintf("variants.%d.images", i), v.ImageAlts),
		})
	}

	p, err := h.uc.UpdateProductWithVariants(c.Request.Context(), input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) CreateVariant(c *gin.Context) {
	actor := auth.FromContext(c.Request.Context())

	var payload variantPayload
	if !h.bindPayload(c, &payload) {
		return
	}

	form, err := c.MultipartForm()
	if err != nil && err != http.ErrNotMultipart {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		return
	}

	input := &dto.CreateVariantInput{
		ProductID:  c.Param("id"),
		MerchantID: actor.MerchantID,
		Variant: dto.VariantPayload{
			Name:       payload.Name,
			Unit:       payload.Unit,
			SKU:        payload.SKU,
			Barcode:    payload.Barcode,
			Weight:     payload.Weight,
			Prices:     payload.Prices,
			Attributes: payload.Attributes,
			Images:     readUploads(form, "images", payload.ImageAlts),
		},
	}

	v, err := h.uc.CreateVariant(c.Request.Context(), input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

// UpdateVariant routes by privilege: a direct write returns 200 with the
// variant, a staged change request returns 202 with the moderation record.
func (h *ProductHandler) UpdateVariant(c *gin.Context) {
	var changes map[string]interface{}
	if err := c.ShouldBindJSON(&changes); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	input := &dto.UpdateVariantInput{
		VariantID: c.Param("id"),
		Changes:   changes,
		Actor:     auth.FromContext(c.Request.Context()),
	}

	result, err := h.uc.UpdateVariant(c.Request.Context(), input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if result.PendingReview {
		c.JSON(http.StatusAccepted, gin.H{
			"status":         "pending_review",
			"change_request": result.ChangeRequest,
		})
		return
	}
	c.JSON(http.StatusOK, result.Variant)
}

func (h *ProductHandler) DeleteVariant(c *gin.Context) {
	if err := h.uc.DeleteVariant(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "variant deleted"})
}

// bindPayload decodes the "payload" part of a multipart form, or the JSON
// body when the request is not multipart.
func (h *ProductHandler) bindPayload(c *gin.Context, dst interface{}) bool {
	raw := c.PostForm("payload")
	if raw == "" {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil || len(body) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "payload is required"})
			return false
		}
		raw = string(body)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload JSON"})
		return false
	}
	return true
}

func readUploads(form *multipart.Form, field string, alts []string) []dto.UploadImage {
	if form == nil {
		return nil
	}
	files := form.File[field]
	uploads := make([]dto.UploadImage, 0, len(files))
	for i, fh := range files {
		f, err := fh.Open()
		if err != nil {
			continue
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			continue
		}
		alt := ""
		if i < len(alts) {
			alt = alts[i]
		}
		uploads = append(uploads, dto.UploadImage{
			File: &media.File{
				Name:        fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Data:        data,
			},
			AltText: alt,
		})
	}
	return uploads
}

func (h *ProductHandler) respondError(c *gin.Context, err error) {
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
