package dto

import (
	"github.com/cataloghq/catalog-service/internal/auth"
	"github.com/cataloghq/catalog-service/internal/media"
	"github.com/cataloghq/catalog-service/internal/model"
)

// UploadImage pairs a raw file with its alt text; the URL only exists once
// the media store accepted the upload.
type UploadImage struct {
	File    *media.File
	AltText string
}

type ProductPayload struct {
	Name        string
	Brand       string
	Description string
	CategoryID  string
	Tags        []string
	Images      []UploadImage
}

type VariantPayload struct {
	Name       string
	Unit       string
	SKU        string
	Barcode    string
	Weight     *float64
	Prices     []model.PriceEntry
	Attributes map[string]interface{}
	Images     []UploadImage
}

type CreateProductInput struct {
	MerchantID string
	Product    ProductPayload
	Variants   []VariantPayload
}

// VariantUpsert is one entry of the complete target variant list on product
// update. An empty ID means create; a set ID means apply Changes as a delta.
// Existing variants absent from the list are deleted (inventory permitting).
type VariantUpsert struct {
	ID             string
	Changes        map[string]interface{}
	NewImages      []UploadImage
	ImagesToRemove []string
}

type UpdateProductInput struct {
	ID             string
	MerchantID     string
	Product        map[string]interface{} // Partial delta; nil means no product changes
	Variants       []VariantUpsert
	NewImages      []UploadImage
	ImagesToRemove []string
}

type CreateVariantInput struct {
	ProductID  string
	MerchantID string
	Variant    VariantPayload
}

type UpdateVariantInput struct {
	VariantID string
	Changes   map[string]interface{}
	Actor     auth.Actor
}

// UpdateVariantResult distinguishes a completed update from an accepted,
// pending-review one.
type UpdateVariantResult struct {
	Variant       *model.ProductVariant
	ChangeRequest *model.ProductVariantChangeRequest
	PendingReview bool
}
