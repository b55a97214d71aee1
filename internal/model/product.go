package model

type Product struct {
	BaseModel
	MerchantID  string     `db:"merchant_id" json:"merchant_id"`
	CategoryID  *string    `db:"category_id" json:"category_id"` // Nullable
	Name        string     `db:"name" json:"name"`
	Brand       *string    `db:"brand" json:"brand"`
	Description *string    `db:"description" json:"description"`
	Tags        StringList `db:"tags" json:"tags"`
	Images      ImageList  `db:"images" json:"images"`

	Variants []ProductVariant `db:"-" json:"variants"` // Loaded separately, not a column
}

type ProductVariant struct {
	BaseModel
	ProductID  string    `db:"product_id" json:"product_id"` // Immutable after creation
	MerchantID string    `db:"merchant_id" json:"merchant_id"`
	Name       string    `db:"name" json:"name"`
	Unit       string    `db:"unit" json:"unit"`
	SKU        *string   `db:"sku" json:"sku"`         // Nullable, sparse-unique
	Barcode    *string   `db:"barcode" json:"barcode"` // Nullable, sparse-unique
	Weight     *float64  `db:"weight" json:"weight"`
	Prices     PriceList `db:"prices" json:"prices"`
	Attributes JSONMap   `db:"attributes" json:"attributes"`
	Images     ImageList `db:"images" json:"images"`
}
