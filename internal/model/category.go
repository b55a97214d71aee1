package model

// Category is owned by the catalog hierarchy service; this core only reads it
// to validate product category references and serve lookups.
type Category struct {
	BaseModel
	MerchantID string  `db:"merchant_id" json:"merchant_id"`
	ParentID   *string `db:"parent_id" json:"parent_id"` // Nullable
	Name       string  `db:"name" json:"name"`
	IsActive   bool    `db:"is_active" json:"is_active"`
}
