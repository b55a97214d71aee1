package model

import "time"

// Inventory mirrors stock records kept by the inventory service. The catalog
// core never mutates quantities directly; rows are maintained by the Kafka
// listener and consulted for existence checks and read-only stock lookups.
type Inventory struct {
	ID         string    `db:"id" json:"id"`
	MerchantID string    `db:"merchant_id" json:"merchant_id"`
	StoreID    *string   `db:"store_id" json:"store_id"`
	VariantID  string    `db:"variant_id" json:"variant_id"`
	Quantity   float64   `db:"quantity" json:"quantity"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
