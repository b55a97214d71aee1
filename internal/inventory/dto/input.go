package dto

type AdjustInventoryInput struct {
	MerchantID     string
	StoreID        *string
	VariantID      string
	QuantityChange float64
	Reason         string
	ReferenceID    string
	ReferenceType  string // 'sale', 'return', 'manual_adjustment'
}
