package dto

type ProductFilters struct {
	MerchantID  string
	CategoryID  string
	SearchQuery string
	SortBy      string // name, created_at
	SortOrder   string // asc, desc
	Page        int
	PageSize    int
}
