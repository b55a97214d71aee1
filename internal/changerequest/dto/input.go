package dto

import "github.com/cataloghq/catalog-service/internal/model"

type ChangeRequestFilters struct {
	MerchantID string
	Status     model.ChangeRequestStatus // Defaults to pending
	Page       int
	PageSize   int
}
