package model

type ChangeRequestStatus string

const (
	ChangeRequestPending  ChangeRequestStatus = "pending"
	ChangeRequestApproved ChangeRequestStatus = "approved"
	ChangeRequestRejected ChangeRequestStatus = "rejected"
)

// IsTerminal reports whether the status can no longer change.
func (s ChangeRequestStatus) IsTerminal() bool {
	return s == ChangeRequestApproved || s == ChangeRequestRejected
}

// ProductVariantChangeRequest stages a proposed variant edit for moderation.
// Changes is a field->value delta, not a snapshot: it is merged onto the
// variant's state as it exists at approval time.
type ProductVariantChangeRequest struct {
	BaseModel
	MerchantID      string              `db:"merchant_id" json:"merchant_id"`
	VariantID       string              `db:"variant_id" json:"variant_id"` // Weak reference, lookup only
	RequestedBy     string              `db:"requested_by" json:"requested_by"`
	Changes         JSONMap             `db:"changes" json:"changes"`
	Status          ChangeRequestStatus `db:"status" json:"status"`
	ReviewedBy      *string             `db:"reviewed_by" json:"reviewed_by"`
	RejectionReason *string             `db:"rejection_reason" json:"rejection_reason"`
}
