// Package events defines the envelopes published to the broker after
// successful catalog mutations. The shape matches what downstream listeners
// (inventory, search, audit) already consume.
package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	ProductCreated        = "ProductCreated"
	ProductUpdated        = "ProductUpdated"
	VariantCreated        = "VariantCreated"
	VariantUpdated        = "VariantUpdated"
	VariantDeleted        = "VariantDeleted"
	ChangeRequestApproved = "ChangeRequestApproved"
	ChangeRequestRejected = "ChangeRequestRejected"
)

type Envelope struct {
	EventID   string      `json:"event_id"`
	EventType string      `json:"event_type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

func New(eventType string, payload interface{}) Envelope {
	return Envelope{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}
