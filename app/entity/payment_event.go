package entity

import (
	"time"

	"github.com/vibast-solutions/ms-go-payment-hub/app/types"
)

const (
	PaymentEventProcessed int32 = 10
	PaymentEventRejected  int32 = 20
)

// PaymentEvent is one entry in the payment audit trail: status changes,
// inbound webhook dispositions and fan-out summaries.
type PaymentEvent struct {
	ID uint64

	PaymentID string

	EventType string

	OldStatus *types.PaymentStatus
	NewStatus types.PaymentStatus

	ProviderEventID *string
	PayloadJSON     *string
	Disposition     int32

	CreatedAt time.Time
}
