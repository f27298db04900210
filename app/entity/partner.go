package entity

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"

	"github.com/vibast-solutions/ms-go-payment-hub/app/types"
)

// DefaultSuspendThreshold is the consecutive-failure count at which a partner
// is suspended when no configured threshold is supplied.
const DefaultSuspendThreshold int32 = 10

type Partner struct {
	ID         string
	Name       string
	WebhookURL string
	Events     []types.EventType

	// Secret is the per-partner HMAC key. It is returned to the caller only
	// at issuance and rotation, and must never be logged.
	Secret string

	Status types.PartnerStatus

	Description  *string
	ContactEmail *string

	TotalWebhooksSent   int64
	ConsecutiveFailures int32
	LastWebhookAt       *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewPartner creates an active partner with a freshly generated secret.
func NewPartner(name, webhookURL string, events []types.EventType) *Partner {
	now := time.Now().UTC()
	return &Partner{
		ID:         uuid.NewString(),
		Name:       name,
		WebhookURL: webhookURL,
		Events:     events,
		Secret:     NewWebhookSecret(),
		Status:     types.PartnerStatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// NewWebhookSecret generates a high-entropy partner signing secret.
func NewWebhookSecret() string {
	buf := make([]byte, 24)
	_, _ = rand.Read(buf)
	return "whsec_" + hex.EncodeToString(buf)
}

// IsSubscribedTo reports whether the partner should receive the event,
// honoring the wildcard subscription.
func (p *Partner) IsSubscribedTo(event types.EventType) bool {
	for _, e := range p.Events {
		if e == types.EventAll || e == event {
			return true
		}
	}
	return false
}

// RecordWebhookSuccess resets the failure streak and stamps the delivery.
func (p *Partner) RecordWebhookSuccess() {
	now := time.Now().UTC()
	p.TotalWebhooksSent++
	p.ConsecutiveFailures = 0
	p.LastWebhookAt = &now
	p.UpdatedAt = now
}

// RecordWebhookFailure increments the failure streak and suspends the
// partner once the threshold is reached.
func (p *Partner) RecordWebhookFailure(threshold int32) {
	if threshold <= 0 {
		threshold = DefaultSuspendThreshold
	}
	p.ConsecutiveFailures++
	p.UpdatedAt = time.Now().UTC()
	if p.ConsecutiveFailures >= threshold {
		p.Status = types.PartnerStatusSuspended
	}
}

func (p *Partner) RotateSecret() string {
	p.Secret = NewWebhookSecret()
	p.UpdatedAt = time.Now().UTC()
	return p.Secret
}

func (p *Partner) Activate() {
	p.Status = types.PartnerStatusActive
	p.ConsecutiveFailures = 0
	p.UpdatedAt = time.Now().UTC()
}

func (p *Partner) Deactivate() {
	p.Status = types.PartnerStatusInactive
	p.UpdatedAt = time.Now().UTC()
}
