// Package directory resolves which webhook partners should receive a given
// event and records per-partner delivery outcomes.
package directory

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/ms-go-payment-hub/app/entity"
	"github.com/vibast-solutions/ms-go-payment-hub/app/factory"
	"github.com/vibast-solutions/ms-go-payment-hub/app/types"
)

type partnerRepository interface {
	ListActive(ctx context.Context) ([]*entity.Partner, error)
	RecordDeliverySuccess(ctx context.Context, id string, now time.Time) error
	RecordDeliveryFailure(ctx context.Context, id string, threshold int32, now time.Time) error
}

// Local serves partner lookups from the service's own partner store.
type Local struct {
	partners         partnerRepository
	suspendThreshold int32
	logger           logrus.FieldLogger
}

func NewLocal(partners partnerRepository, suspendThreshold int32) *Local {
	if suspendThreshold <= 0 {
		suspendThreshold = entity.DefaultSuspendThreshold
	}
	return &Local{
		partners:         partners,
		suspendThreshold: suspendThreshold,
		logger:           factory.NewModuleLogger("partner-directory"),
	}
}

// PartnersForEvent returns the active partners subscribed to the event.
// Suspended and inactive partners are never returned.
func (d *Local) PartnersForEvent(ctx context.Context, event types.EventType) ([]*entity.Partner, error) {
	active, err := d.partners.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	subscribed := make([]*entity.Partner, 0, len(active))
	for _, partner := range active {
		if partner.IsSubscribedTo(event) {
			subscribed = append(subscribed, partner)
		}
	}

	return subscribed, nil
}

func (d *Local) RecordSuccess(ctx context.Context, partnerID string) {
	if err := d.partners.RecordDeliverySuccess(ctx, partnerID, time.Now().UTC()); err != nil {
		d.logger.WithError(err).WithField("partner_id", partnerID).Warn("Failed to record delivery success")
	}
}

func (d *Local) RecordFailure(ctx context.Context, partnerID string) {
	if err := d.partners.RecordDeliveryFailure(ctx, partnerID, d.suspendThreshold, time.Now().UTC()); err != nil {
		d.logger.WithError(err).WithField("partner_id", partnerID).Warn("Failed to record delivery failure")
	}
}
