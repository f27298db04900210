// Package dispatch delivers signed webhook events to subscribed partners.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/ms-go-payment-hub/app/entity"
	"github.com/vibast-solutions/ms-go-payment-hub/app/factory"
	"github.com/vibast-solutions/ms-go-payment-hub/app/signature"
	"github.com/vibast-solutions/ms-go-payment-hub/app/types"
)

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusTimeout = "timeout"
	StatusError   = "error"
)

type partnerDirectory interface {
	PartnersForEvent(ctx context.Context, event types.EventType) ([]*entity.Partner, error)
	RecordSuccess(ctx context.Context, partnerID string)
	RecordFailure(ctx context.Context, partnerID string)
}

type Result struct {
	PartnerID   string  `json:"partner_id"`
	PartnerName string  `json:"partner_name"`
	Status      string  `json:"status"`
	StatusCode  int     `json:"status_code,omitempty"`
	Error       *string `json:"error,omitempty"`
}

type Config struct {
	// Timeout bounds each individual partner delivery.
	Timeout time.Duration
}

type Dispatcher struct {
	directory partnerDirectory
	codec     *signature.Codec
	client    *http.Client
	timeout   time.Duration
	logger    logrus.FieldLogger
}

func NewDispatcher(directory partnerDirectory, cfg Config) *Dispatcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Dispatcher{
		directory: directory,
		codec:     signature.NewCodec(0),
		client:    &http.Client{Timeout: timeout},
		timeout:   timeout,
		logger:    factory.NewModuleLogger("webhook-dispatcher"),
	}
}

// Dispatch fans the event out to every subscribed partner concurrently.
// One slow or failing partner never blocks or aborts the others. A
// directory lookup failure degrades to an empty fan-out.
func (d *Dispatcher) Dispatch(ctx context.Context, event types.EventType, payload map[string]interface{}) []Result {
	partners, err := d.directory.PartnersForEvent(ctx, event)
	if err != nil {
		d.logger.WithError(err).WithField("event", event).Warn("Partner lookup failed, skipping fan-out")
		return []Result{}
	}
	if len(partners) == 0 {
		return []Result{}
	}

	body, err := encodeEnvelope(event, payload)
	if err != nil {
		d.logger.WithError(err).WithField("event", event).Error("Failed to encode webhook envelope")
		return []Result{}
	}

	results := make([]Result, len(partners))
	var wg sync.WaitGroup
	for i, partner := range partners {
		wg.Add(1)
		go func(i int, partner *entity.Partner) {
			defer wg.Done()
			results[i] = d.deliver(ctx, partner, event, body)
		}(i, partner)
	}
	wg.Wait()

	return results
}

// DispatchToPartner sends the event to a single partner, regardless of its
// subscriptions. Used for partner endpoint test deliveries.
func (d *Dispatcher) DispatchToPartner(ctx context.Context, partner *entity.Partner, event types.EventType, payload map[string]interface{}) Result {
	body, err := encodeEnvelope(event, payload)
	if err != nil {
		msg := err.Error()
		return Result{PartnerID: partner.ID, PartnerName: partner.Name, Status: StatusError, Error: &msg}
	}
	return d.deliver(ctx, partner, event, body)
}

func (d *Dispatcher) deliver(ctx context.Context, partner *entity.Partner, event types.EventType, body []byte) Result {
	result := Result{
		PartnerID:   partner.ID,
		PartnerName: partner.Name,
	}

	deliveryCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(deliveryCtx, http.MethodPost, partner.WebhookURL, bytes.NewReader(body))
	if err != nil {
		msg := err.Error()
		result.Status = StatusError
		result.Error = &msg
		d.directory.RecordFailure(ctx, partner.ID)
		return result
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Signature", d.codec.Sign(partner.Secret, body))
	req.Header.Set("X-Partner-Id", partner.ID)
	req.Header.Set("X-Webhook-Event", string(event))

	resp, err := d.client.Do(req)
	if err != nil {
		msg := err.Error()
		result.Error = &msg
		if errors.Is(err, context.DeadlineExceeded) || deliveryCtx.Err() != nil {
			result.Status = StatusTimeout
		} else {
			result.Status = StatusError
		}
		d.directory.RecordFailure(ctx, partner.ID)
		d.logger.WithError(err).WithFields(logrus.Fields{
			"partner_id": partner.ID,
			"event":      event,
		}).Warn("Webhook delivery failed")
		return result
	}
	defer resp.Body.Close()

	result.StatusCode = resp.StatusCode
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		result.Status = StatusSuccess
		d.directory.RecordSuccess(ctx, partner.ID)
		return result
	}

	result.Status = StatusFailed
	d.directory.RecordFailure(ctx, partner.ID)
	d.logger.WithFields(logrus.Fields{
		"partner_id": partner.ID,
		"event":      event,
		"status":     resp.StatusCode,
	}).Warn("Webhook delivery rejected by partner")

	return result
}

func encodeEnvelope(event types.EventType, payload map[string]interface{}) ([]byte, error) {
	envelope := make(map[string]interface{}, len(payload)+2)
	for k, v := range payload {
		envelope[k] = v
	}
	envelope["event"] = string(event)
	envelope["timestamp"] = time.Now().UTC().Format(time.RFC3339)

	return json.Marshal(envelope)
}
