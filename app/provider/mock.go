package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vibast-solutions/ms-go-payment-hub/app/signature"
	"github.com/vibast-solutions/ms-go-payment-hub/app/types"
)

type MockConfig struct {
	WebhookSecret      string
	SignatureTolerance time.Duration
	CheckoutBaseURL    string
}

// MockProvider is a deterministic in-memory provider for sandbox and test
// environments. Payment outcomes are driven explicitly through the
// Simulate helpers instead of an external gateway.
type MockProvider struct {
	cfg   MockConfig
	codec *signature.Codec

	mu      sync.Mutex
	intents map[string]*mockIntent
	seq     int
}

type mockIntent struct {
	paymentID string
	amount    decimal.Decimal
	status    types.PaymentStatus
}

func NewMockProvider(cfg MockConfig) *MockProvider {
	if strings.TrimSpace(cfg.CheckoutBaseURL) == "" {
		cfg.CheckoutBaseURL = "https://mock-checkout.local"
	}
	cfg.CheckoutBaseURL = strings.TrimRight(cfg.CheckoutBaseURL, "/")

	return &MockProvider{
		cfg:     cfg,
		codec:   signature.NewCodec(cfg.SignatureTolerance),
		intents: map[string]*mockIntent{},
	}
}

func (p *MockProvider) Name() string {
	return "mock"
}

func (p *MockProvider) CreatePaymentIntent(_ context.Context, input *IntentInput) (*IntentOutput, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.seq++
	providerPaymentID := fmt.Sprintf("mock_pi_%06d", p.seq)
	p.intents[providerPaymentID] = &mockIntent{
		paymentID: input.PaymentID,
		amount:    input.Amount,
		status:    types.PaymentStatusPending,
	}

	checkoutURL := p.cfg.CheckoutBaseURL + "/checkout/" + providerPaymentID
	return &IntentOutput{
		ProviderPaymentID: providerPaymentID,
		CheckoutURL:       &checkoutURL,
	}, nil
}

func (p *MockProvider) GetPaymentStatus(_ context.Context, providerPaymentID string) (types.PaymentStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	intent, ok := p.intents[providerPaymentID]
	if !ok {
		return "", nil
	}
	return intent.status, nil
}

func (p *MockProvider) CancelPayment(_ context.Context, providerPaymentID string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	intent, ok := p.intents[providerPaymentID]
	if !ok {
		return false, errors.New("mock payment intent not found")
	}
	switch intent.status {
	case types.PaymentStatusPending, types.PaymentStatusProcessing:
		intent.status = types.PaymentStatusCanceled
		return true, nil
	default:
		return false, nil
	}
}

func (p *MockProvider) RefundPayment(_ context.Context, providerPaymentID string, amount *decimal.Decimal) (*RefundOutput, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	intent, ok := p.intents[providerPaymentID]
	if !ok {
		return nil, errors.New("mock payment intent not found")
	}
	if intent.status != types.PaymentStatusSucceeded {
		reason := fmt.Sprintf("mock payment intent in status %s cannot be refunded", intent.status)
		return &RefundOutput{Succeeded: false, FailureReason: &reason}, nil
	}
	if amount != nil && amount.GreaterThan(intent.amount) {
		reason := "refund amount exceeds the charged amount"
		return &RefundOutput{Succeeded: false, FailureReason: &reason}, nil
	}

	intent.status = types.PaymentStatusRefunded
	refundID := "mock_re_" + strings.TrimPrefix(providerPaymentID, "mock_pi_")
	return &RefundOutput{Succeeded: true, ProviderRefundID: &refundID}, nil
}

func (p *MockProvider) VerifyWebhookSignature(payload []byte, sig string) bool {
	if strings.TrimSpace(p.cfg.WebhookSecret) == "" {
		return false
	}
	return p.codec.Verify(p.cfg.WebhookSecret, payload, sig)
}

func (p *MockProvider) ParseWebhookEvent(_ context.Context, payload []byte) (*WebhookEvent, error) {
	var event struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			Object struct {
				ID            string `json:"id"`
				FailureReason string `json:"failure_reason"`
				Metadata      struct {
					PaymentID string `json:"payment_id"`
				} `json:"metadata"`
			} `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, err
	}

	result := &WebhookEvent{
		EventType: event.Type,
		Action:    ActionNone,
		PaymentID: strings.TrimSpace(event.Data.Object.Metadata.PaymentID),
	}
	if s := strings.TrimSpace(event.ID); s != "" {
		result.ProviderEventID = &s
	}
	if s := strings.TrimSpace(event.Data.Object.ID); s != "" {
		result.ProviderPaymentID = &s
	}

	switch event.Type {
	case "payment.succeeded":
		result.Action = ActionSucceed
	case "payment.failed":
		result.Action = ActionFail
		reason := strings.TrimSpace(event.Data.Object.FailureReason)
		if reason == "" {
			reason = "mock payment failed"
		}
		result.FailureReason = &reason
	case "payment.canceled":
		result.Action = ActionCancel
	case "payment.refunded":
		result.Action = ActionRefund
	}

	return result, nil
}

// SimulatePaymentSuccess marks the intent as succeeded and returns a signed
// webhook payload that can be posted back to the inbound webhook endpoint.
func (p *MockProvider) SimulatePaymentSuccess(providerPaymentID string) ([]byte, string, error) {
	return p.simulate(providerPaymentID, "payment.succeeded", types.PaymentStatusSucceeded, "")
}

// SimulatePaymentFailure marks the intent as failed and returns a signed
// webhook payload carrying the failure reason.
func (p *MockProvider) SimulatePaymentFailure(providerPaymentID, reason string) ([]byte, string, error) {
	if strings.TrimSpace(reason) == "" {
		reason = "mock payment failed"
	}
	return p.simulate(providerPaymentID, "payment.failed", types.PaymentStatusFailed, reason)
}

// GenerateWebhookSignature signs an arbitrary payload with the mock webhook
// secret, mirroring what a real provider would attach to a delivery.
func (p *MockProvider) GenerateWebhookSignature(payload []byte) string {
	return p.codec.Sign(p.cfg.WebhookSecret, payload)
}

func (p *MockProvider) simulate(providerPaymentID, eventType string, status types.PaymentStatus, failureReason string) ([]byte, string, error) {
	p.mu.Lock()
	intent, ok := p.intents[providerPaymentID]
	if !ok {
		p.mu.Unlock()
		return nil, "", errors.New("mock payment intent not found")
	}
	intent.status = status
	p.seq++
	eventID := fmt.Sprintf("mock_evt_%06d", p.seq)
	paymentID := intent.paymentID
	p.mu.Unlock()

	event := map[string]interface{}{
		"id":   eventID,
		"type": eventType,
		"data": map[string]interface{}{
			"object": map[string]interface{}{
				"id":             providerPaymentID,
				"failure_reason": failureReason,
				"metadata": map[string]string{
					"payment_id": paymentID,
				},
			},
		},
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, "", err
	}

	return payload, p.codec.Sign(p.cfg.WebhookSecret, payload), nil
}
