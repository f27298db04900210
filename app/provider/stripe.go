package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vibast-solutions/ms-go-payment-hub/app/signature"
	"github.com/vibast-solutions/ms-go-payment-hub/app/types"
)

const stripeAPIBaseURL = "https://api.stripe.com"

type StripeConfig struct {
	SecretKey          string
	WebhookSecret      string
	APIBaseURL         string
	SignatureTolerance time.Duration
	HTTPTimeout        time.Duration

	SuccessURL string
	CancelURL  string
}

type StripeProvider struct {
	cfg    StripeConfig
	codec  *signature.Codec
	client *http.Client
}

func NewStripeProvider(cfg StripeConfig) *StripeProvider {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		cfg.APIBaseURL = stripeAPIBaseURL
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")

	return &StripeProvider{
		cfg:    cfg,
		codec:  signature.NewCodec(cfg.SignatureTolerance),
		client: &http.Client{Timeout: timeout},
	}
}

func (p *StripeProvider) Name() string {
	return "stripe"
}

func (p *StripeProvider) CreatePaymentIntent(ctx context.Context, input *IntentInput) (*IntentOutput, error) {
	if strings.TrimSpace(p.cfg.SecretKey) == "" {
		return nil, errors.New("stripe secret key is not configured")
	}

	values := url.Values{}
	values.Set("mode", "payment")
	values.Set("line_items[0][quantity]", "1")
	values.Set("line_items[0][price_data][currency]", strings.ToLower(string(input.Currency)))
	values.Set("line_items[0][price_data][unit_amount]", input.Amount.Shift(2).StringFixed(0))
	values.Set("line_items[0][price_data][product_data][name]", productName(input))
	values.Set("client_reference_id", input.PaymentID)

	successURL := strings.TrimSpace(input.SuccessURL)
	cancelURL := strings.TrimSpace(input.CancelURL)
	if successURL == "" {
		successURL = strings.TrimSpace(p.cfg.SuccessURL)
	}
	if cancelURL == "" {
		cancelURL = strings.TrimSpace(p.cfg.CancelURL)
	}
	if successURL != "" {
		values.Set("success_url", successURL)
	}
	if cancelURL != "" {
		values.Set("cancel_url", cancelURL)
	}

	if input.PayerEmail != nil && strings.TrimSpace(*input.PayerEmail) != "" {
		values.Set("customer_email", strings.TrimSpace(*input.PayerEmail))
	}

	for k, v := range input.Metadata {
		values.Set("metadata["+k+"]", v)
	}
	values.Set("metadata[payment_id]", input.PaymentID)
	values.Set("metadata[payment_type]", string(input.PaymentType))

	body, err := p.postForm(ctx, "/v1/checkout/sessions", values)
	if err != nil {
		return nil, err
	}

	var payload struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	sessionID := strings.TrimSpace(payload.ID)
	if sessionID == "" {
		return nil, errors.New("stripe checkout session id missing")
	}

	result := &IntentOutput{ProviderPaymentID: sessionID}
	if s := strings.TrimSpace(payload.URL); s != "" {
		result.CheckoutURL = &s
	}

	return result, nil
}

func (p *StripeProvider) GetPaymentStatus(ctx context.Context, providerPaymentID string) (types.PaymentStatus, error) {
	if strings.TrimSpace(providerPaymentID) == "" {
		return "", nil
	}

	body, err := p.getJSON(ctx, "/v1/checkout/sessions/"+url.PathEscape(providerPaymentID))
	if err != nil {
		return "", err
	}

	var payload struct {
		Status        string `json:"status"`
		PaymentStatus string `json:"payment_status"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", err
	}

	switch payload.Status {
	case "expired":
		return types.PaymentStatusCanceled, nil
	case "open":
		return types.PaymentStatusPending, nil
	case "complete":
		if payload.PaymentStatus == "unpaid" {
			return types.PaymentStatusProcessing, nil
		}
		return types.PaymentStatusSucceeded, nil
	default:
		return "", nil
	}
}

func (p *StripeProvider) CancelPayment(ctx context.Context, providerPaymentID string) (bool, error) {
	if strings.TrimSpace(providerPaymentID) == "" {
		return false, errors.New("provider payment id is empty")
	}

	path := "/v1/checkout/sessions/" + url.PathEscape(providerPaymentID) + "/expire"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.APIBaseURL+path, strings.NewReader(""))
	if err != nil {
		return false, err
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.SecretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, err
	}

	// Stripe answers "session is not open" with a 4xx error object; the
	// session already completed or expired upstream.
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return false, nil
	}
	if resp.StatusCode >= 500 {
		return false, fmt.Errorf("stripe expire failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	return true, nil
}

func (p *StripeProvider) RefundPayment(ctx context.Context, providerPaymentID string, amount *decimal.Decimal) (*RefundOutput, error) {
	if strings.TrimSpace(providerPaymentID) == "" {
		return nil, errors.New("provider payment id is empty")
	}

	sessionBody, err := p.getJSON(ctx, "/v1/checkout/sessions/"+url.PathEscape(providerPaymentID))
	if err != nil {
		return nil, err
	}
	var session struct {
		PaymentIntent string `json:"payment_intent"`
	}
	if err := json.Unmarshal(sessionBody, &session); err != nil {
		return nil, err
	}
	paymentIntent := strings.TrimSpace(session.PaymentIntent)
	if paymentIntent == "" {
		reason := "checkout session has no payment intent"
		return &RefundOutput{Succeeded: false, FailureReason: &reason}, nil
	}

	values := url.Values{}
	values.Set("payment_intent", paymentIntent)
	if amount != nil {
		values.Set("amount", amount.Shift(2).StringFixed(0))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.APIBaseURL+"/v1/refunds", strings.NewReader(values.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.SecretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	// Stripe answers refund refusals (already refunded, uncaptured charge)
	// with a 4xx error object rather than a transport failure.
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		reason := stripeErrorMessage(body)
		return &RefundOutput{Succeeded: false, FailureReason: &reason}, nil
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("stripe refund failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var refund struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &refund); err != nil {
		return nil, err
	}

	result := &RefundOutput{Succeeded: true}
	if s := strings.TrimSpace(refund.ID); s != "" {
		result.ProviderRefundID = &s
	}

	return result, nil
}

func (p *StripeProvider) VerifyWebhookSignature(payload []byte, sig string) bool {
	if strings.TrimSpace(p.cfg.WebhookSecret) == "" {
		return false
	}
	return p.codec.Verify(p.cfg.WebhookSecret, payload, sig)
}

func (p *StripeProvider) ParseWebhookEvent(_ context.Context, payload []byte) (*WebhookEvent, error) {
	var event struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			Object json.RawMessage `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, err
	}

	result := &WebhookEvent{
		EventType: event.Type,
		Action:    ActionNone,
	}
	if s := strings.TrimSpace(event.ID); s != "" {
		result.ProviderEventID = &s
	}

	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		result.Action = ActionSucceed
	case "checkout.session.async_payment_failed":
		result.Action = ActionFail
		reason := "stripe reported the payment as failed"
		result.FailureReason = &reason
	case "checkout.session.expired":
		result.Action = ActionCancel
	case "charge.refunded":
		result.Action = ActionRefund
	}

	assignSessionFields(result, event.Data.Object)

	return result, nil
}

func (p *StripeProvider) postForm(ctx context.Context, path string, values url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.APIBaseURL+path, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.SecretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("stripe request failed: path=%s status=%d body=%s", path, resp.StatusCode, string(body))
	}

	return body, nil
}

func (p *StripeProvider) getJSON(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.APIBaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.SecretKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("stripe request failed: path=%s status=%d body=%s", path, resp.StatusCode, string(body))
	}

	return body, nil
}

func productName(input *IntentInput) string {
	if input.Description != nil {
		if name := strings.TrimSpace(*input.Description); name != "" {
			return name
		}
	}
	return string(input.PaymentType) + " payment"
}

func stripeErrorMessage(body []byte) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if msg := strings.TrimSpace(payload.Error.Message); msg != "" {
			return msg
		}
		if code := strings.TrimSpace(payload.Error.Code); code != "" {
			return code
		}
	}
	return "stripe rejected the refund"
}

func assignSessionFields(event *WebhookEvent, payload json.RawMessage) {
	var object struct {
		ID       string `json:"id"`
		Metadata struct {
			PaymentID string `json:"payment_id"`
		} `json:"metadata"`
	}
	if json.Unmarshal(payload, &object) != nil {
		return
	}
	if s := strings.TrimSpace(object.ID); s != "" {
		event.ProviderPaymentID = &s
	}
	event.PaymentID = strings.TrimSpace(object.Metadata.PaymentID)
}
