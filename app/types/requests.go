package types

import (
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type CreatePaymentRequest struct {
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	PaymentType string `json:"payment_type"`
	Provider    string `json:"provider"`

	ReservationID  string `json:"reservation_id"`
	SubscriptionID string `json:"subscription_id"`
	UserID         string `json:"user_id"`

	PayerEmail  string `json:"payer_email"`
	PayerName   string `json:"payer_name"`
	Description string `json:"description"`

	Metadata       map[string]string `json:"metadata"`
	IdempotencyKey string            `json:"idempotency_key"`

	SuccessURL string `json:"success_url"`
	CancelURL  string `json:"cancel_url"`
}

func NewCreatePaymentRequestFromContext(ctx echo.Context) (*CreatePaymentRequest, error) {
	var body CreatePaymentRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.Amount = strings.TrimSpace(body.Amount)
	body.Currency = strings.ToUpper(strings.TrimSpace(body.Currency))
	body.PaymentType = strings.ToLower(strings.TrimSpace(body.PaymentType))
	body.Provider = strings.ToLower(strings.TrimSpace(body.Provider))
	body.ReservationID = strings.TrimSpace(body.ReservationID)
	body.SubscriptionID = strings.TrimSpace(body.SubscriptionID)
	body.UserID = strings.TrimSpace(body.UserID)
	body.PayerEmail = strings.TrimSpace(body.PayerEmail)
	body.PayerName = strings.TrimSpace(body.PayerName)
	body.Description = strings.TrimSpace(body.Description)
	body.IdempotencyKey = strings.TrimSpace(body.IdempotencyKey)
	if body.IdempotencyKey == "" {
		body.IdempotencyKey = strings.TrimSpace(ctx.Request().Header.Get("Idempotency-Key"))
	}
	body.SuccessURL = strings.TrimSpace(body.SuccessURL)
	body.CancelURL = strings.TrimSpace(body.CancelURL)

	return &body, nil
}

func (r *CreatePaymentRequest) Validate() error {
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return errors.New("amount must be a decimal string")
	}
	if !amount.IsPositive() {
		return errors.New("amount must be > 0")
	}
	if amount.Exponent() < -2 {
		return errors.New("amount must not have more than 2 decimal places")
	}
	if !Currency(r.Currency).Valid() {
		return errors.New("currency is invalid")
	}
	if !PaymentType(r.PaymentType).Valid() {
		return errors.New("payment_type must be reservation, subscription, or one_time")
	}
	if PaymentType(r.PaymentType) == PaymentTypeReservation && r.ReservationID == "" {
		return errors.New("reservation_id is required for reservation payments")
	}
	if PaymentType(r.PaymentType) == PaymentTypeSubscription && r.SubscriptionID == "" {
		return errors.New("subscription_id is required for subscription payments")
	}
	return nil
}

// AmountDecimal returns the parsed amount. Validate must pass first.
func (r *CreatePaymentRequest) AmountDecimal() decimal.Decimal {
	amount, _ := decimal.NewFromString(r.Amount)
	return amount
}

type PaymentIDRequest struct {
	ID string
}

func NewPaymentIDRequestFromContext(ctx echo.Context) (*PaymentIDRequest, error) {
	return &PaymentIDRequest{ID: strings.TrimSpace(ctx.Param("id"))}, nil
}

func (r *PaymentIDRequest) Validate() error {
	if r.ID == "" {
		return errors.New("invalid payment id")
	}
	return nil
}

type RefundPaymentRequest struct {
	ID     string `json:"-"`
	Amount string `json:"amount"`
}

func NewRefundPaymentRequestFromContext(ctx echo.Context) (*RefundPaymentRequest, error) {
	var body RefundPaymentRequest
	// An empty body means a full refund.
	if ctx.Request().ContentLength != 0 {
		if err := ctx.Bind(&body); err != nil {
			return nil, err
		}
	}
	body.ID = strings.TrimSpace(ctx.Param("id"))
	body.Amount = strings.TrimSpace(body.Amount)
	return &body, nil
}

func (r *RefundPaymentRequest) Validate() error {
	if r.ID == "" {
		return errors.New("invalid payment id")
	}
	if r.Amount != "" {
		amount, err := decimal.NewFromString(r.Amount)
		if err != nil {
			return errors.New("amount must be a decimal string")
		}
		if !amount.IsPositive() {
			return errors.New("amount must be > 0")
		}
		if amount.Exponent() < -2 {
			return errors.New("amount must not have more than 2 decimal places")
		}
	}
	return nil
}

// AmountDecimal returns the parsed partial refund amount, or nil for a full
// refund. Validate must pass first.
func (r *RefundPaymentRequest) AmountDecimal() *decimal.Decimal {
	if r.Amount == "" {
		return nil
	}
	amount, _ := decimal.NewFromString(r.Amount)
	return &amount
}

type ListByReservationRequest struct {
	ReservationID string
}

func NewListByReservationRequestFromContext(ctx echo.Context) (*ListByReservationRequest, error) {
	return &ListByReservationRequest{ReservationID: strings.TrimSpace(ctx.Param("reservation_id"))}, nil
}

func (r *ListByReservationRequest) Validate() error {
	if r.ReservationID == "" {
		return errors.New("invalid reservation id")
	}
	return nil
}

type ProviderWebhookRequest struct {
	Provider  string
	Signature string
	Payload   []byte
}

func NewProviderWebhookRequestFromContext(ctx echo.Context) (*ProviderWebhookRequest, error) {
	signature := strings.TrimSpace(ctx.Request().Header.Get("X-Webhook-Signature"))
	if signature == "" {
		signature = strings.TrimSpace(ctx.Request().Header.Get("Stripe-Signature"))
	}

	payload, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return nil, err
	}

	return &ProviderWebhookRequest{
		Provider:  strings.ToLower(strings.TrimSpace(ctx.Param("provider"))),
		Signature: signature,
		Payload:   payload,
	}, nil
}

func (r *ProviderWebhookRequest) Validate() error {
	if r.Provider == "" {
		return errors.New("provider is required")
	}
	if r.Signature == "" {
		return errors.New("webhook signature is required")
	}
	if len(r.Payload) == 0 {
		return errors.New("payload is required")
	}
	return nil
}

type CreatePartnerRequest struct {
	Name         string   `json:"name"`
	WebhookURL   string   `json:"webhook_url"`
	Events       []string `json:"events"`
	Description  string   `json:"description"`
	ContactEmail string   `json:"contact_email"`
}

func NewCreatePartnerRequestFromContext(ctx echo.Context) (*CreatePartnerRequest, error) {
	var body CreatePartnerRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.Name = strings.TrimSpace(body.Name)
	body.WebhookURL = strings.TrimSpace(body.WebhookURL)
	body.Description = strings.TrimSpace(body.Description)
	body.ContactEmail = strings.TrimSpace(body.ContactEmail)
	for i, event := range body.Events {
		body.Events[i] = strings.TrimSpace(event)
	}

	return &body, nil
}

func (r *CreatePartnerRequest) Validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	if !strings.HasPrefix(r.WebhookURL, "http://") && !strings.HasPrefix(r.WebhookURL, "https://") {
		return errors.New("webhook_url must be an http(s) URL")
	}
	if len(r.Events) == 0 {
		return errors.New("events must not be empty")
	}
	for _, event := range r.Events {
		if !EventType(event).Valid() {
			return errors.New("unknown event type: " + event)
		}
	}
	return nil
}

// EventTypes returns the subscribed events. Validate must pass first.
func (r *CreatePartnerRequest) EventTypes() []EventType {
	events := make([]EventType, 0, len(r.Events))
	for _, event := range r.Events {
		events = append(events, EventType(event))
	}
	return events
}

type PartnerIDRequest struct {
	ID string
}

func NewPartnerIDRequestFromContext(ctx echo.Context) (*PartnerIDRequest, error) {
	return &PartnerIDRequest{ID: strings.TrimSpace(ctx.Param("id"))}, nil
}

func (r *PartnerIDRequest) Validate() error {
	if r.ID == "" {
		return errors.New("invalid partner id")
	}
	return nil
}

type ListPartnersByEventRequest struct {
	Event string
}

func NewListPartnersByEventRequestFromContext(ctx echo.Context) (*ListPartnersByEventRequest, error) {
	return &ListPartnersByEventRequest{Event: strings.TrimSpace(ctx.QueryParam("event"))}, nil
}

func (r *ListPartnersByEventRequest) Validate() error {
	if r.Event == "" {
		return errors.New("event query parameter is required")
	}
	if !EventType(r.Event).Valid() {
		return errors.New("unknown event type: " + r.Event)
	}
	return nil
}

type GenerateSignatureRequest struct {
	Secret  string          `json:"secret"`
	Payload json.RawMessage `json:"payload"`
}

func NewGenerateSignatureRequestFromContext(ctx echo.Context) (*GenerateSignatureRequest, error) {
	var body GenerateSignatureRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.Secret = strings.TrimSpace(body.Secret)
	return &body, nil
}

func (r *GenerateSignatureRequest) Validate() error {
	if r.Secret == "" {
		return errors.New("secret is required")
	}
	if len(r.Payload) == 0 {
		return errors.New("payload is required")
	}
	return nil
}
