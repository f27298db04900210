package types

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type Payment struct {
	ID          string        `json:"id"`
	Amount      string        `json:"amount"`
	Currency    Currency      `json:"currency"`
	Status      PaymentStatus `json:"status"`
	PaymentType PaymentType   `json:"payment_type"`
	Provider    string        `json:"provider"`

	ReservationID  string `json:"reservation_id,omitempty"`
	SubscriptionID string `json:"subscription_id,omitempty"`
	UserID         string `json:"user_id,omitempty"`

	ProviderPaymentID string `json:"provider_payment_id,omitempty"`
	CheckoutURL       string `json:"checkout_url,omitempty"`

	PayerEmail  string `json:"payer_email,omitempty"`
	PayerName   string `json:"payer_name,omitempty"`
	Description string `json:"description,omitempty"`

	Metadata      map[string]string `json:"metadata"`
	FailureReason string            `json:"failure_reason,omitempty"`

	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type PaymentEnvelopeResponse struct {
	Payment *Payment `json:"payment"`
}

type ListPaymentsResponse struct {
	Payments []*Payment `json:"payments"`
}

type VerifyPaymentResponse struct {
	Payment        *Payment      `json:"payment"`
	PreviousStatus PaymentStatus `json:"previous_status"`
	CurrentStatus  PaymentStatus `json:"current_status"`
	Changed        bool          `json:"changed"`
}

type Partner struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	WebhookURL string      `json:"webhook_url"`
	Events     []EventType `json:"events"`

	// Secret is populated only at issuance and rotation.
	Secret string `json:"secret,omitempty"`

	Status PartnerStatus `json:"status"`

	Description  string `json:"description,omitempty"`
	ContactEmail string `json:"contact_email,omitempty"`

	TotalWebhooksSent   int64  `json:"total_webhooks_sent"`
	ConsecutiveFailures int32  `json:"consecutive_failures"`
	LastWebhookAt       string `json:"last_webhook_at,omitempty"`

	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type PartnerEnvelopeResponse struct {
	Partner *Partner `json:"partner"`
}

type ListPartnersResponse struct {
	Partners []*Partner `json:"partners"`
}

type WebhookDeliveryResult struct {
	PartnerID   string `json:"partner_id"`
	PartnerName string `json:"partner_name"`
	Status      string `json:"status"`
	StatusCode  int    `json:"status_code,omitempty"`
	Error       string `json:"error,omitempty"`
}

type WebhookTestResponse struct {
	Delivery *WebhookDeliveryResult `json:"delivery"`
}

type SignatureResponse struct {
	Signature string `json:"signature"`
}
