package provider

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/vibast-solutions/ms-go-payment-hub/app/types"
)

type IntentInput struct {
	PaymentID   string
	Amount      decimal.Decimal
	Currency    types.Currency
	PaymentType types.PaymentType

	Description *string
	PayerEmail  *string
	Metadata    map[string]string

	SuccessURL string
	CancelURL  string
}

type IntentOutput struct {
	ProviderPaymentID string
	CheckoutURL       *string
}

type RefundOutput struct {
	// Succeeded is false when the provider refused the refund for a
	// business reason; transport and server failures surface as errors.
	Succeeded        bool
	ProviderRefundID *string
	FailureReason    *string
}

type Action string

const (
	ActionNone    Action = "none"
	ActionSucceed Action = "succeed"
	ActionFail    Action = "fail"
	ActionCancel  Action = "cancel"
	ActionRefund  Action = "refund"
)

type WebhookEvent struct {
	ProviderEventID *string
	EventType       string

	Action Action

	PaymentID         string
	ProviderPaymentID *string
	FailureReason     *string
}

type Provider interface {
	Name() string
	CreatePaymentIntent(ctx context.Context, input *IntentInput) (*IntentOutput, error)
	GetPaymentStatus(ctx context.Context, providerPaymentID string) (types.PaymentStatus, error)
	// CancelPayment reports false when the provider refused because the
	// payment is already finalized upstream; errors cover transport and
	// auth failures only.
	CancelPayment(ctx context.Context, providerPaymentID string) (bool, error)
	// RefundPayment issues a partial refund when amount is set and a full
	// refund otherwise.
	RefundPayment(ctx context.Context, providerPaymentID string, amount *decimal.Decimal) (*RefundOutput, error)
	VerifyWebhookSignature(payload []byte, signature string) bool
	ParseWebhookEvent(ctx context.Context, payload []byte) (*WebhookEvent, error)
}
