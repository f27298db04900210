package entity

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vibast-solutions/ms-go-payment-hub/app/types"
)

// ErrInvalidTransition is returned for any payment status change outside the
// legal lifecycle. Callers distinguish it with errors.Is.
var ErrInvalidTransition = errors.New("invalid payment status transition")

type Payment struct {
	ID string

	Amount      decimal.Decimal
	Currency    types.Currency
	Status      types.PaymentStatus
	PaymentType types.PaymentType

	ReservationID  *string
	SubscriptionID *string
	UserID         *string

	Provider          string
	ProviderPaymentID *string
	CheckoutURL       *string

	PayerEmail *string
	PayerName  *string

	Description    *string
	Metadata       map[string]string
	IdempotencyKey *string
	FailureReason  *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewPayment creates a payment in pending status.
func NewPayment(
	amount decimal.Decimal,
	currency types.Currency,
	paymentType types.PaymentType,
	provider string,
) *Payment {
	now := time.Now().UTC()
	return &Payment{
		ID:          uuid.NewString(),
		Amount:      amount,
		Currency:    currency,
		Status:      types.PaymentStatusPending,
		PaymentType: paymentType,
		Provider:    provider,
		Metadata:    map[string]string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// MarkProcessing attaches provider data and moves the payment out of pending.
// This is the only transition allowed to set ProviderPaymentID.
func (p *Payment) MarkProcessing(providerPaymentID string, checkoutURL *string) error {
	if p.Status != types.PaymentStatusPending {
		return transitionError(p.Status, types.PaymentStatusProcessing)
	}
	p.Status = types.PaymentStatusProcessing
	p.ProviderPaymentID = &providerPaymentID
	p.CheckoutURL = checkoutURL
	p.touch()
	return nil
}

func (p *Payment) MarkSucceeded() error {
	if p.Status != types.PaymentStatusProcessing {
		return transitionError(p.Status, types.PaymentStatusSucceeded)
	}
	p.Status = types.PaymentStatusSucceeded
	p.touch()
	return nil
}

func (p *Payment) MarkFailed(reason *string) error {
	if p.Status != types.PaymentStatusProcessing {
		return transitionError(p.Status, types.PaymentStatusFailed)
	}
	p.Status = types.PaymentStatusFailed
	p.FailureReason = reason
	p.touch()
	return nil
}

func (p *Payment) MarkCanceled() error {
	if !p.CanBeCanceled() {
		return transitionError(p.Status, types.PaymentStatusCanceled)
	}
	p.Status = types.PaymentStatusCanceled
	p.touch()
	return nil
}

func (p *Payment) MarkRefunded() error {
	if !p.CanBeRefunded() {
		return transitionError(p.Status, types.PaymentStatusRefunded)
	}
	p.Status = types.PaymentStatusRefunded
	p.touch()
	return nil
}

func (p *Payment) CanBeCanceled() bool {
	return p.Status == types.PaymentStatusPending || p.Status == types.PaymentStatusProcessing
}

func (p *Payment) CanBeRefunded() bool {
	return p.Status == types.PaymentStatusSucceeded
}

// touch keeps UpdatedAt non-decreasing even if the wall clock steps back.
func (p *Payment) touch() {
	now := time.Now().UTC()
	if now.Before(p.UpdatedAt) {
		now = p.UpdatedAt
	}
	p.UpdatedAt = now
}

func transitionError(from, to types.PaymentStatus) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
