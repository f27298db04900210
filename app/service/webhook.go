package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vibast-solutions/ms-go-payment-hub/app/entity"
	"github.com/vibast-solutions/ms-go-payment-hub/app/provider"
	"github.com/vibast-solutions/ms-go-payment-hub/app/types"
)

// HandleProviderWebhook verifies, parses and applies an inbound provider
// notification. Duplicate deliveries are acknowledged without re-applying
// the transition, so downstream partners see each event exactly once.
func (s *PaymentService) HandleProviderWebhook(ctx context.Context, req *types.ProviderWebhookRequest) (*entity.Payment, error) {
	providerClient, err := s.providerReg.Get(req.Provider)
	if err != nil {
		if errors.Is(err, provider.ErrProviderNotSupported) {
			return nil, ErrProviderUnsupported
		}
		return nil, err
	}

	if !providerClient.VerifyWebhookSignature(req.Payload, req.Signature) {
		s.logger.WithField("provider", req.Provider).Warn("Rejected webhook with invalid signature")
		return nil, ErrSignatureInvalid
	}

	event, err := providerClient.ParseWebhookEvent(ctx, req.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	payment, err := s.locateWebhookPayment(ctx, req.Provider, event)
	if err != nil {
		return nil, err
	}

	payloadJSON := string(req.Payload)
	eventType := strings.TrimSpace(event.EventType)
	if eventType == "" {
		eventType = "provider_webhook"
	}

	// Backfill the provider reference when the webhook arrives before the
	// intent update was persisted.
	if payment.ProviderPaymentID == nil && event.ProviderPaymentID != nil && payment.Status == types.PaymentStatusPending {
		if err := payment.MarkProcessing(*event.ProviderPaymentID, nil); err == nil {
			if err := s.paymentRepo.Update(ctx, payment); err != nil {
				return nil, err
			}
		}
	}

	target := statusForAction(event.Action)
	if target == "" {
		s.recordEvent(ctx, payment.ID, eventType, nil, payment.Status, event.ProviderEventID, &payloadJSON, entity.PaymentEventProcessed)
		return payment, nil
	}

	if payment.Status == target {
		s.recordEvent(ctx, payment.ID, eventType, nil, payment.Status, event.ProviderEventID, &payloadJSON, entity.PaymentEventProcessed)
		return payment, nil
	}

	oldStatus := payment.Status
	if err := s.applyProviderStatus(ctx, payment, target, event.FailureReason, eventType, event.ProviderEventID, &payloadJSON); err != nil {
		return nil, err
	}

	if payment.Status == oldStatus {
		s.recordEvent(ctx, payment.ID, eventType, nil, payment.Status, event.ProviderEventID, &payloadJSON, entity.PaymentEventRejected)
		return payment, fmt.Errorf("%w: webhook %s does not apply to a %s payment", ErrStateConflict, event.Action, oldStatus)
	}

	return payment, nil
}

func (s *PaymentService) locateWebhookPayment(ctx context.Context, providerName string, event *provider.WebhookEvent) (*entity.Payment, error) {
	if event.PaymentID != "" {
		payment, err := s.paymentRepo.FindByID(ctx, event.PaymentID)
		if err != nil {
			return nil, err
		}
		if payment != nil {
			return payment, nil
		}
	}

	if event.ProviderPaymentID != nil {
		payment, err := s.paymentRepo.FindByProviderPaymentID(ctx, providerName, *event.ProviderPaymentID)
		if err != nil {
			return nil, err
		}
		if payment != nil {
			return payment, nil
		}
	}

	return nil, ErrPaymentNotFound
}

func statusForAction(action provider.Action) types.PaymentStatus {
	switch action {
	case provider.ActionSucceed:
		return types.PaymentStatusSucceeded
	case provider.ActionFail:
		return types.PaymentStatusFailed
	case provider.ActionCancel:
		return types.PaymentStatusCanceled
	case provider.ActionRefund:
		return types.PaymentStatusRefunded
	default:
		return ""
	}
}
