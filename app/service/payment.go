package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/ms-go-payment-hub/app/dispatch"
	"github.com/vibast-solutions/ms-go-payment-hub/app/entity"
	"github.com/vibast-solutions/ms-go-payment-hub/app/factory"
	"github.com/vibast-solutions/ms-go-payment-hub/app/provider"
	"github.com/vibast-solutions/ms-go-payment-hub/app/repository"
	"github.com/vibast-solutions/ms-go-payment-hub/app/types"
	"github.com/vibast-solutions/ms-go-payment-hub/config"
)

const defaultBatchSize = int32(100)

type paymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	Update(ctx context.Context, payment *entity.Payment) error
	FindByID(ctx context.Context, id string) (*entity.Payment, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*entity.Payment, error)
	FindByProviderPaymentID(ctx context.Context, provider, providerPaymentID string) (*entity.Payment, error)
	ListByReservationID(ctx context.Context, reservationID string) ([]*entity.Payment, error)
	ListStaleProcessing(ctx context.Context, before time.Time, limit int32) ([]*entity.Payment, error)
}

type paymentEventRepository interface {
	Create(ctx context.Context, event *entity.PaymentEvent) error
}

type eventDispatcher interface {
	Dispatch(ctx context.Context, event types.EventType, payload map[string]interface{}) []dispatch.Result
}

type workflowNotifier interface {
	Notify(ctx context.Context, event types.EventType, payload map[string]interface{})
}

type PaymentService struct {
	paymentRepo paymentRepository
	eventRepo   paymentEventRepository
	providerReg *provider.Registry
	dispatcher  eventDispatcher
	notifier    workflowNotifier
	paymentsCfg config.PaymentsConfig
	logger      logrus.FieldLogger
}

func NewPaymentService(
	paymentRepo paymentRepository,
	eventRepo paymentEventRepository,
	providerReg *provider.Registry,
	dispatcher eventDispatcher,
	notifier workflowNotifier,
	paymentsCfg config.PaymentsConfig,
) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		eventRepo:   eventRepo,
		providerReg: providerReg,
		dispatcher:  dispatcher,
		notifier:    notifier,
		paymentsCfg: paymentsCfg,
		logger:      factory.NewModuleLogger("payment-service"),
	}
}

// CreatePayment creates the payment record and opens a checkout with the
// provider. Requests replayed with a known idempotency key return the
// original payment without touching the provider again.
func (s *PaymentService) CreatePayment(ctx context.Context, req *types.CreatePaymentRequest) (*entity.Payment, error) {
	if req.IdempotencyKey != "" {
		existing, err := s.paymentRepo.FindByIdempotencyKey(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}

	providerName := req.Provider
	if providerName == "" {
		providerName = s.paymentsCfg.DefaultProvider
	}
	providerClient, err := s.providerReg.Get(providerName)
	if err != nil {
		if errors.Is(err, provider.ErrProviderNotSupported) {
			return nil, ErrProviderUnsupported
		}
		return nil, err
	}

	payment := entity.NewPayment(
		req.AmountDecimal(),
		types.Currency(req.Currency),
		types.PaymentType(req.PaymentType),
		providerClient.Name(),
	)
	payment.ReservationID = normalizeOptionalString(req.ReservationID)
	payment.SubscriptionID = normalizeOptionalString(req.SubscriptionID)
	payment.UserID = normalizeOptionalString(req.UserID)
	payment.PayerEmail = normalizeOptionalString(req.PayerEmail)
	payment.PayerName = normalizeOptionalString(req.PayerName)
	payment.Description = normalizeOptionalString(req.Description)
	payment.IdempotencyKey = normalizeOptionalString(req.IdempotencyKey)
	payment.Metadata = cloneMetadata(req.Metadata)

	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		if errors.Is(err, repository.ErrPaymentAlreadyExists) {
			// Lost a race on the idempotency key; the winner's row is the answer.
			if req.IdempotencyKey != "" {
				existing, findErr := s.paymentRepo.FindByIdempotencyKey(ctx, req.IdempotencyKey)
				if findErr == nil && existing != nil {
					return existing, nil
				}
			}
			return nil, ErrPaymentAlreadyExists
		}
		return nil, err
	}

	s.recordEvent(ctx, payment.ID, "payment_created", nil, payment.Status, nil, nil, entity.PaymentEventProcessed)

	intent, err := providerClient.CreatePaymentIntent(ctx, &provider.IntentInput{
		PaymentID:   payment.ID,
		Amount:      payment.Amount,
		Currency:    payment.Currency,
		PaymentType: payment.PaymentType,
		Description: payment.Description,
		PayerEmail:  payment.PayerEmail,
		Metadata:    cloneMetadata(payment.Metadata),
		SuccessURL:  req.SuccessURL,
		CancelURL:   req.CancelURL,
	})
	if err != nil {
		// The pending row stays behind so the payment can be canceled or
		// picked up by reconciliation once the provider recovers.
		s.logger.WithError(err).WithField("payment_id", payment.ID).Error("Provider intent creation failed")
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	oldStatus := payment.Status
	if err := payment.MarkProcessing(intent.ProviderPaymentID, intent.CheckoutURL); err != nil {
		return nil, err
	}
	if err := s.paymentRepo.Update(ctx, payment); err != nil {
		return nil, err
	}
	s.recordEvent(ctx, payment.ID, "payment_processing", &oldStatus, payment.Status, nil, nil, entity.PaymentEventProcessed)

	return payment, nil
}

func (s *PaymentService) GetPayment(ctx context.Context, id string) (*entity.Payment, error) {
	payment, err := s.paymentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	return payment, nil
}

func (s *PaymentService) ListByReservation(ctx context.Context, reservationID string) ([]*entity.Payment, error) {
	return s.paymentRepo.ListByReservationID(ctx, reservationID)
}

// VerifyOutcome reports what a provider verification did to the payment.
type VerifyOutcome struct {
	Payment        *entity.Payment
	PreviousStatus types.PaymentStatus
	Changed        bool
}

// VerifyPayment re-reads the payment status from the provider and applies
// any forward transition. A local status that is already final, or ahead of
// what the provider reports, is never downgraded.
func (s *PaymentService) VerifyPayment(ctx context.Context, id string) (*VerifyOutcome, error) {
	payment, err := s.GetPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := payment.Status

	if payment.Status.Terminal() || payment.Status == types.PaymentStatusSucceeded {
		return &VerifyOutcome{Payment: payment, PreviousStatus: previous}, nil
	}
	if payment.ProviderPaymentID == nil {
		return &VerifyOutcome{Payment: payment, PreviousStatus: previous}, nil
	}

	providerClient, err := s.providerReg.Get(payment.Provider)
	if err != nil {
		if errors.Is(err, provider.ErrProviderNotSupported) {
			return nil, ErrProviderUnsupported
		}
		return nil, err
	}

	providerStatus, err := providerClient.GetPaymentStatus(ctx, *payment.ProviderPaymentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	if err := s.applyProviderStatus(ctx, payment, providerStatus, nil, "payment_verified", nil, nil); err != nil {
		return nil, err
	}

	return &VerifyOutcome{
		Payment:        payment,
		PreviousStatus: previous,
		Changed:        payment.Status != previous,
	}, nil
}

func (s *PaymentService) CancelPayment(ctx context.Context, id string) (*entity.Payment, error) {
	payment, err := s.GetPayment(ctx, id)
	if err != nil {
		return nil, err
	}

	// Refused without contacting the provider.
	if !payment.CanBeCanceled() {
		return nil, fmt.Errorf("%w: %s payments cannot be canceled", ErrStateConflict, payment.Status)
	}

	if payment.ProviderPaymentID != nil {
		providerClient, err := s.providerReg.Get(payment.Provider)
		if err != nil {
			if errors.Is(err, provider.ErrProviderNotSupported) {
				return nil, ErrProviderUnsupported
			}
			return nil, err
		}
		canceled, err := providerClient.CancelPayment(ctx, *payment.ProviderPaymentID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
		if !canceled {
			// Finalized upstream; verification will pull in the real status.
			return nil, fmt.Errorf("%w: provider reports the payment as already finalized", ErrStateConflict)
		}
	}

	oldStatus := payment.Status
	if err := payment.MarkCanceled(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStateConflict, err)
	}
	if err := s.paymentRepo.Update(ctx, payment); err != nil {
		return nil, err
	}

	// Cancellations are audited but not fanned out; partners only subscribe
	// to succeeded, failed and refunded outcomes.
	s.recordEvent(ctx, payment.ID, "payment_canceled", &oldStatus, payment.Status, nil, nil, entity.PaymentEventProcessed)

	return payment, nil
}

// RefundPayment refunds a succeeded payment, the full amount by default or
// a partial amount when one is given.
func (s *PaymentService) RefundPayment(ctx context.Context, id string, amount *decimal.Decimal) (*entity.Payment, error) {
	payment, err := s.GetPayment(ctx, id)
	if err != nil {
		return nil, err
	}

	// Refused without contacting the provider.
	if !payment.CanBeRefunded() {
		return nil, fmt.Errorf("%w: only succeeded payments can be refunded, payment is %s", ErrStateConflict, payment.Status)
	}
	if payment.ProviderPaymentID == nil {
		return nil, fmt.Errorf("%w: payment has no provider reference", ErrStateConflict)
	}
	if amount != nil {
		if !amount.IsPositive() {
			return nil, fmt.Errorf("%w: refund amount must be positive", ErrInvalidRequest)
		}
		if amount.GreaterThan(payment.Amount) {
			return nil, fmt.Errorf("%w: refund amount exceeds the payment amount", ErrInvalidRequest)
		}
	}

	providerClient, err := s.providerReg.Get(payment.Provider)
	if err != nil {
		if errors.Is(err, provider.ErrProviderNotSupported) {
			return nil, ErrProviderUnsupported
		}
		return nil, err
	}

	refund, err := providerClient.RefundPayment(ctx, *payment.ProviderPaymentID, amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	if !refund.Succeeded {
		reason := "provider refused the refund"
		if refund.FailureReason != nil {
			reason = *refund.FailureReason
		}
		return nil, fmt.Errorf("%w: %s", ErrStateConflict, reason)
	}

	oldStatus := payment.Status
	if err := payment.MarkRefunded(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStateConflict, err)
	}
	if refund.ProviderRefundID != nil {
		payment.Metadata["provider_refund_id"] = *refund.ProviderRefundID
	}
	if amount != nil && amount.LessThan(payment.Amount) {
		payment.Metadata["refund_amount"] = amount.StringFixed(2)
	}
	if err := s.paymentRepo.Update(ctx, payment); err != nil {
		return nil, err
	}

	s.recordEvent(ctx, payment.ID, "payment_refunded", &oldStatus, payment.Status, nil, nil, entity.PaymentEventProcessed)
	s.publishPaymentEvent(ctx, payment)

	return payment, nil
}

// applyProviderStatus moves the payment toward what the provider reports.
// It is a no-op for unknown statuses and for anything that would move the
// payment backwards. Changed payments are persisted, audited and fanned out.
func (s *PaymentService) applyProviderStatus(
	ctx context.Context,
	payment *entity.Payment,
	target types.PaymentStatus,
	failureReason *string,
	eventType string,
	providerEventID *string,
	payloadJSON *string,
) error {
	oldStatus := payment.Status
	if target == "" || target == oldStatus {
		return nil
	}

	switch target {
	case types.PaymentStatusProcessing:
		if oldStatus != types.PaymentStatusPending || payment.ProviderPaymentID == nil {
			return nil
		}
		if err := payment.MarkProcessing(*payment.ProviderPaymentID, payment.CheckoutURL); err != nil {
			return nil
		}
	case types.PaymentStatusSucceeded:
		s.promoteToProcessing(payment)
		if err := payment.MarkSucceeded(); err != nil {
			return nil
		}
	case types.PaymentStatusFailed:
		s.promoteToProcessing(payment)
		if err := payment.MarkFailed(failureReason); err != nil {
			return nil
		}
	case types.PaymentStatusCanceled:
		if err := payment.MarkCanceled(); err != nil {
			return nil
		}
	case types.PaymentStatusRefunded:
		if err := payment.MarkRefunded(); err != nil {
			return nil
		}
	default:
		return nil
	}

	if err := s.paymentRepo.Update(ctx, payment); err != nil {
		return err
	}

	s.recordEvent(ctx, payment.ID, eventType, &oldStatus, payment.Status, providerEventID, payloadJSON, entity.PaymentEventProcessed)
	s.publishPaymentEvent(ctx, payment)

	return nil
}

// promoteToProcessing bridges pending payments that already hold a provider
// reference so a terminal transition can be applied.
func (s *PaymentService) promoteToProcessing(payment *entity.Payment) {
	if payment.Status == types.PaymentStatusPending && payment.ProviderPaymentID != nil {
		_ = payment.MarkProcessing(*payment.ProviderPaymentID, payment.CheckoutURL)
	}
}

// publishPaymentEvent fans the payment's current status out to subscribed
// partners and the automation workflow. Delivery failures never bubble up
// into payment processing.
func (s *PaymentService) publishPaymentEvent(ctx context.Context, payment *entity.Payment) {
	event := eventForStatus(payment.Status)
	if event == "" {
		return
	}

	payload := paymentEventPayload(payment)
	results := s.dispatcher.Dispatch(ctx, event, payload)
	s.notifier.Notify(ctx, event, payload)

	delivered := 0
	for _, result := range results {
		if result.Status == dispatch.StatusSuccess {
			delivered++
		}
	}
	s.logger.WithFields(logrus.Fields{
		"payment_id": payment.ID,
		"event":      event,
		"partners":   len(results),
		"delivered":  delivered,
	}).Info("Payment event published")
}

func (s *PaymentService) recordEvent(
	ctx context.Context,
	paymentID string,
	eventType string,
	oldStatus *types.PaymentStatus,
	newStatus types.PaymentStatus,
	providerEventID *string,
	payloadJSON *string,
	disposition int32,
) {
	err := s.eventRepo.Create(ctx, &entity.PaymentEvent{
		PaymentID:       paymentID,
		EventType:       eventType,
		OldStatus:       oldStatus,
		NewStatus:       newStatus,
		ProviderEventID: providerEventID,
		PayloadJSON:     payloadJSON,
		Disposition:     disposition,
		CreatedAt:       time.Now().UTC(),
	})
	if err != nil {
		s.logger.WithError(err).WithField("payment_id", paymentID).Warn("Failed to record payment event")
	}
}

func (s *PaymentService) batchSize() int32 {
	if s.paymentsCfg.JobBatchSize > 0 {
		return s.paymentsCfg.JobBatchSize
	}
	return defaultBatchSize
}

func eventForStatus(status types.PaymentStatus) types.EventType {
	switch status {
	case types.PaymentStatusSucceeded:
		return types.EventPaymentSucceeded
	case types.PaymentStatusFailed:
		return types.EventPaymentFailed
	case types.PaymentStatusRefunded:
		return types.EventPaymentRefunded
	default:
		return ""
	}
}

func paymentEventPayload(payment *entity.Payment) map[string]interface{} {
	payload := map[string]interface{}{
		"payment_id":   payment.ID,
		"amount":       payment.Amount.StringFixed(2),
		"currency":     string(payment.Currency),
		"status":       string(payment.Status),
		"payment_type": string(payment.PaymentType),
		"provider":     payment.Provider,
	}
	if payment.ReservationID != nil {
		payload["reservation_id"] = *payment.ReservationID
	}
	if payment.SubscriptionID != nil {
		payload["subscription_id"] = *payment.SubscriptionID
	}
	if payment.UserID != nil {
		payload["user_id"] = *payment.UserID
	}
	if payment.Status == types.PaymentStatusFailed && payment.FailureReason != nil {
		payload["failure_reason"] = *payment.FailureReason
	}
	return payload
}

func normalizeOptionalString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func cloneMetadata(src map[string]string) map[string]string {
	if len(src) == 0 {
		return map[string]string{}
	}
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
