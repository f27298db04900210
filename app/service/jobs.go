package service

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// RunReconcileBatch re-checks payments that have sat in pending or
// processing longer than the configured window against their provider.
func (s *PaymentService) RunReconcileBatch(ctx context.Context) error {
	now := time.Now().UTC()
	before := now.Add(-s.paymentsCfg.ReconcileStaleAfter)
	items, err := s.paymentRepo.ListStaleProcessing(ctx, before, s.batchSize())
	if err != nil {
		return err
	}

	var firstErr error
	for _, payment := range items {
		if payment == nil || payment.ProviderPaymentID == nil || strings.TrimSpace(*payment.ProviderPaymentID) == "" {
			continue
		}

		providerClient, err := s.providerReg.Get(payment.Provider)
		if err != nil {
			firstErr = keepFirstErr(firstErr, err)
			continue
		}

		providerStatus, err := providerClient.GetPaymentStatus(ctx, *payment.ProviderPaymentID)
		if err != nil {
			firstErr = keepFirstErr(firstErr, fmt.Errorf("%w: %v", ErrProviderUnavailable, err))
			continue
		}

		if err := s.applyProviderStatus(ctx, payment, providerStatus, nil, "payment_reconciled", nil, nil); err != nil {
			firstErr = keepFirstErr(firstErr, err)
		}
	}

	return firstErr
}

func keepFirstErr(current error, candidate error) error {
	if current != nil {
		return current
	}
	return candidate
}
