package mapper

import (
	"time"

	"github.com/vibast-solutions/ms-go-payment-hub/app/entity"
	"github.com/vibast-solutions/ms-go-payment-hub/app/types"
)

func PaymentToResponse(item *entity.Payment) *types.Payment {
	if item == nil {
		return nil
	}

	return &types.Payment{
		ID:                item.ID,
		Amount:            item.Amount.StringFixed(2),
		Currency:          item.Currency,
		Status:            item.Status,
		PaymentType:       item.PaymentType,
		Provider:          item.Provider,
		ReservationID:     derefString(item.ReservationID),
		SubscriptionID:    derefString(item.SubscriptionID),
		UserID:            derefString(item.UserID),
		ProviderPaymentID: derefString(item.ProviderPaymentID),
		CheckoutURL:       derefString(item.CheckoutURL),
		PayerEmail:        derefString(item.PayerEmail),
		PayerName:         derefString(item.PayerName),
		Description:       derefString(item.Description),
		Metadata:          cloneMetadata(item.Metadata),
		FailureReason:     derefString(item.FailureReason),
		CreatedAt:         item.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:         item.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func PaymentsToResponse(items []*entity.Payment) []*types.Payment {
	result := make([]*types.Payment, 0, len(items))
	for _, item := range items {
		result = append(result, PaymentToResponse(item))
	}
	return result
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
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
