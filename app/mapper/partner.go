package mapper

import (
	"time"

	"github.com/vibast-solutions/ms-go-payment-hub/app/dispatch"
	"github.com/vibast-solutions/ms-go-payment-hub/app/entity"
	"github.com/vibast-solutions/ms-go-payment-hub/app/types"
)

// PartnerToResponse maps a partner for API output. The signing secret is
// included only when includeSecret is set, which callers reserve for
// issuance and rotation responses.
func PartnerToResponse(item *entity.Partner, includeSecret bool) *types.Partner {
	if item == nil {
		return nil
	}

	partner := &types.Partner{
		ID:                  item.ID,
		Name:                item.Name,
		WebhookURL:          item.WebhookURL,
		Events:              cloneEvents(item.Events),
		Status:              item.Status,
		Description:         derefString(item.Description),
		ContactEmail:        derefString(item.ContactEmail),
		TotalWebhooksSent:   item.TotalWebhooksSent,
		ConsecutiveFailures: item.ConsecutiveFailures,
		CreatedAt:           item.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:           item.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if includeSecret {
		partner.Secret = item.Secret
	}
	if item.LastWebhookAt != nil {
		partner.LastWebhookAt = item.LastWebhookAt.UTC().Format(time.RFC3339)
	}

	return partner
}

func PartnersToResponse(items []*entity.Partner) []*types.Partner {
	result := make([]*types.Partner, 0, len(items))
	for _, item := range items {
		result = append(result, PartnerToResponse(item, false))
	}
	return result
}

func DeliveryResultToResponse(result dispatch.Result) *types.WebhookDeliveryResult {
	return &types.WebhookDeliveryResult{
		PartnerID:   result.PartnerID,
		PartnerName: result.PartnerName,
		Status:      result.Status,
		StatusCode:  result.StatusCode,
		Error:       derefString(result.Error),
	}
}

func cloneEvents(src []types.EventType) []types.EventType {
	dst := make([]types.EventType, len(src))
	copy(dst, src)
	return dst
}
