package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/ms-go-payment-hub/app/dispatch"
	"github.com/vibast-solutions/ms-go-payment-hub/app/entity"
	"github.com/vibast-solutions/ms-go-payment-hub/app/factory"
	"github.com/vibast-solutions/ms-go-payment-hub/app/repository"
	"github.com/vibast-solutions/ms-go-payment-hub/app/types"
)

type partnerRepository interface {
	Create(ctx context.Context, partner *entity.Partner) error
	Update(ctx context.Context, partner *entity.Partner) error
	FindByID(ctx context.Context, id string) (*entity.Partner, error)
	List(ctx context.Context) ([]*entity.Partner, error)
}

type partnerDispatcher interface {
	DispatchToPartner(ctx context.Context, partner *entity.Partner, event types.EventType, payload map[string]interface{}) dispatch.Result
}

type PartnerService struct {
	partnerRepo partnerRepository
	dispatcher  partnerDispatcher
	logger      logrus.FieldLogger
}

func NewPartnerService(partnerRepo partnerRepository, dispatcher partnerDispatcher) *PartnerService {
	return &PartnerService{
		partnerRepo: partnerRepo,
		dispatcher:  dispatcher,
		logger:      factory.NewModuleLogger("partner-service"),
	}
}

// CreatePartner registers a partner and issues its signing secret. The
// returned entity is the only place the plaintext secret is exposed.
func (s *PartnerService) CreatePartner(ctx context.Context, req *types.CreatePartnerRequest) (*entity.Partner, error) {
	partner := entity.NewPartner(req.Name, req.WebhookURL, req.EventTypes())
	partner.Description = normalizeOptionalString(req.Description)
	partner.ContactEmail = normalizeOptionalString(req.ContactEmail)

	if err := s.partnerRepo.Create(ctx, partner); err != nil {
		if errors.Is(err, repository.ErrPartnerAlreadyExists) {
			return nil, ErrPartnerAlreadyExists
		}
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"partner_id": partner.ID,
		"name":       partner.Name,
	}).Info("Partner registered")

	return partner, nil
}

func (s *PartnerService) GetPartner(ctx context.Context, id string) (*entity.Partner, error) {
	partner, err := s.partnerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if partner == nil {
		return nil, ErrPartnerNotFound
	}
	return partner, nil
}

func (s *PartnerService) ListPartners(ctx context.Context) ([]*entity.Partner, error) {
	return s.partnerRepo.List(ctx)
}

// ListPartnersByEvent returns active partners subscribed to the event.
func (s *PartnerService) ListPartnersByEvent(ctx context.Context, event types.EventType) ([]*entity.Partner, error) {
	partners, err := s.partnerRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]*entity.Partner, 0, len(partners))
	for _, partner := range partners {
		if partner.Status == types.PartnerStatusActive && partner.IsSubscribedTo(event) {
			matched = append(matched, partner)
		}
	}

	return matched, nil
}

// RotateSecret replaces the partner's signing secret. The new secret is
// carried on the returned entity for one-time disclosure to the caller.
func (s *PartnerService) RotateSecret(ctx context.Context, id string) (*entity.Partner, error) {
	partner, err := s.GetPartner(ctx, id)
	if err != nil {
		return nil, err
	}

	partner.RotateSecret()
	if err := s.updatePartner(ctx, partner); err != nil {
		return nil, err
	}

	s.logger.WithField("partner_id", partner.ID).Info("Partner secret rotated")

	return partner, nil
}

// ActivatePartner reactivates an inactive or suspended partner and clears
// its failure streak.
func (s *PartnerService) ActivatePartner(ctx context.Context, id string) (*entity.Partner, error) {
	partner, err := s.GetPartner(ctx, id)
	if err != nil {
		return nil, err
	}

	partner.Activate()
	if err := s.updatePartner(ctx, partner); err != nil {
		return nil, err
	}

	return partner, nil
}

func (s *PartnerService) DeactivatePartner(ctx context.Context, id string) (*entity.Partner, error) {
	partner, err := s.GetPartner(ctx, id)
	if err != nil {
		return nil, err
	}

	partner.Deactivate()
	if err := s.updatePartner(ctx, partner); err != nil {
		return nil, err
	}

	return partner, nil
}

// TestWebhook sends a signed test event to the partner's endpoint and
// reports the delivery outcome to the caller.
func (s *PartnerService) TestWebhook(ctx context.Context, id string) (dispatch.Result, error) {
	partner, err := s.GetPartner(ctx, id)
	if err != nil {
		return dispatch.Result{}, err
	}

	result := s.dispatcher.DispatchToPartner(ctx, partner, types.EventWebhookTest, map[string]interface{}{
		"partner_id": partner.ID,
		"test":       true,
		"message":    "webhook endpoint test delivery",
		"sent_at":    time.Now().UTC().Format(time.RFC3339),
	})

	return result, nil
}

func (s *PartnerService) updatePartner(ctx context.Context, partner *entity.Partner) error {
	if err := s.partnerRepo.Update(ctx, partner); err != nil {
		if errors.Is(err, repository.ErrPartnerNotFound) {
			return ErrPartnerNotFound
		}
		return err
	}
	return nil
}
