package controller

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/vibast-solutions/ms-go-payment-hub/app/dispatch"
	"github.com/vibast-solutions/ms-go-payment-hub/app/entity"
	"github.com/vibast-solutions/ms-go-payment-hub/app/service"
	"github.com/vibast-solutions/ms-go-payment-hub/app/types"
)

type controllerPartnerRepo struct {
	partners map[string]*entity.Partner
}

func newControllerPartnerRepo() *controllerPartnerRepo {
	return &controllerPartnerRepo{partners: map[string]*entity.Partner{}}
}

func (r *controllerPartnerRepo) Create(_ context.Context, partner *entity.Partner) error {
	copyItem := *partner
	r.partners[partner.ID] = &copyItem
	return nil
}

func (r *controllerPartnerRepo) Update(_ context.Context, partner *entity.Partner) error {
	copyItem := *partner
	r.partners[partner.ID] = &copyItem
	return nil
}

func (r *controllerPartnerRepo) FindByID(_ context.Context, id string) (*entity.Partner, error) {
	item, ok := r.partners[id]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

func (r *controllerPartnerRepo) List(_ context.Context) ([]*entity.Partner, error) {
	items := make([]*entity.Partner, 0, len(r.partners))
	for _, item := range r.partners {
		copyItem := *item
		items = append(items, &copyItem)
	}
	return items, nil
}

type controllerPartnerDispatcher struct{}

func (d *controllerPartnerDispatcher) DispatchToPartner(_ context.Context, partner *entity.Partner, _ types.EventType, _ map[string]interface{}) dispatch.Result {
	return dispatch.Result{
		PartnerID:   partner.ID,
		PartnerName: partner.Name,
		Status:      dispatch.StatusSuccess,
		StatusCode:  200,
	}
}

func newPartnerControllerForTest(repo *controllerPartnerRepo) *PartnerController {
	return NewPartnerController(service.NewPartnerService(repo, &controllerPartnerDispatcher{}))
}

func TestCreatePartnerDisclosesSecretOnce(t *testing.T) {
	repo := newControllerPartnerRepo()
	ctrl := newPartnerControllerForTest(repo)

	ctx, rec := newJSONContext(t, http.MethodPost, "/partners", map[string]interface{}{
		"name":        "Acme",
		"webhook_url": "https://acme.example/hooks",
		"events":      []string{"payment.succeeded"},
	})
	if err := ctrl.CreatePartner(ctx); err != nil {
		t.Fatalf("create partner handler failed: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created types.PartnerEnvelopeResponse
	decodeBody(t, rec, &created)
	if created.Partner == nil || created.Partner.Secret == "" {
		t.Fatal("expected secret in the creation response")
	}
	if !strings.HasPrefix(created.Partner.Secret, "whsec_") {
		t.Fatalf("unexpected secret format: %q", created.Partner.Secret)
	}

	// Subsequent reads never expose the secret again.
	getCtx, getRec := newJSONContext(t, http.MethodGet, "/partners/"+created.Partner.ID, nil)
	getCtx.SetParamNames("id")
	getCtx.SetParamValues(created.Partner.ID)
	if err := ctrl.GetPartner(getCtx); err != nil {
		t.Fatalf("get partner handler failed: %v", err)
	}
	if getRec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", getRec.Code)
	}
	if strings.Contains(getRec.Body.String(), created.Partner.Secret) {
		t.Fatal("secret leaked in the get partner response")
	}
	if strings.Contains(getRec.Body.String(), `"secret"`) {
		t.Fatal("secret field present in the get partner response")
	}
}

func TestCreatePartnerUnknownEventReturns400(t *testing.T) {
	ctrl := newPartnerControllerForTest(newControllerPartnerRepo())

	ctx, rec := newJSONContext(t, http.MethodPost, "/partners", map[string]interface{}{
		"name":        "Acme",
		"webhook_url": "https://acme.example/hooks",
		"events":      []string{"payment.exploded"},
	})
	if err := ctrl.CreatePartner(ctx); err != nil {
		t.Fatalf("create partner handler failed: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRotateSecretReturnsNewSecret(t *testing.T) {
	repo := newControllerPartnerRepo()
	ctrl := newPartnerControllerForTest(repo)

	partner := entity.NewPartner("Acme", "https://acme.example/hooks", []types.EventType{types.EventAll})
	if err := repo.Create(context.Background(), partner); err != nil {
		t.Fatalf("seed partner failed: %v", err)
	}
	oldSecret := partner.Secret

	ctx, rec := newJSONContext(t, http.MethodPost, "/partners/"+partner.ID+"/rotate-secret", nil)
	ctx.SetParamNames("id")
	ctx.SetParamValues(partner.ID)
	if err := ctrl.RotateSecret(ctx); err != nil {
		t.Fatalf("rotate secret handler failed: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body types.PartnerEnvelopeResponse
	decodeBody(t, rec, &body)
	if body.Partner.Secret == "" || body.Partner.Secret == oldSecret {
		t.Fatalf("expected a fresh secret in the rotation response, got %q", body.Partner.Secret)
	}
}

func TestGetPartnerNotFoundReturns404(t *testing.T) {
	ctrl := newPartnerControllerForTest(newControllerPartnerRepo())

	ctx, rec := newJSONContext(t, http.MethodGet, "/partners/missing", nil)
	ctx.SetParamNames("id")
	ctx.SetParamValues("missing")
	if err := ctrl.GetPartner(ctx); err != nil {
		t.Fatalf("get partner handler failed: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestListPartnersByEventRequiresEventParam(t *testing.T) {
	ctrl := newPartnerControllerForTest(newControllerPartnerRepo())

	ctx, rec := newJSONContext(t, http.MethodGet, "/partners/by-event", nil)
	if err := ctrl.ListPartnersByEvent(ctx); err != nil {
		t.Fatalf("list partners by event handler failed: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestTestWebhookReturnsDeliveryResult(t *testing.T) {
	repo := newControllerPartnerRepo()
	ctrl := newPartnerControllerForTest(repo)

	partner := entity.NewPartner("Acme", "https://acme.example/hooks", []types.EventType{types.EventAll})
	if err := repo.Create(context.Background(), partner); err != nil {
		t.Fatalf("seed partner failed: %v", err)
	}

	ctx, rec := newJSONContext(t, http.MethodPost, "/partners/"+partner.ID+"/test-webhook", nil)
	ctx.SetParamNames("id")
	ctx.SetParamValues(partner.ID)
	if err := ctrl.TestWebhook(ctx); err != nil {
		t.Fatalf("test webhook handler failed: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body types.WebhookTestResponse
	decodeBody(t, rec, &body)
	if body.Delivery == nil || body.Delivery.Status != dispatch.StatusSuccess {
		t.Fatalf("unexpected delivery result: %+v", body.Delivery)
	}
	if body.Delivery.PartnerID != partner.ID {
		t.Fatalf("unexpected partner id in delivery result: %s", body.Delivery.PartnerID)
	}
}
