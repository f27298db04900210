package types

import (
	"strings"
	"testing"
)

func validPaymentRequest() *CreatePaymentRequest {
	return &CreatePaymentRequest{
		Amount:        "25.50",
		Currency:      "EUR",
		PaymentType:   "reservation",
		ReservationID: "res-1",
	}
}

func TestCreatePaymentRequestValidate(t *testing.T) {
	if err := validPaymentRequest().Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(r *CreatePaymentRequest)
	}{
		{"empty amount", func(r *CreatePaymentRequest) { r.Amount = "" }},
		{"non-numeric amount", func(r *CreatePaymentRequest) { r.Amount = "abc" }},
		{"zero amount", func(r *CreatePaymentRequest) { r.Amount = "0" }},
		{"negative amount", func(r *CreatePaymentRequest) { r.Amount = "-5.00" }},
		{"too many decimal places", func(r *CreatePaymentRequest) { r.Amount = "10.555" }},
		{"unknown currency", func(r *CreatePaymentRequest) { r.Currency = "JPY" }},
		{"unknown payment type", func(r *CreatePaymentRequest) { r.PaymentType = "donation" }},
		{"reservation without reservation id", func(r *CreatePaymentRequest) { r.ReservationID = "" }},
		{"subscription without subscription id", func(r *CreatePaymentRequest) {
			r.PaymentType = "subscription"
			r.ReservationID = ""
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validPaymentRequest()
			tc.mutate(req)
			if err := req.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestCreatePaymentRequestAmountDecimal(t *testing.T) {
	req := validPaymentRequest()
	if err := req.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
	if req.AmountDecimal().StringFixed(2) != "25.50" {
		t.Fatalf("unexpected amount: %s", req.AmountDecimal())
	}
}

func TestRefundPaymentRequestValidate(t *testing.T) {
	full := &RefundPaymentRequest{ID: "pay-1"}
	if err := full.Validate(); err != nil {
		t.Fatalf("expected full refund request to be valid, got %v", err)
	}
	if full.AmountDecimal() != nil {
		t.Fatal("expected nil amount for a full refund")
	}

	partial := &RefundPaymentRequest{ID: "pay-1", Amount: "4.50"}
	if err := partial.Validate(); err != nil {
		t.Fatalf("expected partial refund request to be valid, got %v", err)
	}
	if amount := partial.AmountDecimal(); amount == nil || amount.StringFixed(2) != "4.50" {
		t.Fatalf("unexpected partial amount: %v", amount)
	}

	cases := []struct {
		name string
		req  *RefundPaymentRequest
	}{
		{"missing id", &RefundPaymentRequest{Amount: "4.50"}},
		{"non-numeric amount", &RefundPaymentRequest{ID: "pay-1", Amount: "abc"}},
		{"zero amount", &RefundPaymentRequest{ID: "pay-1", Amount: "0"}},
		{"negative amount", &RefundPaymentRequest{ID: "pay-1", Amount: "-1.00"}},
		{"too many decimal places", &RefundPaymentRequest{ID: "pay-1", Amount: "4.555"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.req.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestCreatePartnerRequestValidate(t *testing.T) {
	valid := &CreatePartnerRequest{
		Name:       "Acme",
		WebhookURL: "https://acme.example/hooks",
		Events:     []string{"payment.succeeded", "*"},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(r *CreatePartnerRequest)
	}{
		{"empty name", func(r *CreatePartnerRequest) { r.Name = "" }},
		{"non-http url", func(r *CreatePartnerRequest) { r.WebhookURL = "ftp://acme.example/hooks" }},
		{"no events", func(r *CreatePartnerRequest) { r.Events = nil }},
		{"unknown event", func(r *CreatePartnerRequest) { r.Events = []string{"payment.exploded"} }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := &CreatePartnerRequest{
				Name:       valid.Name,
				WebhookURL: valid.WebhookURL,
				Events:     append([]string{}, valid.Events...),
			}
			tc.mutate(req)
			if err := req.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestCreatePartnerRequestEventTypes(t *testing.T) {
	req := &CreatePartnerRequest{
		Name:       "Acme",
		WebhookURL: "https://acme.example/hooks",
		Events:     []string{"payment.succeeded", "payment.failed"},
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}

	events := req.EventTypes()
	if len(events) != 2 || events[0] != EventPaymentSucceeded || events[1] != EventPaymentFailed {
		t.Fatalf("unexpected event types: %v", events)
	}
}

func TestProviderWebhookRequestValidate(t *testing.T) {
	valid := &ProviderWebhookRequest{
		Provider:  "stripe",
		Signature: "t=1,v1=deadbeef",
		Payload:   []byte(`{}`),
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}

	if err := (&ProviderWebhookRequest{Signature: "t=1,v1=x", Payload: []byte(`{}`)}).Validate(); err == nil {
		t.Fatal("expected error for missing provider")
	}
	if err := (&ProviderWebhookRequest{Provider: "stripe", Payload: []byte(`{}`)}).Validate(); err == nil {
		t.Fatal("expected error for missing signature")
	}
	if err := (&ProviderWebhookRequest{Provider: "stripe", Signature: "t=1,v1=x"}).Validate(); err == nil {
		t.Fatal("expected error for empty payload")
	}
}

func TestGenerateSignatureRequestValidate(t *testing.T) {
	valid := &GenerateSignatureRequest{Secret: "whsec_test", Payload: []byte(`{"a":1}`)}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}

	if err := (&GenerateSignatureRequest{Payload: []byte(`{}`)}).Validate(); err == nil {
		t.Fatal("expected error for missing secret")
	}
	if err := (&GenerateSignatureRequest{Secret: "whsec_test"}).Validate(); err == nil {
		t.Fatal("expected error for missing payload")
	}
}

func TestEventTypeValid(t *testing.T) {
	for _, event := range []EventType{
		EventAll,
		EventPaymentCreated,
		EventPaymentSucceeded,
		EventPaymentFailed,
		EventPaymentRefunded,
		EventReservationConfirmed,
		EventReservationCanceled,
		EventWebhookTest,
	} {
		if !event.Valid() {
			t.Fatalf("expected %s to be valid", event)
		}
	}
	if EventType("payment.exploded").Valid() {
		t.Fatal("expected unknown event to be invalid")
	}
	// Cancellations are not published to partners.
	if EventType("payment.canceled").Valid() {
		t.Fatal("expected payment.canceled to be outside the subscription vocabulary")
	}
	if !strings.HasPrefix(string(EventPaymentSucceeded), "payment.") {
		t.Fatalf("unexpected event name: %s", EventPaymentSucceeded)
	}
}
