package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vibast-solutions/ms-go-payment-hub/app/signature"
	"github.com/vibast-solutions/ms-go-payment-hub/app/types"
)

func TestStripeCreatePaymentIntent(t *testing.T) {
	var gotForm map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/checkout/sessions" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotForm = map[string]string{}
		for k := range r.PostForm {
			gotForm[k] = r.PostForm.Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_test_1","url":"https://checkout.stripe.com/pay/cs_test_1"}`))
	}))
	defer server.Close()

	stripe := NewStripeProvider(StripeConfig{
		SecretKey:  "sk_test",
		APIBaseURL: server.URL,
	})

	output, err := stripe.CreatePaymentIntent(context.Background(), &IntentInput{
		PaymentID:   "pay-1",
		Amount:      decimal.RequireFromString("25.50"),
		Currency:    types.CurrencyEUR,
		PaymentType: types.PaymentTypeReservation,
	})
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}
	if output.ProviderPaymentID != "cs_test_1" {
		t.Fatalf("unexpected provider payment id: %s", output.ProviderPaymentID)
	}
	if output.CheckoutURL == nil || *output.CheckoutURL != "https://checkout.stripe.com/pay/cs_test_1" {
		t.Fatal("expected checkout url from session")
	}
	if gotForm["line_items[0][price_data][unit_amount]"] != "2550" {
		t.Fatalf("expected amount in minor units, got %s", gotForm["line_items[0][price_data][unit_amount]"])
	}
	if gotForm["metadata[payment_id]"] != "pay-1" {
		t.Fatal("expected payment id in session metadata")
	}
}

func TestStripeGetPaymentStatusMapping(t *testing.T) {
	cases := []struct {
		body     string
		expected types.PaymentStatus
	}{
		{`{"status":"open","payment_status":"unpaid"}`, types.PaymentStatusPending},
		{`{"status":"complete","payment_status":"paid"}`, types.PaymentStatusSucceeded},
		{`{"status":"complete","payment_status":"unpaid"}`, types.PaymentStatusProcessing},
		{`{"status":"expired","payment_status":"unpaid"}`, types.PaymentStatusCanceled},
		{`{"status":"something_new"}`, ""},
	}

	for _, tc := range cases {
		body := tc.body
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(body))
		}))

		stripe := NewStripeProvider(StripeConfig{SecretKey: "sk_test", APIBaseURL: server.URL})
		status, err := stripe.GetPaymentStatus(context.Background(), "cs_test_1")
		server.Close()
		if err != nil {
			t.Fatalf("get status for %s: %v", body, err)
		}
		if status != tc.expected {
			t.Fatalf("body %s: expected %q, got %q", body, tc.expected, status)
		}
	}
}

func TestStripeRefundRefusal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/checkout/sessions/cs_test_1":
			_, _ = w.Write([]byte(`{"payment_intent":"pi_test_1"}`))
		case "/v1/refunds":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"code":"charge_already_refunded","message":"Charge has already been refunded."}}`))
		default:
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer server.Close()

	stripe := NewStripeProvider(StripeConfig{SecretKey: "sk_test", APIBaseURL: server.URL})
	refund, err := stripe.RefundPayment(context.Background(), "cs_test_1", nil)
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if refund.Succeeded {
		t.Fatal("expected refund refusal")
	}
	if refund.FailureReason == nil || *refund.FailureReason != "Charge has already been refunded." {
		t.Fatal("expected refusal reason from stripe error object")
	}
}

func TestStripePartialRefundSendsMinorUnits(t *testing.T) {
	var refundForm map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/checkout/sessions/cs_test_1":
			_, _ = w.Write([]byte(`{"payment_intent":"pi_test_1"}`))
		case "/v1/refunds":
			if err := r.ParseForm(); err != nil {
				t.Fatalf("parse form: %v", err)
			}
			refundForm = map[string]string{}
			for k := range r.PostForm {
				refundForm[k] = r.PostForm.Get(k)
			}
			_, _ = w.Write([]byte(`{"id":"re_test_1"}`))
		default:
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer server.Close()

	stripe := NewStripeProvider(StripeConfig{SecretKey: "sk_test", APIBaseURL: server.URL})
	amount := decimal.RequireFromString("10.25")
	refund, err := stripe.RefundPayment(context.Background(), "cs_test_1", &amount)
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if !refund.Succeeded {
		t.Fatal("expected refund to pass")
	}
	if refund.ProviderRefundID == nil || *refund.ProviderRefundID != "re_test_1" {
		t.Fatal("expected provider refund id")
	}
	if refundForm["amount"] != "1025" {
		t.Fatalf("expected partial amount in minor units, got %s", refundForm["amount"])
	}
	if refundForm["payment_intent"] != "pi_test_1" {
		t.Fatal("expected payment intent on the refund request")
	}
}

func TestStripeCancelPayment(t *testing.T) {
	status := http.StatusOK
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/checkout/sessions/cs_test_1/expire" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"id":"cs_test_1","status":"expired"}`))
	}))
	defer server.Close()

	stripe := NewStripeProvider(StripeConfig{SecretKey: "sk_test", APIBaseURL: server.URL})

	canceled, err := stripe.CancelPayment(context.Background(), "cs_test_1")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !canceled {
		t.Fatal("expected open session to be expired")
	}

	// A session that already completed cannot be expired; stripe answers 400.
	status = http.StatusBadRequest
	canceled, err = stripe.CancelPayment(context.Background(), "cs_test_1")
	if err != nil {
		t.Fatalf("cancel completed session: %v", err)
	}
	if canceled {
		t.Fatal("expected completed session cancel to be refused")
	}

	status = http.StatusInternalServerError
	if _, err := stripe.CancelPayment(context.Background(), "cs_test_1"); err == nil {
		t.Fatal("expected server failure to surface as an error")
	}
}

func TestStripeParseWebhookEvent(t *testing.T) {
	stripe := NewStripeProvider(StripeConfig{SecretKey: "sk_test", WebhookSecret: "whsec_test"})

	payload := []byte(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_test_1", "metadata": {"payment_id": "pay-1"}}}
	}`)

	event, err := stripe.ParseWebhookEvent(context.Background(), payload)
	if err != nil {
		t.Fatalf("parse event: %v", err)
	}
	if event.Action != ActionSucceed {
		t.Fatalf("expected succeed action, got %s", event.Action)
	}
	if event.PaymentID != "pay-1" {
		t.Fatalf("expected payment id from metadata, got %s", event.PaymentID)
	}
	if event.ProviderEventID == nil || *event.ProviderEventID != "evt_1" {
		t.Fatal("expected provider event id")
	}

	unknown, err := stripe.ParseWebhookEvent(context.Background(), []byte(`{"id":"evt_2","type":"product.created"}`))
	if err != nil {
		t.Fatalf("parse unknown event: %v", err)
	}
	if unknown.Action != ActionNone {
		t.Fatalf("expected no action for unknown event, got %s", unknown.Action)
	}
}

func TestStripeVerifyWebhookSignature(t *testing.T) {
	stripe := NewStripeProvider(StripeConfig{SecretKey: "sk_test", WebhookSecret: "whsec_test"})
	payload := []byte(`{"id":"evt_1"}`)

	codec := signature.NewCodec(0)
	if !stripe.VerifyWebhookSignature(payload, codec.Sign("whsec_test", payload)) {
		t.Fatal("expected valid signature to verify")
	}
	if stripe.VerifyWebhookSignature(payload, codec.Sign("whsec_other", payload)) {
		t.Fatal("expected signature from wrong secret to fail")
	}
}
