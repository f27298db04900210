package signature

import (
	"fmt"
	"testing"
	"time"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	codec := NewCodec(0)
	payload := []byte(`{"event":"payment.succeeded","payment_id":"pay_1"}`)

	header := codec.Sign("whsec_test", payload)
	if !codec.Verify("whsec_test", payload, header) {
		t.Fatal("expected freshly signed payload to verify")
	}
	if codec.Verify("whsec_other", payload, header) {
		t.Fatal("expected verification with a different secret to fail")
	}
	if codec.Verify("whsec_test", []byte(`{"event":"tampered"}`), header) {
		t.Fatal("expected verification of a tampered payload to fail")
	}
}

func TestVerifyRejectsOutsideReplayWindow(t *testing.T) {
	codec := NewCodec(300 * time.Second)
	payload := []byte(`{"id":"evt_1"}`)

	signedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	codec.now = func() time.Time { return signedAt }
	header := codec.Sign("whsec_test", payload)

	codec.now = func() time.Time { return signedAt.Add(299 * time.Second) }
	if !codec.Verify("whsec_test", payload, header) {
		t.Fatal("expected signature inside the window to verify")
	}

	codec.now = func() time.Time { return signedAt.Add(301 * time.Second) }
	if codec.Verify("whsec_test", payload, header) {
		t.Fatal("expected signature older than the window to fail")
	}

	// A timestamp from the future is just as invalid.
	codec.now = func() time.Time { return signedAt.Add(-301 * time.Second) }
	if codec.Verify("whsec_test", payload, header) {
		t.Fatal("expected signature from the future to fail")
	}
}

func TestVerifyRejectsMalformedHeaders(t *testing.T) {
	codec := NewCodec(0)
	payload := []byte(`{"id":"evt_1"}`)
	ts := time.Now().Unix()

	headers := []string{
		"",
		"garbage",
		"t=,v1=",
		fmt.Sprintf("t=%d", ts),
		"v1=deadbeef",
		fmt.Sprintf("t=notanumber,v1=%064d", 0),
		fmt.Sprintf("t=%d,v1=nothex", ts),
	}
	for _, header := range headers {
		if codec.Verify("whsec_test", payload, header) {
			t.Fatalf("expected malformed header %q to fail verification", header)
		}
	}
}

func TestVerifyAcceptsAnyMatchingV1Entry(t *testing.T) {
	codec := NewCodec(0)
	payload := []byte(`{"id":"evt_1"}`)

	header := codec.Sign("whsec_test", payload)

	// Secret rotation sends two v1 entries; one valid entry is enough.
	stacked := header + ",v1=" + "00ba5eba11c0ffee00ba5eba11c0ffee00ba5eba11c0ffee00ba5eba11c0ffee"
	if !codec.Verify("whsec_test", payload, stacked) {
		t.Fatal("expected header with one valid v1 entry to verify")
	}
}
