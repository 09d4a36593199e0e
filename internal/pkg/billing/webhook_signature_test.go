package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"
)

func signPayload(payload []byte, secret string, ts int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifyWebhookSignature_Valid(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	header := signPayload(payload, "whsec_test", time.Now().Unix())

	if !VerifyWebhookSignature(payload, header, "whsec_test") {
		t.Fatalf("expected valid signature to verify")
	}
}

func TestVerifyWebhookSignature_WrongSecret(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	header := signPayload(payload, "whsec_other", time.Now().Unix())

	if VerifyWebhookSignature(payload, header, "whsec_test") {
		t.Fatalf("expected wrong-secret signature to fail")
	}
}

func TestVerifyWebhookSignature_TamperedPayload(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	header := signPayload(payload, "whsec_test", time.Now().Unix())

	if VerifyWebhookSignature([]byte(`{"id":"evt_2"}`), header, "whsec_test") {
		t.Fatalf("expected tampered payload to fail verification")
	}
}

func TestVerifyWebhookSignature_ExpiredTimestamp(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	header := signPayload(payload, "whsec_test", time.Now().Add(-10*time.Minute).Unix())

	if VerifyWebhookSignature(payload, header, "whsec_test") {
		t.Fatalf("expected expired timestamp to fail verification")
	}
}

func TestVerifyWebhookSignature_SecondSchemeAccepted(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	header := signPayload(payload, "whsec_test", time.Now().Unix()) +
		",v1=" + hex.EncodeToString(make([]byte, 32))

	if !VerifyWebhookSignature(payload, header, "whsec_test") {
		t.Fatalf("expected header with one valid v1 entry to verify")
	}
}

func TestVerifyWebhookSignature_MissingPieces(t *testing.T) {
	payload := []byte(`{}`)
	valid := signPayload(payload, "whsec_test", time.Now().Unix())

	tests := []struct {
		name   string
		header string
		secret string
	}{
		{name: "empty header", header: "", secret: "whsec_test"},
		{name: "timestamp only", header: "t=123", secret: "whsec_test"},
		{name: "signature only", header: "v1=deadbeef", secret: "whsec_test"},
		{name: "empty secret", header: valid, secret: ""},
	}
	for _, tt := range tests {
		if VerifyWebhookSignature(payload, tt.header, tt.secret) {
			t.Fatalf("%s: expected verification to fail", tt.name)
		}
	}
}
