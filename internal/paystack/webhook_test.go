package paystack

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"testing"
)

func sign(body []byte, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestValidateSignature_Valid(t *testing.T) {
	body := []byte(`{"event":"charge.success","data":{"reference":"DEP-abc-1","amount":10300,"status":"success"}}`)
	secret := "sk_test_secret"

	if !ValidateSignature(body, sign(body, secret), secret) {
		t.Fatal("expected valid signature to verify")
	}
}

func TestValidateSignature_TamperedBody(t *testing.T) {
	body := []byte(`{"event":"charge.success","data":{"amount":10300}}`)
	secret := "sk_test_secret"
	sig := sign(body, secret)

	tampered := []byte(`{"event":"charge.success","data":{"amount":999999}}`)
	if ValidateSignature(tampered, sig, secret) {
		t.Fatal("expected tampered body to fail verification")
	}
}

func TestValidateSignature_WrongSecret(t *testing.T) {
	body := []byte(`{"event":"charge.success"}`)
	if ValidateSignature(body, sign(body, "sk_live_other"), "sk_test_secret") {
		t.Fatal("expected signature under a different secret to fail")
	}
}

func TestValidateSignature_Empty(t *testing.T) {
	if ValidateSignature([]byte(`{}`), "", "sk_test_secret") {
		t.Fatal("expected empty signature to fail")
	}
}

func TestParseEvent(t *testing.T) {
	body := []byte(`{"event":"charge.success","data":{"reference":"DEP-abc-1","amount":10300,"status":"success"}}`)
	event, err := ParseEvent(body)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if event.Event != EventChargeSuccess {
		t.Fatalf("unexpected event: %s", event.Event)
	}
	if event.Data.Reference != "DEP-abc-1" || event.Data.Amount != 10300 {
		t.Fatalf("unexpected data: %+v", event.Data)
	}
}

func TestParseEvent_Garbage(t *testing.T) {
	if _, err := ParseEvent([]byte("not json")); err == nil {
		t.Fatal("expected parse error")
	}
}
