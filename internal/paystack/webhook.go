package paystack

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
)

// SignatureHeader is the header Paystack signs webhook deliveries with.
const SignatureHeader = "x-paystack-signature"

// EventChargeSuccess is the only webhook event that triggers reconciliation.
const EventChargeSuccess = "charge.success"

// WebhookEvent is an inbound webhook payload.
type WebhookEvent struct {
	Event string     `json:"event"`
	Data  VerifyData `json:"data"`
}

// ValidateSignature checks the HMAC-SHA512 signature over the raw request
// body. The payload must not be trusted until this returns true.
func ValidateSignature(body []byte, signature, secret string) bool {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// ParseEvent decodes a webhook body. Call ValidateSignature first.
func ParseEvent(body []byte) (*WebhookEvent, error) {
	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
