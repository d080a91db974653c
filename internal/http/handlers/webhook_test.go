package handlers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"dataspot/internal/paystack"

	"github.com/gin-gonic/gin"
)

func webhookRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := &Handler{WebhookSecret: secret}
	r := gin.New()
	r.POST("/paystack/webhook", h.PaystackWebhook)
	return r
}

func signBody(body []byte, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestPaystackWebhook_RejectsMissingSignature(t *testing.T) {
	r := webhookRouter("sk_test_secret")

	req := httptest.NewRequest(http.MethodPost, "/paystack/webhook",
		bytes.NewReader([]byte(`{"event":"charge.success"}`)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestPaystackWebhook_RejectsTamperedBody(t *testing.T) {
	r := webhookRouter("sk_test_secret")

	signed := []byte(`{"event":"charge.success","data":{"amount":10300}}`)
	sig := signBody(signed, "sk_test_secret")

	req := httptest.NewRequest(http.MethodPost, "/paystack/webhook",
		bytes.NewReader([]byte(`{"event":"charge.success","data":{"amount":999999}}`)))
	req.Header.Set(paystack.SignatureHeader, sig)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestPaystackWebhook_AcknowledgesOtherEvents(t *testing.T) {
	r := webhookRouter("sk_test_secret")

	body := []byte(`{"event":"transfer.success","data":{"reference":"TRF-1"}}`)
	req := httptest.NewRequest(http.MethodPost, "/paystack/webhook", bytes.NewReader(body))
	req.Header.Set(paystack.SignatureHeader, signBody(body, "sk_test_secret"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 ack, got %d", w.Code)
	}
}

func TestPaystackWebhook_RejectsGarbagePayload(t *testing.T) {
	r := webhookRouter("sk_test_secret")

	body := []byte("not json")
	req := httptest.NewRequest(http.MethodPost, "/paystack/webhook", bytes.NewReader(body))
	req.Header.Set(paystack.SignatureHeader, signBody(body, "sk_test_secret"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
