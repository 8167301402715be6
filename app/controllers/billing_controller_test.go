package controllers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signWebhookBody(t *testing.T, body []byte, secret string) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func newWebhookTestApp() *fiber.App {
	app := fiber.New()
	app.Post("/webhooks/lemonsqueezy", HandleLemonSqueezyWebhook)
	return app
}

func TestWebhookRejectsWhenSecretMissing(t *testing.T) {
	t.Setenv("LEMONSQUEEZY_WEBHOOK_SECRET", "")
	app := newWebhookTestApp()

	req := httptest.NewRequest("POST", "/webhooks/lemonsqueezy", strings.NewReader(`{}`))
	req.Header.Set("X-Signature", "deadbeef")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}

func TestWebhookRejectsMissingSignature(t *testing.T) {
	t.Setenv("LEMONSQUEEZY_WEBHOOK_SECRET", "whsec")
	app := newWebhookTestApp()

	req := httptest.NewRequest("POST", "/webhooks/lemonsqueezy", strings.NewReader(`{}`))

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestWebhookRejectsEmptyBody(t *testing.T) {
	t.Setenv("LEMONSQUEEZY_WEBHOOK_SECRET", "whsec")
	app := newWebhookTestApp()

	req := httptest.NewRequest("POST", "/webhooks/lemonsqueezy", nil)
	req.Header.Set("X-Signature", signWebhookBody(t, nil, "whsec"))

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	t.Setenv("LEMONSQUEEZY_WEBHOOK_SECRET", "whsec")
	app := newWebhookTestApp()

	body := `{"meta":{"event_name":"order_created","event_id":"evt-1"}}`
	req := httptest.NewRequest("POST", "/webhooks/lemonsqueezy", strings.NewReader(body))
	req.Header.Set("X-Signature", signWebhookBody(t, []byte(body), "other-secret"))

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestWebhookAcknowledgesUnparseablePayload(t *testing.T) {
	t.Setenv("LEMONSQUEEZY_WEBHOOK_SECRET", "whsec")
	app := newWebhookTestApp()

	body := `this is not json`
	req := httptest.NewRequest("POST", "/webhooks/lemonsqueezy", strings.NewReader(body))
	req.Header.Set("X-Signature", signWebhookBody(t, []byte(body), "whsec"))

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
