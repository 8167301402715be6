package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func signBody(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignature(t *testing.T) {
	secret := "wh-secret"
	body := []byte(`{"meta":{"event_name":"order_created"}}`)

	tests := []struct {
		name      string
		payload   []byte
		signature string
		secret    string
		want      bool
	}{
		{"valid signature", body, signBody(body, secret), secret, true},
		{"unrelated hex", body, "abcdef", secret, false},
		{"tampered body", []byte(`{"meta":{"event_name":"order_created","x":1}}`), signBody(body, secret), secret, false},
		{"wrong secret", body, signBody(body, "other"), secret, false},
		{"empty signature", body, "", secret, false},
		{"empty secret", body, signBody(body, secret), "", false},
		{"empty body", nil, signBody(body, secret), secret, false},
		{"non hex signature", body, "not-hex!", secret, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := VerifyWebhookSignature(tt.payload, tt.signature, tt.secret)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVerifyWebhookSignatureCaseInsensitiveHex(t *testing.T) {
	secret := "wh-secret"
	body := []byte(`{"meta":{"event_name":"order_created"}}`)
	upper := strings.ToUpper(signBody(body, secret))

	assert.True(t, VerifyWebhookSignature(body, upper, secret))
}
