package meta

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ValidateSignature checks an X-Hub-Signature-256 header against the raw
// request body. Meta signs the body with HMAC-SHA256 over the app secret and
// sends "sha256=<hex>".
func ValidateSignature(appSecret, header string, body []byte) bool {
	if appSecret == "" || header == "" {
		return false
	}
	provided, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}
	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(provided)))
}
