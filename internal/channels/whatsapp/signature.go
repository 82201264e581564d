package whatsapp

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"net/url"
	"sort"
	"strings"
)

// ValidateSignature checks a Twilio X-Twilio-Signature header against the
// request URL and POST form parameters. Twilio signs the full URL followed
// by every form key/value pair sorted by key, with HMAC-SHA1 over the auth
// token.
func ValidateSignature(authToken, signature, requestURL string, form url.Values) bool {
	if authToken == "" || signature == "" {
		return false
	}

	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var payload strings.Builder
	payload.WriteString(requestURL)
	for _, k := range keys {
		payload.WriteString(k)
		// Twilio signs only the first value of repeated keys
		if vs := form[k]; len(vs) > 0 {
			payload.WriteString(vs[0])
		}
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(payload.String()))
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}
