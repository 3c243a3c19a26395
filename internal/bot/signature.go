package bot

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// ValidateSignature checks the platform signature over the exact raw
// request body: HMAC-SHA256 keyed by the channel secret, base64 encoded,
// compared in constant time. The body must be the untouched wire bytes;
// hashing a re-serialized form breaks verification. Missing inputs fail
// closed.
func ValidateSignature(rawBody []byte, signature, secret string) bool {
	if len(rawBody) == 0 || signature == "" || secret == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
