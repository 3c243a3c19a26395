package bot

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"testing"
)

func sign(t *testing.T, body []byte, secret string) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestValidateSignature(t *testing.T) {
	secret := "channel-secret"
	body := []byte(`{"destination":"d","events":[]}`)
	signature := sign(t, body, secret)

	if !ValidateSignature(body, signature, secret) {
		t.Fatal("expected valid signature to pass")
	}
	if ValidateSignature(body, signature, "other-secret") {
		t.Fatal("expected wrong secret to fail")
	}
	if ValidateSignature(body, sign(t, []byte("other body"), secret), secret) {
		t.Fatal("expected signature over different body to fail")
	}

	tampered := append([]byte{}, body...)
	tampered[0] ^= 0x01
	if ValidateSignature(tampered, signature, secret) {
		t.Fatal("expected tampered body to fail")
	}
}

func TestValidateSignatureRequiresExactBytes(t *testing.T) {
	secret := "channel-secret"
	body := []byte(`{"destination":"d",  "events": []}`)
	signature := sign(t, body, secret)

	// Re-serializing the parsed body changes whitespace and key layout;
	// the signature only matches the original wire bytes.
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	reserialized, err := json.Marshal(decoded)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	if !ValidateSignature(body, signature, secret) {
		t.Fatal("expected original bytes to pass")
	}
	if ValidateSignature(reserialized, signature, secret) {
		t.Fatal("expected re-serialized body to fail")
	}
}

func TestValidateSignatureFailsClosed(t *testing.T) {
	secret := "channel-secret"
	body := []byte(`{}`)

	if ValidateSignature(nil, sign(t, body, secret), secret) {
		t.Fatal("expected empty body to fail")
	}
	if ValidateSignature(body, "", secret) {
		t.Fatal("expected empty signature to fail")
	}
	if ValidateSignature(body, sign(t, body, secret), "") {
		t.Fatal("expected empty secret to fail")
	}
	if ValidateSignature(body, "not base64!!", secret) {
		t.Fatal("expected garbage signature to fail")
	}
}
