package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Verifier authenticates webhook payloads signed with a shared secret.
// Verification runs over the exact raw request bytes; the body must be
// captured before any parsing or transformation.
type Verifier struct {
	secret []byte
}

// NewVerifier builds a Verifier over the provider's shared secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify checks a hex-encoded HMAC-SHA256 signature header against the raw
// body. It fails closed: a missing header, malformed encoding, or mismatch
// all yield false.
func (v *Verifier) Verify(body []byte, header string) bool {
	if len(v.secret) == 0 {
		return false
	}
	header = strings.TrimSpace(header)
	if header == "" {
		return false
	}
	provided, err := hex.DecodeString(header)
	if err != nil || len(provided) != sha256.Size {
		return false
	}
	return hmac.Equal(v.mac(body), provided)
}

// Sign produces the hex-encoded HMAC-SHA256 signature over a payload. Used
// for outbound requests to the payment provider and in tests.
func (v *Verifier) Sign(body []byte) string {
	return hex.EncodeToString(v.mac(body))
}

func (v *Verifier) mac(body []byte) []byte {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	return mac.Sum(nil)
}
