package signature

import (
	"strings"
	"testing"
)

func TestVerifyAcceptsOwnSignature(t *testing.T) {
	v := NewVerifier("shared-secret")
	body := []byte(`{"order_id":"ORD-1-ABC"}`)

	if !v.Verify(body, v.Sign(body)) {
		t.Fatal("expected signature over identical body to verify")
	}
}

func TestVerifyRejectsTamperedBody(t *testing.T) {
	v := NewVerifier("shared-secret")
	body := []byte(`{"order_id":"ORD-1-ABC","amount":29.99}`)
	sig := v.Sign(body)

	tampered := []byte(`{"order_id":"ORD-1-ABC","amount":0.01}`)
	if v.Verify(tampered, sig) {
		t.Fatal("expected tampered body to fail verification")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	body := []byte(`payload`)
	sig := NewVerifier("other-secret").Sign(body)

	if NewVerifier("shared-secret").Verify(body, sig) {
		t.Fatal("expected signature minted with a different secret to fail")
	}
}

func TestVerifyFailsClosed(t *testing.T) {
	v := NewVerifier("shared-secret")
	body := []byte(`payload`)

	cases := map[string]string{
		"missing header":   "",
		"whitespace":       "   ",
		"not hex":          "zzzz",
		"truncated digest": v.Sign(body)[:16],
		"overlong digest":  v.Sign(body) + "00",
	}
	for name, header := range cases {
		if v.Verify(body, header) {
			t.Fatalf("%s: expected verification to fail", name)
		}
	}
}

func TestVerifyToleratesHeaderWhitespace(t *testing.T) {
	v := NewVerifier("shared-secret")
	body := []byte(`payload`)

	if !v.Verify(body, "  "+v.Sign(body)+"\n") {
		t.Fatal("expected surrounding whitespace to be trimmed")
	}
}

func TestVerifyRejectsEverythingWithoutSecret(t *testing.T) {
	v := NewVerifier("")
	body := []byte(`payload`)

	if v.Verify(body, v.Sign(body)) {
		t.Fatal("expected empty secret to reject all signatures")
	}
}

func TestSignIsLowercaseHex(t *testing.T) {
	sig := NewVerifier("shared-secret").Sign([]byte(`payload`))
	if len(sig) != 64 {
		t.Fatalf("expected 64 hex characters, got %d", len(sig))
	}
	if sig != strings.ToLower(sig) {
		t.Fatalf("expected lowercase encoding, got %q", sig)
	}
}
