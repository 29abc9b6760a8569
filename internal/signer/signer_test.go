package signer

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/cloudflare/circl/sign/ed25519"
)

func randomHexSeed(t *testing.T) string {
	t.Helper()
	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}
	return hex.EncodeToString(seed)
}

func TestNewFromHexSeed(t *testing.T) {
	t.Parallel()
	s, err := New(randomHexSeed(t), "test-token")
	if err != nil {
		t.Fatalf("New() = %v, want nil", err)
	}
	if s.PublicKey() == "" {
		t.Error("PublicKey() is empty")
	}
}

func TestAuthHeadersIsBearerToken(t *testing.T) {
	t.Parallel()
	s, err := New(randomHexSeed(t), "test-token")
	if err != nil {
		t.Fatalf("New() = %v", err)
	}

	h := s.AuthHeaders()
	if h["Authorization"] != "Bearer test-token" {
		t.Errorf(`Authorization = %q, want "Bearer test-token"`, h["Authorization"])
	}
}

func TestSignBodyIncludesAllFields(t *testing.T) {
	t.Parallel()
	s, err := New(randomHexSeed(t), "test-token")
	if err != nil {
		t.Fatalf("New() = %v", err)
	}

	h := s.SignBody(`{"symbol":"BTC-PERP"}`)

	for _, key := range []string{"x-request-sign-version", "x-request-id", "x-request-timestamp", "x-request-signature"} {
		if h[key] == "" {
			t.Errorf("header %s is empty", key)
		}
	}
	if h["x-request-sign-version"] != "v1" {
		t.Errorf("x-request-sign-version = %q, want v1", h["x-request-sign-version"])
	}
}

func TestSignBodyOmittedWithoutSecret(t *testing.T) {
	t.Parallel()
	s, err := New("", "test-token")
	if err != nil {
		t.Fatalf("New() = %v", err)
	}

	h := s.SignBody("payload")
	if len(h) != 0 {
		t.Errorf("SignBody() with no secret = %v, want empty map", h)
	}
}

func TestFullHeadersMergesAuthSignAndContentType(t *testing.T) {
	t.Parallel()
	s, err := New(randomHexSeed(t), "test-token")
	if err != nil {
		t.Fatalf("New() = %v", err)
	}

	h := s.FullHeaders(`{"symbol":"BTC-PERP"}`)
	if h["Authorization"] != "Bearer test-token" {
		t.Errorf("Authorization = %q, want Bearer test-token", h["Authorization"])
	}
	if h["Content-Type"] != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", h["Content-Type"])
	}
	if h["x-request-signature"] == "" {
		t.Error("x-request-signature is empty")
	}
}

func TestSignBodyRequestIDsDiffer(t *testing.T) {
	t.Parallel()
	s, err := New(randomHexSeed(t), "test-token")
	if err != nil {
		t.Fatalf("New() = %v", err)
	}

	h1 := s.SignBody("")
	h2 := s.SignBody("")

	if h1["x-request-id"] == h2["x-request-id"] {
		t.Error("two calls to SignBody produced the same request id")
	}
	if h1["x-request-signature"] == h2["x-request-signature"] {
		return
	}
	t.Error("signatures should differ across requests with different ids/timestamps")
}

func TestCanonicalStringIsVersionIDTimestampPayload(t *testing.T) {
	t.Parallel()
	s, err := New(randomHexSeed(t), "test-token")
	if err != nil {
		t.Fatalf("New() = %v", err)
	}

	h := s.SignBody("payload-body")
	canonical := "v1," + h["x-request-id"] + "," + h["x-request-timestamp"] + ",payload-body"
	parts := strings.SplitN(canonical, ",", 4)
	if len(parts) != 4 || parts[0] != "v1" || parts[3] != "payload-body" {
		t.Errorf("canonical string shape unexpected: %v", parts)
	}

	pub, err := base64.StdEncoding.DecodeString(s.PublicKey())
	if err != nil {
		t.Fatalf("decode public key: %v", err)
	}
	sig, err := base64.StdEncoding.DecodeString(h["x-request-signature"])
	if err != nil {
		t.Fatalf("decode signature: %v", err)
	}
	if !ed25519.Verify(ed25519.PublicKey(pub), []byte(canonical), sig) {
		t.Error("signature does not verify over v1,<id>,<ts>,<payload>")
	}
}

func TestInvalidPrivateKeyRejected(t *testing.T) {
	t.Parallel()
	if _, err := New("not-a-valid-key!!", "test-token"); err == nil {
		t.Error("New() with garbage key = nil error, want error")
	}
}
