// Package signer derives request signatures for authenticated StandX
// REST and WebSocket calls. Every signed request carries a bearer token
// plus an Ed25519 signature over the canonical request string.
package signer

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/cloudflare/circl/sign/ed25519"
	"github.com/google/uuid"
	"github.com/mr-tron/base58"
)

const signVersion = "v1"

// Signer holds the bearer token and Ed25519 key pair used to authenticate
// trading requests.
type Signer struct {
	privateKey    ed25519.PrivateKey
	bearerToken   string
	walletAddress string
	chainLabel    string
}

// New derives a Signer from a base58- or hex-encoded Ed25519 private key.
// Base58 is tried first since that's the wallet export format; a decode
// failure or wrong byte length falls back to hex. The secret may be empty,
// in which case SignBody omits signature headers (placement then fails at
// the exchange; the core does not pre-check).
func New(rawKey, bearerToken string) (*Signer, error) {
	s := &Signer{bearerToken: bearerToken}
	if rawKey == "" {
		return s, nil
	}

	seed, err := decodeKey(rawKey)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}

	switch len(seed) {
	case ed25519.SeedSize:
		s.privateKey = ed25519.NewKeyFromSeed(seed)
	case ed25519.PrivateKeySize:
		s.privateKey = ed25519.PrivateKey(seed)
	default:
		return nil, fmt.Errorf("private key has %d bytes, want %d (seed) or %d (expanded)",
			len(seed), ed25519.SeedSize, ed25519.PrivateKeySize)
	}

	return s, nil
}

// WithWalletInfo attaches the wallet address and chain label the spec's
// credential record carries; neither is part of the signed headers.
func (s *Signer) WithWalletInfo(walletAddress, chainLabel string) *Signer {
	s.walletAddress = walletAddress
	s.chainLabel = chainLabel
	return s
}

func decodeKey(raw string) ([]byte, error) {
	if b, err := base58.Decode(raw); err == nil && (len(b) == ed25519.SeedSize || len(b) == ed25519.PrivateKeySize) {
		return b, nil
	}
	return hex.DecodeString(raw)
}

// AuthHeaders returns the bearer-auth header.
func (s *Signer) AuthHeaders() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + s.bearerToken,
	}
}

// SignBody returns the four request-signature headers for payload, the
// canonical request body as a JSON string. Returns an empty map if the
// secret is absent.
func (s *Signer) SignBody(payload string) map[string]string {
	if len(s.privateKey) == 0 {
		return map[string]string{}
	}

	id := uuid.NewString()
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	canonical := fmt.Sprintf("%s,%s,%s,%s", signVersion, id, ts, payload)
	sig := ed25519.Sign(s.privateKey, []byte(canonical))

	return map[string]string{
		"x-request-sign-version": signVersion,
		"x-request-id":           id,
		"x-request-timestamp":    ts,
		"x-request-signature":    base64.StdEncoding.EncodeToString(sig),
	}
}

// FullHeaders merges AuthHeaders, SignBody(payload), and Content-Type for
// one outbound REST request.
func (s *Signer) FullHeaders(payload string) map[string]string {
	headers := s.AuthHeaders()
	for k, v := range s.SignBody(payload) {
		headers[k] = v
	}
	headers["Content-Type"] = "application/json"
	return headers
}

// WSAuth is the authenticated subscribe payload for the depth feed's
// optional private channel.
type WSAuth struct {
	Authorization string `json:"authorization"`
	SignVersion   string `json:"x_request_sign_version,omitempty"`
	RequestID     string `json:"x_request_id,omitempty"`
	Timestamp     string `json:"x_request_timestamp,omitempty"`
	Signature     string `json:"x_request_signature,omitempty"`
}

// WSAuthPayload returns a freshly signed payload for a WebSocket
// authenticated subscribe message.
func (s *Signer) WSAuthPayload() WSAuth {
	sign := s.SignBody("")
	return WSAuth{
		Authorization: "Bearer " + s.bearerToken,
		SignVersion:   sign["x-request-sign-version"],
		RequestID:     sign["x-request-id"],
		Timestamp:     sign["x-request-timestamp"],
		Signature:     sign["x-request-signature"],
	}
}

// PublicKey returns the base64-encoded Ed25519 public key, useful for
// diagnostics and the status surface.
func (s *Signer) PublicKey() string {
	if len(s.privateKey) == 0 {
		return ""
	}
	pub := s.privateKey.Public().(ed25519.PublicKey)
	return base64.StdEncoding.EncodeToString(pub)
}
