// Package cryptox implements the key-wrapping envelope consumed by the
// release engine. The symmetric vault key (optionally bundled with the
// concealed beneficiary address) is sealed to the engine's public key with an
// anonymous NaCl box and stored base64-encoded in the trust record.
package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mkarpenko/keywarden/internal/common"
	"golang.org/x/crypto/nacl/box"
)

// KeyPair holds the engine's envelope keys, base64-encoded.
type KeyPair struct {
	PublicKey  string
	PrivateKey string
}

// Payload is the decrypted content of an envelope. Key is the symmetric vault
// key; Recipient optionally conceals the beneficiary address inside the
// envelope so it never appears in a plaintext column.
type Payload struct {
	Key       string `json:"k"`
	Recipient string `json:"t,omitempty"`
}

// GenerateKeyPair creates a fresh envelope key pair.
func GenerateKeyPair() (*KeyPair, error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &KeyPair{
		PublicKey:  base64.StdEncoding.EncodeToString(pub[:]),
		PrivateKey: base64.StdEncoding.EncodeToString(priv[:]),
	}, nil
}

// Wrap seals plaintext to the given public key and returns the base64
// envelope. Used by provisioning and by tests; the watchdog itself only ever
// unwraps.
func Wrap(plaintext []byte, publicKey string) (string, error) {
	pub, err := decodeKey(publicKey)
	if err != nil {
		return "", err
	}
	sealed, err := box.SealAnonymous(nil, plaintext, pub, rand.Reader)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Unwrap opens a base64 envelope with the engine's key pair and returns the
// raw payload bytes. Any failure (bad base64, truncated box, key mismatch)
// wraps common.ErrEnvelopeDecrypt.
func Unwrap(envelope, publicKey, privateKey string) ([]byte, error) {
	pub, err := decodeKey(publicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrEnvelopeDecrypt, err)
	}
	priv, err := decodeKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrEnvelopeDecrypt, err)
	}
	sealed, err := base64.StdEncoding.DecodeString(strings.TrimSpace(envelope))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64: %v", common.ErrEnvelopeDecrypt, err)
	}
	plaintext, ok := box.OpenAnonymous(nil, sealed, pub, priv)
	if !ok {
		return nil, fmt.Errorf("%w: box open failed", common.ErrEnvelopeDecrypt)
	}
	return plaintext, nil
}

// ParsePayload decodes an unwrapped envelope payload. The modern form is a
// JSON object {"k": key, "t": recipient}; the legacy form is the raw
// symmetric key string with no concealed recipient.
func ParsePayload(raw []byte) (*Payload, error) {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "{") {
		var p Payload
		if err := json.Unmarshal([]byte(trimmed), &p); err != nil {
			return nil, fmt.Errorf("%w: invalid payload json: %v", common.ErrEnvelopeDecrypt, err)
		}
		if p.Key == "" {
			return nil, fmt.Errorf("%w: payload missing key", common.ErrEnvelopeDecrypt)
		}
		return &p, nil
	}
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty payload", common.ErrEnvelopeDecrypt)
	}
	return &Payload{Key: trimmed}, nil
}

func decodeKey(s string) (*[32]byte, error) {
	b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("invalid key encoding: %w", err)
	}
	if len(b) != 32 {
		return nil, fmt.Errorf("invalid key length %d", len(b))
	}
	var k [32]byte
	copy(k[:], b)
	return &k, nil
}
