// Package token implements the tamper-evident encoding of a ticket's
// identity into a scannable code: AES-256-CBC for confidentiality, then
// HMAC-SHA256 over IV and ciphertext for authenticity (encrypt-then-MAC,
// so tampered ciphertext is rejected before any decryption or padding
// handling takes place). The wire form is base64url(IV | ciphertext | MAC)
// with padding characters stripped.
package token

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cmirandac/gatepass/internal/clock"
)

const (
	ivSize  = aes.BlockSize
	macSize = sha256.Size

	// minTokenSize is IV plus one cipher block plus the MAC; anything
	// shorter cannot be a well-formed token.
	minTokenSize = ivSize + aes.BlockSize + macSize

	formatVersion = "2"
)

// Decode failures all match ErrInvalidToken via errors.Is. The distinct
// kinds exist for logging and for the gate's alert classification; callers
// outside the core should not branch on them.
var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenMalformed = fmt.Errorf("%w: malformed", ErrInvalidToken)
	ErrTokenTampered  = fmt.Errorf("%w: authentication failed", ErrInvalidToken)
	ErrTokenExpired   = fmt.Errorf("%w: expired", ErrInvalidToken)
)

// Payload is what a ticket token carries.
type Payload struct {
	TicketID  string    `json:"uuid"`
	Serial    int64     `json:"id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Version   string    `json:"version"`
}

// Cipher encodes and decodes ticket tokens. It is safe for concurrent use;
// the only state is the two immutable keys and a clock.
type Cipher struct {
	keys  Keys
	clock clock.Clock
}

func NewCipher(keys Keys, clk clock.Clock) *Cipher {
	return &Cipher{keys: keys, clock: clk}
}

// Encode produces a fresh token for the given ticket identity, valid for the
// given duration. Every call draws a new random IV; two encodings of the same
// identity never share ciphertext structure.
func (c *Cipher) Encode(ticketID string, serial int64, validity time.Duration) (string, error) {
	if validity <= 0 {
		return "", fmt.Errorf("validity must be positive, got %s", validity)
	}

	now := c.clock.Now()
	payload := Payload{
		TicketID:  ticketID,
		Serial:    serial,
		IssuedAt:  now,
		ExpiresAt: now.Add(validity),
		Version:   formatVersion,
	}
	plaintext, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	plaintext = padPKCS7(plaintext, aes.BlockSize)

	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("generate iv: %w", err)
	}

	block, err := aes.NewCipher(c.keys.enc[:])
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}
	ciphertext := make([]byte, len(plaintext))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, plaintext)

	out := make([]byte, 0, ivSize+len(ciphertext)+macSize)
	out = append(out, iv...)
	out = append(out, ciphertext...)
	out = append(out, c.mac(out)...)

	return base64.RawURLEncoding.EncodeToString(out), nil
}

// Decode verifies and opens a token. The MAC is checked in constant time
// before any decryption; structurally broken input, a failed MAC, bad
// padding after decryption and an expired payload are each distinct error
// kinds, all matching ErrInvalidToken.
func (c *Cipher) Decode(tok string) (Payload, error) {
	raw, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil {
		return Payload{}, ErrTokenMalformed
	}
	if len(raw) < minTokenSize || (len(raw)-macSize-ivSize)%aes.BlockSize != 0 {
		return Payload{}, ErrTokenMalformed
	}

	body, tag := raw[:len(raw)-macSize], raw[len(raw)-macSize:]
	if !hmac.Equal(c.mac(body), tag) {
		return Payload{}, ErrTokenTampered
	}

	block, err := aes.NewCipher(c.keys.enc[:])
	if err != nil {
		return Payload{}, fmt.Errorf("init cipher: %w", err)
	}
	plaintext := make([]byte, len(body)-ivSize)
	cipher.NewCBCDecrypter(block, body[:ivSize]).CryptBlocks(plaintext, body[ivSize:])

	plaintext, err = unpadPKCS7(plaintext, aes.BlockSize)
	if err != nil {
		return Payload{}, ErrTokenMalformed
	}

	var payload Payload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return Payload{}, ErrTokenMalformed
	}
	if payload.TicketID == "" || payload.ExpiresAt.IsZero() {
		return Payload{}, ErrTokenMalformed
	}
	if c.clock.Now().After(payload.ExpiresAt) {
		return Payload{}, ErrTokenExpired
	}
	return payload, nil
}

func (c *Cipher) mac(data []byte) []byte {
	h := hmac.New(sha256.New, c.keys.mac[:])
	h.Write(data)
	return h.Sum(nil)
}

func padPKCS7(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+n)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(n)
	}
	return padded
}

func unpadPKCS7(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("bad length")
	}
	n := int(data[len(data)-1])
	if n < 1 || n > blockSize {
		return nil, errors.New("bad padding")
	}
	for i := len(data) - n; i < len(data); i++ {
		if data[i] != byte(n) {
			return nil, errors.New("bad padding")
		}
	}
	return data[:len(data)-n], nil
}
