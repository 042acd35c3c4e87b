package token

import (
	"crypto/hmac"
	"encoding/hex"
	"errors"
	"fmt"
)

const keySize = 32

// Keys holds the two independent 256-bit secrets the cipher needs: one for
// AES encryption, one for HMAC authentication. Both are loaded once at
// startup and shared read-only; they are never logged or regenerated.
type Keys struct {
	enc [keySize]byte
	mac [keySize]byte
}

var errKeysEqual = errors.New("encryption and mac keys must differ")

// LoadKeys decodes the two hex-encoded 256-bit keys supplied by the
// deployment environment. Malformed keys and equal keys are rejected;
// encryption and authentication must never share a secret.
func LoadKeys(encHex, macHex string) (Keys, error) {
	var k Keys
	if err := decodeKey(encHex, k.enc[:]); err != nil {
		return Keys{}, fmt.Errorf("encryption key: %w", err)
	}
	if err := decodeKey(macHex, k.mac[:]); err != nil {
		return Keys{}, fmt.Errorf("mac key: %w", err)
	}
	if hmac.Equal(k.enc[:], k.mac[:]) {
		return Keys{}, errKeysEqual
	}
	return k, nil
}

func decodeKey(s string, dst []byte) error {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("not valid hex: %w", err)
	}
	if len(raw) != keySize {
		return fmt.Errorf("expected %d bytes, got %d", keySize, len(raw))
	}
	copy(dst, raw)
	return nil
}
