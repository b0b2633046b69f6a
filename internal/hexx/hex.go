// Package hexx converts between raw bytes and lowercase hex strings.
//
// Decode is strict: odd-length input or any non-hex character yields
// ErrFormat, so callers can treat every decoding failure the same way.
package hexx

import (
	"encoding/hex"
	"errors"
	"fmt"
)

// ErrFormat reports a malformed hex string.
var ErrFormat = errors.New("invalid hex format")

// Encode returns the lowercase hex representation of b.
func Encode(b []byte) string {
	return hex.EncodeToString(b)
}

// Decode parses a hex string. Both upper and lower case digits are accepted.
func Decode(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("%w: odd length %d", ErrFormat, len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return b, nil
}

// DecodeLen is Decode followed by an exact length check on the result.
func DecodeLen(s string, n int) ([]byte, error) {
	b, err := Decode(s)
	if err != nil {
		return nil, err
	}
	if len(b) != n {
		return nil, fmt.Errorf("%w: want %d bytes, got %d", ErrFormat, n, len(b))
	}
	return b, nil
}
