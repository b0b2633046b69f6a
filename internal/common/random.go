package common

import (
	"crypto/rand"
	"encoding/hex"
)

// RandomHex returns n random bytes as 2n hex characters. Challenges,
// salts and link tokens are all made this way.
func RandomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// RandomBytes panics if the system source fails, which crypto/rand
// documents as unrecoverable.
func RandomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

// Wipe zeroes secret material such as seeds and passphrases.
func Wipe(b []byte) {
	clear(b)
}
