// Package cryptox holds the signature primitives: BIP-340 Schnorr
// verification over secp256k1 on the server, and deterministic key
// derivation plus signing on the client.
package cryptox

import (
	"crypto/sha256"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/dmitrijs2005/gophauth/internal/hexx"
)

const (
	xOnlyKeyLen      = 32
	compressedKeyLen = 33
	signatureLen     = 64
)

// Verifier checks a signature over message made by the holder of pubKeyHex.
//
// Implementations never return an error: malformed keys, malformed
// signatures and failed verification all yield false.
type Verifier interface {
	Verify(pubKeyHex string, message []byte, signatureHex string) bool
}

// SchnorrVerifier verifies BIP-340 signatures over SHA-256(message).
type SchnorrVerifier struct{}

// Verify accepts an x-only (64 hex chars) or compressed (66 hex chars,
// 02/03 prefix) public key. The parity prefix is dropped before
// verification because x-only keys carry no parity.
func (SchnorrVerifier) Verify(pubKeyHex string, message []byte, signatureHex string) bool {
	xOnly, ok := parseXOnly(pubKeyHex)
	if !ok {
		return false
	}

	pub, err := schnorr.ParsePubKey(xOnly)
	if err != nil {
		return false
	}

	sigBytes, err := hexx.DecodeLen(signatureHex, signatureLen)
	if err != nil {
		return false
	}
	sig, err := schnorr.ParseSignature(sigBytes)
	if err != nil {
		return false
	}

	hash := sha256.Sum256(message)
	return sig.Verify(hash[:], pub)
}

// NormalizePubKey returns the lowercase x-only form of an x-only or
// compressed key, so both spellings of one key compare equal. Keys it
// cannot parse are returned unchanged.
func NormalizePubKey(pubKeyHex string) string {
	xOnly, ok := parseXOnly(pubKeyHex)
	if !ok {
		return pubKeyHex
	}
	return hexx.Encode(xOnly)
}

func parseXOnly(pubKeyHex string) ([]byte, bool) {
	switch len(pubKeyHex) {
	case xOnlyKeyLen * 2:
		b, err := hexx.DecodeLen(pubKeyHex, xOnlyKeyLen)
		return b, err == nil
	case compressedKeyLen * 2:
		b, err := hexx.DecodeLen(pubKeyHex, compressedKeyLen)
		if err != nil {
			return nil, false
		}
		if b[0] != 0x02 && b[0] != 0x03 {
			return nil, false
		}
		return b[1:], true
	default:
		return nil, false
	}
}

// InsecureVerifier accepts every signature. It exists for test harnesses
// and is only reachable through NewVerifier with allowInsecure set.
type InsecureVerifier struct{}

func (InsecureVerifier) Verify(string, []byte, string) bool { return true }

// NewVerifier returns the verifier selected at process start. The flag must
// come from static configuration, never from request data.
func NewVerifier(allowInsecure bool) Verifier {
	if allowInsecure {
		return InsecureVerifier{}
	}
	return SchnorrVerifier{}
}
