package cryptox

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/dmitrijs2005/gophauth/internal/hexx"
	"golang.org/x/crypto/hkdf"
)

// KeyInfo is the HKDF info string binding derived keys to this protocol.
const KeyInfo = "gophauth/schnorr/v1"

// maxDeriveAttempts bounds rejection sampling; a 32-byte HKDF block falls
// outside [1, n-1] with probability about 2^-128.
const maxDeriveAttempts = 16

var ErrKeyDerivation = errors.New("unable to derive signing key")

// SigningKey is a client-side secp256k1 key. The server never sees one.
type SigningKey struct {
	priv *btcec.PrivateKey
}

// DeriveSigningKey deterministically derives a secp256k1 private key from
// secret material and a per-user salt using HKDF-SHA256. The same inputs
// always produce the same key, which lets a device re-create its key at
// login time from the salt returned by the server.
func DeriveSigningKey(secret, salt []byte) (*SigningKey, error) {
	r := hkdf.New(sha256.New, secret, salt, []byte(KeyInfo))

	buf := make([]byte, 32)
	for i := 0; i < maxDeriveAttempts; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrKeyDerivation, err)
		}
		var s btcec.ModNScalar
		if overflow := s.SetByteSlice(buf); overflow || s.IsZero() {
			continue
		}
		priv, _ := btcec.PrivKeyFromBytes(buf)
		return &SigningKey{priv: priv}, nil
	}
	return nil, ErrKeyDerivation
}

// GenerateSigningKey returns a random key. Used by tests and tooling.
func GenerateSigningKey() (*SigningKey, error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, err
	}
	return &SigningKey{priv: priv}, nil
}

// PublicKeyHex returns the 32-byte x-only public key, hex-encoded.
func (k *SigningKey) PublicKeyHex() string {
	return hexx.Encode(schnorr.SerializePubKey(k.priv.PubKey()))
}

// CompressedPublicKeyHex returns the 33-byte compressed public key, hex-encoded.
func (k *SigningKey) CompressedPublicKeyHex() string {
	return hexx.Encode(k.priv.PubKey().SerializeCompressed())
}

// Sign produces a hex-encoded BIP-340 signature over SHA-256(message).
func (k *SigningKey) Sign(message []byte) (string, error) {
	hash := sha256.Sum256(message)
	sig, err := schnorr.Sign(k.priv, hash[:])
	if err != nil {
		return "", err
	}
	return hexx.Encode(sig.Serialize()), nil
}

// Zero clears the private scalar.
func (k *SigningKey) Zero() {
	k.priv.Zero()
}
