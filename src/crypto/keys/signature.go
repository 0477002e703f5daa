package keys

import (
	"crypto/ecdsa"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// ErrBadSignature is returned by VerifyDigest when a signature does not match.
var ErrBadSignature = errors.New("signature verification failed")

// Sign signs the data with the private key and the built-in pseudo-random
// generator rand.Reader.
func Sign(priv *ecdsa.PrivateKey, data []byte) (r, s *big.Int, err error) {
	return ecdsa.Sign(rand.Reader, priv, data)
}

// Verify verifies that a signature represented by r and s values, is a valid
// signature of the data by an owner of the private key associated with the
// provided public key.
func Verify(pub *ecdsa.PublicKey, data []byte, r, s *big.Int) bool {
	return ecdsa.Verify(pub, data, r, s)
}

// EncodeSignature returns a string representation of a signature.
func EncodeSignature(r, s *big.Int) string {
	return fmt.Sprintf("%s|%s", r.Text(36), s.Text(36))
}

// DecodeSignature parses a string representation of a signature as produced by
// EncodeSignature.
func DecodeSignature(sig string) (r, s *big.Int, err error) {
	values := strings.Split(sig, "|")
	if len(values) != 2 {
		return r, s, fmt.Errorf("wrong number of values in signature: got %d, want 2", len(values))
	}
	var ok bool
	if r, ok = new(big.Int).SetString(values[0], 36); !ok {
		return nil, nil, fmt.Errorf("malformed signature component %q", values[0])
	}
	if s, ok = new(big.Int).SetString(values[1], 36); !ok {
		return nil, nil, fmt.Errorf("malformed signature component %q", values[1])
	}
	return r, s, nil
}

// SignDigest signs a digest and returns the encoded signature.
func SignDigest(priv *ecdsa.PrivateKey, digest []byte) (string, error) {
	r, s, err := Sign(priv, digest)
	if err != nil {
		return "", err
	}
	return EncodeSignature(r, s), nil
}

// VerifyDigest checks an encoded signature of digest against the hex public
// key of the expected signer.
func VerifyDigest(pubHex string, digest []byte, sig string) error {
	pub, err := ParsePublicKeyHex(pubHex)
	if err != nil {
		return err
	}
	r, s, err := DecodeSignature(sig)
	if err != nil {
		return err
	}
	if !Verify(pub, digest, r, s) {
		return ErrBadSignature
	}
	return nil
}
