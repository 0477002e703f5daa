package node

import (
	"crypto/ecdsa"

	"github.com/mosaicnetworks/ledgerpool/src/crypto/keys"
	"github.com/mosaicnetworks/ledgerpool/src/net"
)

//Validator struct holds information about the key a node signs with
type Validator struct {
	Key     *ecdsa.PrivateKey
	Moniker string

	id       uint32
	pubBytes []byte
	pubHex   string
}

//NewValidator is a factory method for a Validator
func NewValidator(key *ecdsa.PrivateKey, moniker string) *Validator {
	v := &Validator{
		Key:     key,
		Moniker: moniker,
	}
	v.pubBytes = keys.FromPublicKey(&key.PublicKey)
	v.pubHex = keys.PublicKeyHex(&key.PublicKey)
	v.id = keys.PublicKeyID(v.pubBytes)
	return v
}

//ID returns an ID for the validator
func (v *Validator) ID() uint32 {
	return v.id
}

//PublicKeyBytes returns the validator's public key as a byte array
func (v *Validator) PublicKeyBytes() []byte {
	return v.pubBytes
}

//PublicKeyHex returns the validator's public key as a hex string
func (v *Validator) PublicKeyHex() string {
	return v.pubHex
}

// SignStatus fills in the signature of a StatusResponse.
func (v *Validator) SignStatus(resp *net.StatusResponse) error {
	digest, err := resp.Digest()
	if err != nil {
		return err
	}
	sig, err := keys.SignDigest(v.Key, digest)
	if err != nil {
		return err
	}
	resp.Signature = sig
	return nil
}
