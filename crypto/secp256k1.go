package crypto

import (
	"crypto/ecdsa"
	"errors"
	"math/big"

	gethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/availproject/nexus/core/types"
)

func bigFromBytes(b []byte) *big.Int { return new(big.Int).SetBytes(b) }

// GenerateKey generates a new secp256k1 private key.
func GenerateKey() (*ecdsa.PrivateKey, error) {
	return gethcrypto.GenerateKey()
}

// Sign calculates an ECDSA signature over a 32-byte hash, returning the
// 65-byte compact form [R || S || V] with V in {0, 1}.
func Sign(hash []byte, prv *ecdsa.PrivateKey) ([]byte, error) {
	if len(hash) != 32 {
		return nil, errors.New("hash must be 32 bytes")
	}
	return gethcrypto.Sign(hash, prv)
}

// Ecrecover recovers the uncompressed public key bytes from hash and
// a 65-byte compact signature.
func Ecrecover(hash, sig []byte) ([]byte, error) {
	return gethcrypto.Ecrecover(hash, sig)
}

// SigToPub recovers the public key from hash and a 65-byte compact signature.
func SigToPub(hash, sig []byte) (*ecdsa.PublicKey, error) {
	if len(sig) != 65 {
		return nil, errors.New("signature must be 65 bytes [R || S || V]")
	}
	if len(hash) != 32 {
		return nil, errors.New("hash must be 32 bytes")
	}
	return gethcrypto.SigToPub(hash, sig)
}

// ValidateSignatureValues checks r, s, v for validity: r, s must be in
// [1, n-1], and s must be in the lower half of the curve order (non-malleable).
func ValidateSignatureValues(v byte, r, s []byte) bool {
	return gethcrypto.ValidateSignatureValues(v, bigFromBytes(r), bigFromBytes(s), true)
}

// PubkeyToAddress derives the coordinator's Address from a public key:
// Keccak256(pubkey[1:])[12:].
func PubkeyToAddress(p ecdsa.PublicKey) types.Address {
	addr := gethcrypto.PubkeyToAddress(p)
	return types.BytesToAddress(addr[:])
}

// FromECDSAPub marshals a public key to 65-byte uncompressed format.
func FromECDSAPub(pub *ecdsa.PublicKey) []byte {
	return gethcrypto.FromECDSAPub(pub)
}
