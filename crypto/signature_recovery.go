// ECDSA signature recovery utilities for coordinator transaction signing.
//
// Provides compact signature representation (65 bytes: R || S || V),
// public key recovery from signatures, and signer address derivation.
//
// V value encoding: raw recovery ID, 0 or 1.
//
// Signature malleability: s must be in the lower half of the curve
// order, preventing signature malleability.
package crypto

import (
	"errors"
	"math/big"

	"github.com/availproject/nexus/core/types"
)

// SigRecover provides ECDSA signature recovery operations. Stateless;
// all methods are safe for concurrent use.
type SigRecover struct{}

// NewSigRecover creates a new SigRecover instance.
func NewSigRecover() *SigRecover {
	return &SigRecover{}
}

// CompactSignature is a 65-byte ECDSA signature: R (32) || S (32) || V (1).
type CompactSignature struct {
	R [32]byte
	S [32]byte
	V byte
}

var (
	ErrSigRecoverInvalidLength = errors.New("sig_recover: signature must be 65 bytes")
	ErrSigRecoverInvalidV      = errors.New("sig_recover: invalid V value")
	ErrSigRecoverInvalidR      = errors.New("sig_recover: R must be in [1, n-1]")
	ErrSigRecoverInvalidS      = errors.New("sig_recover: S must be in [1, n-1]")
	ErrSigRecoverMalleable     = errors.New("sig_recover: S is in upper half (malleable)")
	ErrSigRecoverHashLength    = errors.New("sig_recover: message hash must be 32 bytes")
	ErrSigRecoverFailed        = errors.New("sig_recover: public key recovery failed")
)

// secp256k1N is the order of the secp256k1 curve.
var secp256k1N, _ = new(big.Int).SetString("fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141", 16)
var secp256k1halfN = new(big.Int).Div(secp256k1N, big.NewInt(2))

// ParseCompactSignature parses a 65-byte signature into a CompactSignature.
// Does not validate the signature components; use Validate for that.
func ParseCompactSignature(sig []byte) (*CompactSignature, error) {
	if len(sig) != 65 {
		return nil, ErrSigRecoverInvalidLength
	}
	cs := &CompactSignature{V: sig[64]}
	copy(cs.R[:], sig[:32])
	copy(cs.S[:], sig[32:64])
	return cs, nil
}

// Bytes encodes the compact signature as 65 bytes: R || S || V.
func (cs *CompactSignature) Bytes() []byte {
	buf := make([]byte, 65)
	copy(buf[:32], cs.R[:])
	copy(buf[32:64], cs.S[:])
	buf[64] = cs.V
	return buf
}

// RBigInt returns R as a big.Int.
func (cs *CompactSignature) RBigInt() *big.Int { return new(big.Int).SetBytes(cs.R[:]) }

// SBigInt returns S as a big.Int.
func (cs *CompactSignature) SBigInt() *big.Int { return new(big.Int).SetBytes(cs.S[:]) }

// Validate checks that the signature components are valid: R and S in
// [1, n-1], S in the lower half of the curve order, and V in {0, 1}.
func (cs *CompactSignature) Validate() error {
	return validateSigComponents(cs.RBigInt(), cs.SBigInt(), cs.V)
}

func validateSigComponents(r, s *big.Int, v byte) error {
	if v > 1 {
		return ErrSigRecoverInvalidV
	}
	if r.Sign() <= 0 || r.Cmp(secp256k1N) >= 0 {
		return ErrSigRecoverInvalidR
	}
	if s.Sign() <= 0 || s.Cmp(secp256k1N) >= 0 {
		return ErrSigRecoverInvalidS
	}
	if s.Cmp(secp256k1halfN) > 0 {
		return ErrSigRecoverMalleable
	}
	return nil
}

// RecoverPublicKey recovers the uncompressed public key bytes from a
// 32-byte hash and compact signature.
func (sr *SigRecover) RecoverPublicKey(hash []byte, sig *CompactSignature) ([]byte, error) {
	if len(hash) != 32 {
		return nil, ErrSigRecoverHashLength
	}
	if err := sig.Validate(); err != nil {
		return nil, err
	}
	pub, err := SigToPub(hash, sig.Bytes())
	if err != nil {
		return nil, ErrSigRecoverFailed
	}
	return FromECDSAPub(pub), nil
}

// SignatureToAddress recovers the signer address from a message hash
// and compact signature: address = Keccak256(pubkey[1:])[12:].
func (sr *SigRecover) SignatureToAddress(hash []byte, sig *CompactSignature) (types.Address, error) {
	if len(hash) != 32 {
		return types.Address{}, ErrSigRecoverHashLength
	}
	if err := sig.Validate(); err != nil {
		return types.Address{}, err
	}
	pub, err := SigToPub(hash, sig.Bytes())
	if err != nil {
		return types.Address{}, ErrSigRecoverFailed
	}
	return PubkeyToAddress(*pub), nil
}

// SignatureToAddressBytes is a convenience wrapper that accepts a raw
// 65-byte signature.
func (sr *SigRecover) SignatureToAddressBytes(hash, sig []byte) (types.Address, error) {
	cs, err := ParseCompactSignature(sig)
	if err != nil {
		return types.Address{}, err
	}
	return sr.SignatureToAddress(hash, cs)
}

// IsValidSignature reports whether a 65-byte signature has valid R, S,
// and V components, without performing recovery.
func IsValidSignature(sig []byte) bool {
	cs, err := ParseCompactSignature(sig)
	if err != nil {
		return false
	}
	return cs.Validate() == nil
}
