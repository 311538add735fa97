// Package types defines the coordinator's core data types: hashes,
// app account identifiers, statement digests, accounts, transactions
// and coordinator headers.
package types

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

const (
	// HashLength is the size in bytes of a Hash.
	HashLength = 32

	// AddressLength is the size in bytes of a signer Address.
	AddressLength = 20
)

// Hash is a 32-byte value. Equality is byte-equality; the all-zero
// value is the sentinel "none/genesis".
type Hash [HashLength]byte

// Address is the 20-byte ECDSA-derived identity of a transaction signer.
type Address [AddressLength]byte

// BytesToHash converts bytes to Hash, left-padding if shorter than 32 bytes
// and truncating from the left if longer.
func BytesToHash(b []byte) Hash {
	var h Hash
	h.SetBytes(b)
	return h
}

// HexToHash converts a hex string (with or without 0x prefix) to a Hash.
func HexToHash(s string) Hash {
	return BytesToHash(fromHex(s))
}

// SetBytes sets the hash from a byte slice, left-padding if necessary.
func (h *Hash) SetBytes(b []byte) {
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
}

// Bytes returns the byte representation of the hash.
func (h Hash) Bytes() []byte { return h[:] }

// Hex returns the 0x-prefixed hex representation of the hash.
func (h Hash) Hex() string { return fmt.Sprintf("0x%x", h[:]) }

// String implements fmt.Stringer.
func (h Hash) String() string { return h.Hex() }

// IsZero reports whether the hash is the all-zero sentinel value.
func (h Hash) IsZero() bool { return h == Hash{} }

// BytesToAddress converts bytes to an Address, left-padding if shorter
// than 20 bytes.
func BytesToAddress(b []byte) Address {
	var a Address
	a.SetBytes(b)
	return a
}

// SetBytes sets the address from a byte slice, left-padding if necessary.
func (a *Address) SetBytes(b []byte) {
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
}

// Bytes returns the byte representation of the address.
func (a Address) Bytes() []byte { return a[:] }

// Hex returns the 0x-prefixed hex representation of the address.
func (a Address) Hex() string { return fmt.Sprintf("0x%x", a[:]) }

// String implements fmt.Stringer.
func (a Address) String() string { return a.Hex() }

// IsZero reports whether the address is the all-zero value.
func (a Address) IsZero() bool { return a == Address{} }

// AppId is the external 32-bit identifier of a registered rollup, as
// assigned by the DA chain's application-id registry.
type AppId uint32

// AppAccountId is the coordinator-internal 32-byte identifier of a
// registered rollup, derived deterministically from an AppId so that
// distinct AppIds map to distinct ids with overwhelming probability.
type AppAccountId Hash

// DeriveAppAccountId computes SHA-256 of the big-endian 4-byte encoding
// of id. This is a normative wire format: proofs commit to it.
func DeriveAppAccountId(id AppId) AppAccountId {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(id))
	sum := sha256.Sum256(buf[:])
	return AppAccountId(sum)
}

// Bytes returns the byte representation of the account id.
func (a AppAccountId) Bytes() []byte { return a[:] }

// Hex returns the 0x-prefixed hex representation.
func (a AppAccountId) Hex() string { return fmt.Sprintf("0x%x", a[:]) }

// String implements fmt.Stringer.
func (a AppAccountId) String() string { return a.Hex() }

// IsZero reports whether the account id is the all-zero value.
func (a AppAccountId) IsZero() bool { return a == AppAccountId{} }

// StatementDigest is the 8x32-bit opaque identifier ("image id") of the
// proving program a rollup is committed to.
type StatementDigest [8]uint32

// IsZero reports whether the digest is the all-zero value, the
// distinguished "unregistered" statement.
func (s StatementDigest) IsZero() bool { return s == StatementDigest{} }

// Bytes returns the big-endian byte encoding of the digest (32 bytes).
func (s StatementDigest) Bytes() []byte {
	b := make([]byte, 32)
	for i, w := range s {
		binary.BigEndian.PutUint32(b[i*4:i*4+4], w)
	}
	return b
}

func fromHex(s string) []byte {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil
	}
	return b
}
