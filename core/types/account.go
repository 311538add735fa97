package types

import "github.com/availproject/nexus/rlp"

// AccountState is the per-rollup record stored in the versioned
// authenticated tree, keyed by AppAccountId.
//
// Invariants: Statement is non-zero iff the account is registered.
// The zero AccountState is a valid distinguished value meaning
// "unregistered".
type AccountState struct {
	// Statement is fixed at registration: the only proving program
	// whose proofs are accepted for this rollup.
	Statement StatementDigest

	// StateRoot is the latest attested rollup state root.
	StateRoot Hash

	// StartNexusHash is the coordinator header hash at which this
	// rollup was registered; the anchor of its recursion chain.
	StartNexusHash Hash

	// LastProofHeight is the rollup height of the last accepted proof.
	LastProofHeight uint32

	// Height is the coordinator height at which the account was last
	// updated.
	Height uint32
}

// IsRegistered reports whether the account has been initialized via
// InitAccount (Statement is non-zero).
func (a AccountState) IsRegistered() bool {
	return !a.Statement.IsZero()
}

// Equal reports field-wise equality.
func (a AccountState) Equal(o AccountState) bool {
	return a.Statement == o.Statement &&
		a.StateRoot == o.StateRoot &&
		a.StartNexusHash == o.StartNexusHash &&
		a.LastProofHeight == o.LastProofHeight &&
		a.Height == o.Height
}

// Encode returns the canonical encoding of the account, the same
// length-prefixed binary format used for headers and transactions.
// This is what the versioned store hashes into tree leaves.
func (a AccountState) Encode() ([]byte, error) {
	return rlp.EncodeToBytes(a)
}

// DecodeAccountState decodes an AccountState from its canonical encoding.
func DecodeAccountState(data []byte) (AccountState, error) {
	var a AccountState
	err := rlp.DecodeBytes(data, &a)
	return a, err
}
