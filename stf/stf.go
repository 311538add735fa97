// Package stf implements the coordinator's state transition function
// (C5): a pure function from a new DA header, the current header
// window, an ordered batch of transactions, and each touched account's
// pre-state, to a new header window and a per-transaction outcome.
//
// ExecuteBatch never touches the store or the mempool directly — the
// engine preloads pre_state and later applies the returned post-state
// via the store's update_set/Commit. This keeps the transition logic
// testable without a backing tree or persistence layer.
package stf

import (
	"github.com/cockroachdb/errors"

	"github.com/availproject/nexus/core/types"
	"github.com/availproject/nexus/headerwindow"
	"github.com/availproject/nexus/rlp"
)

// encodePublicInputs produces the journal bytes a rollup's recursive
// proof is expected to commit to: the canonical encoding of
// PublicInputs, the same RLP codec used throughout this module.
func encodePublicInputs(pi types.PublicInputs) ([]byte, error) {
	return rlp.EncodeToBytes(pi)
}

// Outcome is the kind of result a SubmitProof check failed on, or Ok.
type Outcome int

const (
	Ok Outcome = iota
	ErrHeaderForkMismatch
	ErrAlreadyInitiated
	ErrAccountNotInitiated
	ErrAppIdMismatch
	ErrWrongAnchor
	ErrNexusHashNotRecent
	ErrStatementMismatch
	ErrInvalidProof
)

func (o Outcome) String() string {
	switch o {
	case Ok:
		return "Ok"
	case ErrHeaderForkMismatch:
		return "HeaderForkMismatch"
	case ErrAlreadyInitiated:
		return "AlreadyInitiated"
	case ErrAccountNotInitiated:
		return "AccountNotInitiated"
	case ErrAppIdMismatch:
		return "AppIdMismatch"
	case ErrWrongAnchor:
		return "WrongAnchor"
	case ErrNexusHashNotRecent:
		return "NexusHashNotRecent"
	case ErrStatementMismatch:
		return "StatementMismatch"
	case ErrInvalidProof:
		return "InvalidProof"
	default:
		return "Unknown"
	}
}

// ErrBatchRejected is returned by ExecuteBatch when the batch as a
// whole cannot proceed (currently only a DA continuity break); it is
// distinct from a per-transaction Outcome, which never aborts the
// batch.
var ErrBatchRejected = errors.New("stf: batch rejected")

// TxResult is one transaction's outcome: on Ok, PostState holds the
// new state to fold into the post-state map; on any other
// Outcome, the transaction's pre-state is kept unchanged and
// processing continues with the next transaction (spec §4.4.2).
type TxResult struct {
	Outcome   Outcome
	AppId     types.AppId
	PostState types.AccountState
}

// Host abstracts the recursion-prover verification call so the same
// transition logic runs natively (verification delegated to a real
// Prover) or inside the recursion prover's guest environment (step 6
// delegated to the host's assumption mechanism instead), per spec
// §4.4.5 and §9's "STF compiled twice" note. Concrete implementations
// live in package prover (native) and the nexus_guest build (guest).
type Host interface {
	// VerifyAssumption checks that a proof for imgID committing to
	// journal is valid. Native hosts run real verification; guest
	// hosts declare the assumption and rely on it being discharged by
	// a recursion premise supplied via add_proof_for_recursion.
	VerifyAssumption(imgID types.StatementDigest, journal []byte) error
}

// ExecuteBatch is the pure state transition: it mutates neither its
// inputs nor any store, returning the post-transaction header window
// and one TxResult per input transaction, in order.
//
// avail is the finalized DA header this batch advances from; draft is
// the CoordinatorHeader the engine has already prepared for it (spec
// §4.4.1 distinguishes two continuity checks that must not be
// conflated: avail.ParentHash against window[0].AvailHeaderHash is the
// DA chain's own continuity, checked here before any tree work
// happens, while draft.ParentHash against window[0].Hash() is the
// coordinator's own header-chain continuity, checked by
// headerwindow.PushFront).
func ExecuteBatch(
	host Host,
	avail types.AvailHeader,
	draft *types.CoordinatorHeader,
	window *headerwindow.Window,
	txs []*types.Transaction,
	preState map[types.AppId]types.AccountState,
) (*headerwindow.Window, []TxResult, error) {
	if !window.IsEmpty() {
		if avail.ParentHash != window.First().AvailHeaderHash {
			return nil, nil, errors.Wrap(ErrBatchRejected, ErrHeaderForkMismatch.String())
		}
	}

	next := window.Clone()
	next.PushFront(draft)

	// Tie-break for repeated keys within one batch: each tx's pre-state
	// is the output of the most recent preceding tx for the same key,
	// or the batch's input pre-state if none (spec §4.4.4 tie-break).
	working := make(map[types.AppId]types.AccountState, len(preState))
	for k, v := range preState {
		working[k] = v
	}

	results := make([]TxResult, len(txs))
	for i, tx := range txs {
		switch tx.Kind {
		case types.TxInitAccount:
			results[i] = applyInitAccount(next, working, tx.InitAccount)
		case types.TxSubmitProof:
			results[i] = applySubmitProof(host, next, working, tx.SubmitProof)
		}
		if results[i].Outcome == Ok {
			working[results[i].AppId] = results[i].PostState
		}
	}

	return next, results, nil
}

func applyInitAccount(window *headerwindow.Window, pre map[types.AppId]types.AccountState, p *types.InitAccountPayload) TxResult {
	current := pre[p.AppId]
	if current.IsRegistered() {
		return TxResult{Outcome: ErrAlreadyInitiated, AppId: p.AppId}
	}
	return TxResult{
		Outcome: Ok,
		AppId:   p.AppId,
		PostState: types.AccountState{
			Statement:       p.Statement,
			StateRoot:       types.Hash{},
			StartNexusHash:  p.StartNexusHash,
			LastProofHeight: 0,
			Height:          window.First().Number,
		},
	}
}

func applySubmitProof(host Host, window *headerwindow.Window, pre map[types.AppId]types.AccountState, p *types.SubmitProofPayload) TxResult {
	current, registered := pre[p.AppId]
	if !registered || !current.IsRegistered() {
		return TxResult{Outcome: ErrAccountNotInitiated, AppId: p.AppId}
	}
	if p.AppId != p.PublicInputs.AppId {
		return TxResult{Outcome: ErrAppIdMismatch, AppId: p.AppId}
	}
	if p.PublicInputs.StartNexusHash != current.StartNexusHash {
		return TxResult{Outcome: ErrWrongAnchor, AppId: p.AppId}
	}
	if !window.ContainsHashExcludingFront(p.PublicInputs.NexusHash) {
		return TxResult{Outcome: ErrNexusHashNotRecent, AppId: p.AppId}
	}
	if p.PublicInputs.ImgId != current.Statement {
		return TxResult{Outcome: ErrStatementMismatch, AppId: p.AppId}
	}
	journal, err := encodePublicInputs(p.PublicInputs)
	if err != nil {
		return TxResult{Outcome: ErrInvalidProof, AppId: p.AppId}
	}
	if err := host.VerifyAssumption(p.PublicInputs.ImgId, journal); err != nil {
		return TxResult{Outcome: ErrInvalidProof, AppId: p.AppId}
	}

	return TxResult{
		Outcome: Ok,
		AppId:   p.AppId,
		PostState: types.AccountState{
			Statement:       current.Statement,
			StateRoot:       p.PublicInputs.StateRoot,
			StartNexusHash:  current.StartNexusHash,
			LastProofHeight: p.PublicInputs.Height,
			Height:          window.First().Number,
		},
	}
}
