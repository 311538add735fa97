// Package mempool implements the FIFO staging area of admitted
// transactions (C4): many concurrent producers (the HTTP API), one
// consumer (the execution engine), snapshot/clear_upto semantics that
// never drop a transaction admitted concurrently with a snapshot.
package mempool

import (
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/availproject/nexus/core/types"
	"github.com/availproject/nexus/crypto"
)

// MaxTxSize is the largest accepted RLP encoding of a transaction's
// unsigned body.
const MaxTxSize = 64 * 1024

var (
	// ErrTxTooLarge is returned by Add when a transaction's unsigned-body
	// encoding (EncodeUnsigned) exceeds MaxTxSize.
	ErrTxTooLarge = errors.New("mempool: transaction exceeds max size")
	// ErrBadSignature is returned by Add when the envelope's signature
	// over its unsigned body does not recover, or recovers to an address
	// other than the claimed Signer.
	ErrBadSignature = errors.New("mempool: signature does not recover")
)

// Pool is a FIFO queue of admitted transactions. Admission control
// (signature recovery, size limit) runs once in Add, in the style of
// a sequencer's AddTransaction validation, before appending to the
// queue — this is input hygiene, not state-transition business logic;
// a transaction that passes admission can still be rejected later by
// the state transition function.
type Pool struct {
	mu      sync.Mutex
	pending []*types.Transaction
	sig     *crypto.SigRecover
}

// New returns an empty pool.
func New() *Pool {
	return &Pool{sig: crypto.NewSigRecover()}
}

// Add validates and appends tx to the back of the queue. Many callers
// may call Add concurrently.
func (p *Pool) Add(tx *types.Transaction) error {
	body, err := tx.EncodeUnsigned()
	if err != nil {
		return err
	}
	if len(body) > MaxTxSize {
		return ErrTxTooLarge
	}
	hash := crypto.Keccak256Hash(body)
	addr, err := p.sig.SignatureToAddressBytes(hash[:], tx.Signature[:])
	if err != nil || addr != tx.Signer {
		return ErrBadSignature
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = append(p.pending, tx)
	return nil
}

// Snapshot returns a copy of every currently-queued transaction and
// the index of the last element, or ok=false if the queue is empty.
// Must be sampled before STF execution and released (the returned
// slice is a copy, safe to read after the lock is gone) before a
// matching ClearUpto.
func (p *Pool) Snapshot() (batch []*types.Transaction, lastIndex int, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.pending) == 0 {
		return nil, 0, false
	}
	batch = make([]*types.Transaction, len(p.pending))
	copy(batch, p.pending)
	return batch, len(batch) - 1, true
}

// ClearUpto removes elements 0..=lastIndex. Transactions admitted
// concurrently with the Snapshot that produced lastIndex, but after
// its sampling, are appended past lastIndex and survive this call.
func (p *Pool) ClearUpto(lastIndex int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if lastIndex+1 >= len(p.pending) {
		p.pending = p.pending[:0]
		return
	}
	remaining := len(p.pending) - (lastIndex + 1)
	copy(p.pending, p.pending[lastIndex+1:])
	p.pending = p.pending[:remaining]
}

// Len returns the number of currently-queued transactions.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}
