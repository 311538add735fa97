// Package store implements the coordinator's versioned authenticated
// state tree (C2): a sparse Merkle tree over the 256-bit AppAccountId
// key space, content-addressed so that unchanged subtrees are shared
// across versions, with inclusion/exclusion proofs and a pluggable
// node-persistence backend.
package store

import (
	"github.com/availproject/nexus/core/types"
)

// Store pairs a content-addressed tree with a KV backend that also
// stores the two sentinel keys (current-root, current-version) and a
// version-to-root index.
type Store struct {
	kv  KV
	ndb NodeReader // same backend, read through directly (no cache layer needed: KV already owns durability)
}

// Backend is satisfied by any KV implementation that also serves as
// the tree's node storage; MemDB and PebbleDB both qualify.
type Backend interface {
	KV
	NodeReader
	NodeWriter
}

// New wraps a combined KV/node-storage backend.
func New(backend Backend) *Store {
	return &Store{kv: backend, ndb: backend}
}

// KV exposes the underlying key/value backend directly, for callers
// (the execution engine) that need to read/write auxiliary keys
// alongside the tree — the header window, headers by hash, the
// avail-header-hash index, and coordinator proofs — in the same
// keyspace and durability domain as the tree's sentinel keys.
func (s *Store) KV() KV { return s.kv }

// CurrentVersion returns the latest committed version, or 0 if the
// store has never been committed to.
func (s *Store) CurrentVersion() (uint64, error) {
	v, err := s.kv.Get(keyCurrentVersion)
	if err != nil || v == nil {
		return 0, err
	}
	return uint64BE(v), nil
}

// CurrentRoot returns the root of the latest committed version, or the
// empty-tree root if the store has never been committed to.
func (s *Store) CurrentRoot() (types.Hash, error) {
	v, err := s.kv.Get(keyCurrentRoot)
	if err != nil {
		return types.Hash{}, err
	}
	if v == nil {
		return EmptyRoot(), nil
	}
	return types.BytesToHash(v), nil
}

// RootAt returns the committed root hash at version, which must have
// been produced by a prior Commit.
func (s *Store) RootAt(version uint64) (types.Hash, error) {
	if version == 0 {
		return EmptyRoot(), nil
	}
	v, err := s.kv.Get(versionRootKey(version))
	if err != nil {
		return types.Hash{}, err
	}
	if v == nil {
		return types.Hash{}, ErrUnknownVersion
	}
	return types.BytesToHash(v), nil
}

// Get returns the value stored for key at version (or nil if absent).
func (s *Store) Get(key types.AppAccountId, version uint64) (*types.AccountState, error) {
	root, err := s.RootAt(version)
	if err != nil {
		return nil, err
	}
	return get(s.ndb, root, key)
}

// GetWithProof returns the value and an inclusion/exclusion proof
// verifiable against RootAt(version).
func (s *Store) GetWithProof(key types.AppAccountId, version uint64) (*types.AccountState, Proof, error) {
	root, err := s.RootAt(version)
	if err != nil {
		return nil, Proof{}, err
	}
	return getWithProof(s.ndb, root, key)
}

// PreStateEntry is one entry of a StateUpdate's pre-state snapshot.
type PreStateEntry struct {
	Value *types.AccountState
	Proof Proof
}

// StateUpdate is the pre-state snapshot of every key touched by an
// UpdateSet call, proved against PreStateRoot.
type StateUpdate struct {
	PreStateRoot  types.Hash
	PostStateRoot types.Hash
	PreState      map[types.AppAccountId]PreStateEntry
}

// UpdateSet computes the new root at version after applying updates
// (a nil value is a delete), returning the batch of new nodes to
// persist and a StateUpdate proving the pre-value of every touched
// key against the current root. It does not mutate the store; the
// caller must call Commit with the returned batch to make it durable,
// or discard both return values to roll back.
func (s *Store) UpdateSet(updates map[types.AppAccountId]*types.AccountState, version uint64) (WriteBatch, StateUpdate, error) {
	preRoot, err := s.CurrentRoot()
	if err != nil {
		return WriteBatch{}, StateUpdate{}, err
	}
	newRoot, batch, _, err := updateSet(s.ndb, preRoot, updates)
	if err != nil {
		return WriteBatch{}, StateUpdate{}, err
	}

	su := StateUpdate{
		PreStateRoot:  preRoot,
		PostStateRoot: newRoot,
		PreState:      make(map[types.AppAccountId]PreStateEntry, len(updates)),
	}
	for key := range updates {
		val, proof, err := getWithProof(s.ndb, preRoot, key)
		if err != nil {
			return WriteBatch{}, StateUpdate{}, err
		}
		su.PreState[key] = PreStateEntry{Value: val, Proof: proof}
	}
	return batch, su, nil
}

// Commit durably persists batch's nodes and advances current-root and
// current-version to newRoot/version in one KV batch (spec §4.6 step 8
// calls this "atomic commit"; step 10 says any error before commit
// must leave prior state untouched, which holds here because nothing
// above mutates s.kv until this call).
func (s *Store) Commit(batch WriteBatch, newRoot types.Hash, version uint64) error {
	return s.CommitWithExtras(batch, newRoot, version, nil)
}

// CommitWithExtras is Commit plus an arbitrary set of additional
// key/value pairs folded into the same atomic batch. The execution
// engine uses this to persist the header window, the header keyed by
// its hash, the avail-header-hash index, and the coordinator proof in
// the same durable write as the tree nodes and sentinel keys (spec
// §4.6 step 8 lists all of these under one "atomic commit").
func (s *Store) CommitWithExtras(batch WriteBatch, newRoot types.Hash, version uint64, extra map[string][]byte) error {
	kvBatch := s.kv.NewBatch()
	for hash, data := range batch.Nodes {
		kvBatch.Put(nodeKey(hash[:]), data)
	}
	kvBatch.Put(keyCurrentRoot, newRoot.Bytes())
	verBuf := make([]byte, 8)
	putUint64BE(verBuf, version)
	kvBatch.Put(keyCurrentVersion, verBuf)
	kvBatch.Put(versionRootKey(version), newRoot.Bytes())
	for key, value := range extra {
		kvBatch.Put([]byte(key), value)
	}
	return kvBatch.Commit()
}
