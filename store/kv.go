package store

import "github.com/availproject/nexus/core/types"

// KV is a minimal atomic-batched key/value abstraction backing the
// tree's node storage and the two sentinel keys (current-root,
// current-version), per spec §4.1/§6.
type KV interface {
	Get(key []byte) ([]byte, error)
	NewBatch() KVBatch
}

// KVBatch accumulates writes for atomic application.
type KVBatch interface {
	Put(key, value []byte)
	Commit() error
}

// NodeReader resolves a content-addressed tree node by its hash.
// Returns ErrNodeNotFound if the node is unknown.
type NodeReader interface {
	Node(hash types.Hash) ([]byte, error)
}

// NodeWriter durably persists a content-addressed tree node.
type NodeWriter interface {
	Put(hash types.Hash, data []byte) error
}

var (
	keyCurrentRoot    = []byte("current-root")
	keyCurrentVersion = []byte("current-version")
)

func versionRootKey(version uint64) []byte {
	key := make([]byte, len("version-root:")+8)
	n := copy(key, "version-root:")
	putUint64BE(key[n:], version)
	return key
}

func nodeKey(hashBytes []byte) []byte {
	key := make([]byte, len("node:")+len(hashBytes))
	n := copy(key, "node:")
	copy(key[n:], hashBytes)
	return key
}

func putUint64BE(b []byte, v uint64) {
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}

func uint64BE(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}
