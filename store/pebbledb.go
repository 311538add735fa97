package store

import (
	"github.com/cockroachdb/pebble"

	"github.com/availproject/nexus/core/types"
)

// PebbleDB is a cockroachdb/pebble-backed KV/NodeReader/NodeWriter
// implementation: the production persistence layer for both the
// coordinator's tree nodes and its sentinel keys.
type PebbleDB struct {
	db *pebble.DB
}

// OpenPebbleDB opens (creating if absent) a pebble database at dir.
func OpenPebbleDB(dir string) (*PebbleDB, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &PebbleDB{db: db}, nil
}

// Close releases the underlying pebble handle.
func (p *PebbleDB) Close() error { return p.db.Close() }

func (p *PebbleDB) Get(key []byte) ([]byte, error) {
	v, closer, err := p.db.Get(key)
	if err == pebble.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, closer.Close()
}

func (p *PebbleDB) NewBatch() KVBatch {
	return &pebbleBatch{batch: p.db.NewBatch()}
}

// Node implements NodeReader.
func (p *PebbleDB) Node(hash types.Hash) ([]byte, error) {
	data, err := p.Get(nodeKey(hash[:]))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, ErrNodeNotFound
	}
	return data, nil
}

// Put implements NodeWriter.
func (p *PebbleDB) Put(hash types.Hash, data []byte) error {
	return p.db.Set(nodeKey(hash[:]), data, pebble.Sync)
}

type pebbleBatch struct {
	batch *pebble.Batch
}

func (b *pebbleBatch) Put(key, value []byte) {
	_ = b.batch.Set(key, value, nil)
}

func (b *pebbleBatch) Commit() error {
	return b.batch.Commit(pebble.Sync)
}
