package store

import (
	"sync"

	"github.com/availproject/nexus/core/types"
)

// MemDB is an in-memory KV/NodeReader/NodeWriter backend for tests and
// the --dev CLI mode.
type MemDB struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemDB returns an empty in-memory store.
func NewMemDB() *MemDB {
	return &MemDB{data: make(map[string][]byte)}
}

func (m *MemDB) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[string(key)]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemDB) NewBatch() KVBatch {
	return &memBatch{db: m}
}

// Node implements NodeReader.
func (m *MemDB) Node(hash types.Hash) ([]byte, error) {
	data, err := m.Get(nodeKey(hash[:]))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, ErrNodeNotFound
	}
	return data, nil
}

// Put implements NodeWriter.
func (m *MemDB) Put(hash types.Hash, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[string(nodeKey(hash[:]))] = data
	return nil
}

type memBatch struct {
	db   *MemDB
	puts map[string][]byte
}

func (b *memBatch) Put(key, value []byte) {
	if b.puts == nil {
		b.puts = make(map[string][]byte)
	}
	b.puts[string(key)] = value
}

func (b *memBatch) Commit() error {
	b.db.mu.Lock()
	defer b.db.mu.Unlock()
	for k, v := range b.puts {
		b.db.data[k] = v
	}
	return nil
}
