package main

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"sync"
	"time"

	"github.com/availproject/nexus/core/types"
)

// devRelayer is a synthetic relayer.Client for --dev mode, standing in
// for the real Avail RPC client spec.md §1 explicitly keeps out of
// scope. It manufactures a monotonically increasing, self-consistent
// chain of fake DA headers on a fixed interval instead of connecting
// to anything, the same role prover.Mock and store.MemDB play for
// their own concerns.
type devRelayer struct {
	interval time.Duration

	mu     sync.Mutex
	height uint64
	parent types.Hash
}

func newDevRelayer(interval time.Duration) *devRelayer {
	return &devRelayer{interval: interval}
}

func (d *devRelayer) Subscribe(ctx context.Context) (<-chan types.AvailHeader, error) {
	ch := make(chan types.AvailHeader)
	go func() {
		defer close(ch)
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				select {
				case ch <- d.next():
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch, nil
}

func (d *devRelayer) next() types.AvailHeader {
	d.mu.Lock()
	defer d.mu.Unlock()
	h := types.AvailHeader{ParentHash: d.parent, Height: d.height}
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], d.height)
	copy(buf[8:], d.parent[:8])
	h.Hash = types.Hash(sha256.Sum256(buf[:]))
	d.height++
	d.parent = h.Hash
	return h
}

func (d *devRelayer) CurrentHeader(ctx context.Context) (types.AvailHeader, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return types.AvailHeader{Hash: d.parent, Height: d.height}, nil
}

func (d *devRelayer) Submit(ctx context.Context, header *types.CoordinatorHeader, proof []byte) error {
	return nil
}
