// Package headerwindow implements the bounded ring of recent
// coordinator headers (C3) the STF checks SubmitProof anchors against.
package headerwindow

import (
	"github.com/cockroachdb/errors"

	"github.com/availproject/nexus/core/types"
	"github.com/availproject/nexus/rlp"
)

// Capacity is the maximum number of headers retained, newest first.
const Capacity = 32

// ErrParentLinkViolation is a programming error: the caller pushed a
// header whose parent_hash does not match the current newest entry's
// hash. The execution engine must prevent this; if it happens anyway
// it is a bug, not a recoverable condition (spec §4.2, §7).
var ErrParentLinkViolation = errors.New("headerwindow: parent_hash does not match current front")

// Window is a fixed-capacity deque of coordinator headers, newest at
// position 0, grounded on the ring-buffer eviction shape of an anchor
// history buffer but storing full header values rather than indexing
// by block number modulo capacity — the window needs ordered eviction
// by recency, not random access by height.
type Window struct {
	headers []*types.CoordinatorHeader // index 0 is newest
}

// New returns an empty window.
func New() *Window {
	return &Window{headers: make([]*types.CoordinatorHeader, 0, Capacity)}
}

// PushFront inserts h at the front, evicting the oldest entry if the
// window is already at capacity. If the window is non-empty, h's
// ParentHash must equal the current front entry's own Hash() (spec
// §4.2, §8 invariants 1/3: h_{n+1}.parent_hash == hash(h_n)); violation
// panics since the execution engine must have already rejected a
// forked header before ever reaching PushFront.
func (w *Window) PushFront(h *types.CoordinatorHeader) {
	if len(w.headers) > 0 {
		if h.ParentHash != w.headers[0].Hash() {
			panic(ErrParentLinkViolation)
		}
	}
	w.headers = append([]*types.CoordinatorHeader{h}, w.headers...)
	if len(w.headers) > Capacity {
		w.headers = w.headers[:Capacity]
	}
}

// First returns the newest header, or nil if the window is empty.
func (w *Window) First() *types.CoordinatorHeader {
	if len(w.headers) == 0 {
		return nil
	}
	return w.headers[0]
}

// IsEmpty reports whether the window holds no headers.
func (w *Window) IsEmpty() bool { return len(w.headers) == 0 }

// Len returns the number of headers currently held.
func (w *Window) Len() int { return len(w.headers) }

// Inner returns the window's headers, newest first. The returned
// slice is owned by the caller; callers MUST NOT mutate the window via
// its elements (headers are treated as immutable once pushed).
func (w *Window) Inner() []*types.CoordinatorHeader {
	out := make([]*types.CoordinatorHeader, len(w.headers))
	copy(out, w.headers)
	return out
}

// Clone returns a value-typed copy of the window, safe to hand to the
// STF without sharing the engine's live backing slice (spec §9:
// "Header windows are value-typed snapshots, not references into the
// store").
func (w *Window) Clone() *Window {
	return &Window{headers: append([]*types.CoordinatorHeader(nil), w.headers...)}
}

// ContainsHashExcludingFront reports whether needle equals the hash of
// any header in the window other than the one at index 0 (the header
// most recently pushed this batch). This implements the
// NexusHashNotRecent check: a referenced coordinator hash must be
// "recent" — present somewhere in the window — but the just-pushed
// header itself does not count (spec §4.4.4 step 4, §9 open question 2).
func (w *Window) ContainsHashExcludingFront(needle types.Hash) bool {
	for i := 1; i < len(w.headers); i++ {
		if w.headers[i].Hash() == needle {
			return true
		}
	}
	return false
}

// rlpWindow is the on-disk encoding of a Window: each header's own
// canonical encoding, in newest-first order.
type rlpWindow struct {
	Headers [][]byte
}

// Encode returns the canonical encoding of the window, for persisting
// alongside a commit so a restarted engine can resume without
// replaying every batch.
func (w *Window) Encode() ([]byte, error) {
	raw := rlpWindow{Headers: make([][]byte, len(w.headers))}
	for i, h := range w.headers {
		enc, err := h.Encode()
		if err != nil {
			return nil, err
		}
		raw.Headers[i] = enc
	}
	return rlp.EncodeToBytes(raw)
}

// Decode reconstructs a Window from its canonical encoding.
func Decode(data []byte) (*Window, error) {
	var raw rlpWindow
	if err := rlp.DecodeBytes(data, &raw); err != nil {
		return nil, err
	}
	headers := make([]*types.CoordinatorHeader, len(raw.Headers))
	for i, enc := range raw.Headers {
		h, err := types.DecodeCoordinatorHeader(enc)
		if err != nil {
			return nil, err
		}
		headers[i] = h
	}
	return &Window{headers: headers}, nil
}
