package types

import (
	"crypto/sha256"
	"sync/atomic"

	"github.com/availproject/nexus/rlp"
)

// CoordinatorHeader is the per-batch succinct header the coordinator
// produces once per finalized DA header. Its hash is the canonical
// encoding (see Encode) hashed with SHA-256.
type CoordinatorHeader struct {
	ParentHash      Hash
	PrevStateRoot   Hash
	StateRoot       Hash
	TxRoot          Hash
	AvailHeaderHash Hash
	Number          uint32

	// hash caches the computed hash; not part of the encoding.
	hash atomic.Pointer[Hash]
}

// rlpCoordinatorHeader mirrors CoordinatorHeader's encoded fields,
// excluding the unexported cache, for canonical RLP encoding.
type rlpCoordinatorHeader struct {
	ParentHash      Hash
	PrevStateRoot   Hash
	StateRoot       Hash
	TxRoot          Hash
	AvailHeaderHash Hash
	Number          uint32
}

// Encode returns the canonical length-prefixed binary encoding of h.
func (h *CoordinatorHeader) Encode() ([]byte, error) {
	return rlp.EncodeToBytes(rlpCoordinatorHeader{
		ParentHash:      h.ParentHash,
		PrevStateRoot:   h.PrevStateRoot,
		StateRoot:       h.StateRoot,
		TxRoot:          h.TxRoot,
		AvailHeaderHash: h.AvailHeaderHash,
		Number:          h.Number,
	})
}

// Hash returns the SHA-256 hash of the header's canonical encoding,
// caching the result. Two headers with identical field values always
// hash identically (idempotence law, spec.md §8).
func (h *CoordinatorHeader) Hash() Hash {
	if cached := h.hash.Load(); cached != nil {
		return *cached
	}
	enc, err := h.Encode()
	if err != nil {
		// Encoding a CoordinatorHeader can never fail: every field is a
		// fixed-size value. A failure here is a programming error.
		panic("types: coordinator header encoding failed: " + err.Error())
	}
	sum := sha256.Sum256(enc)
	hash := Hash(sum)
	h.hash.Store(&hash)
	return hash
}

// DecodeCoordinatorHeader decodes a CoordinatorHeader from its
// canonical encoding. decode(encode(h)) == h for every header.
func DecodeCoordinatorHeader(data []byte) (*CoordinatorHeader, error) {
	var raw rlpCoordinatorHeader
	if err := rlp.DecodeBytes(data, &raw); err != nil {
		return nil, err
	}
	return &CoordinatorHeader{
		ParentHash:      raw.ParentHash,
		PrevStateRoot:   raw.PrevStateRoot,
		StateRoot:       raw.StateRoot,
		TxRoot:          raw.TxRoot,
		AvailHeaderHash: raw.AvailHeaderHash,
		Number:          raw.Number,
	}, nil
}
