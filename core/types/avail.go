package types

// AvailHeader is the subset of a Data-Availability chain header the
// coordinator needs: enough to check continuity against the header
// window and to record as a new batch's anchor. The DA chain computes
// Hash itself; the coordinator treats it as an opaque external value,
// not something it re-derives.
type AvailHeader struct {
	Hash       Hash
	ParentHash Hash
	Height     uint64
}
