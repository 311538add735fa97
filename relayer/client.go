// Package relayer defines the abstraction the execution engine uses
// to receive finalized DA headers and submit coordinator proofs back
// to the DA chain. No concrete Avail RPC client is implemented here —
// subscribing to and submitting to a real DA chain is out of scope
// (spec.md §1); this package exists so the engine has a stable seam
// to depend on and test against.
package relayer

import (
	"context"

	"github.com/availproject/nexus/core/types"
)

// Client is the DA chain collaborator the execution engine depends
// on: a subscription to finalized headers, a way to read the chain's
// current head without waiting on the subscription, and a way to push
// a sealed coordinator proof back to the DA chain.
type Client interface {
	// Subscribe returns a channel of finalized DA headers, delivered in
	// order, closed when ctx is cancelled or the underlying connection
	// is permanently lost.
	Subscribe(ctx context.Context) (<-chan types.AvailHeader, error)
	// CurrentHeader returns the DA chain's current finalized head.
	CurrentHeader(ctx context.Context) (types.AvailHeader, error)
	// Submit pushes a sealed coordinator proof, keyed by the
	// coordinator header it attests to, onto the DA chain.
	Submit(ctx context.Context, header *types.CoordinatorHeader, proof []byte) error
}
