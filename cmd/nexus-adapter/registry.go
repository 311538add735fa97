package main

import (
	"fmt"

	"github.com/availproject/nexus/adapter"
	"github.com/availproject/nexus/config"
)

// rollupSourceFactory builds a RollupSource from an adapter's resolved
// configuration. Concrete rollups (reading an Ethereum L2's RPC, a
// Celestia rollup's sequencer, etc.) are out of scope for this
// repository (spec.md §1: "no execution of rollup business logic") —
// this registry exists so a real deployment can register one without
// touching cmd/nexus-adapter's own wiring.
type rollupSourceFactory func(cfg config.AdapterConfig) (adapter.RollupSource, error)

var rollupSources = map[string]rollupSourceFactory{}

// RegisterRollupSource adds a named RollupSource factory to the
// registry. Intended to be called from an init() in a build that links
// in a concrete rollup integration; none is registered here.
func RegisterRollupSource(kind string, factory rollupSourceFactory) {
	rollupSources[kind] = factory
}

func openRollupSource(kind string, cfg config.AdapterConfig) (adapter.RollupSource, error) {
	factory, ok := rollupSources[kind]
	if !ok {
		return nil, fmt.Errorf("nexus-adapter: unknown rollup kind %q (no RollupSource is registered for it in this build)", kind)
	}
	return factory(cfg)
}
