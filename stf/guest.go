//go:build nexus_guest

package stf

import (
	"github.com/availproject/nexus/core/types"
)

// GuestHost implements Host for a build running inside the recursion
// prover's guest environment. Unlike the native Host (prover.Prover,
// which performs a real verification call), a guest build only ever
// proves a SubmitProof transaction whose discharge obligation was
// already supplied via add_proof_for_recursion by the enclosing
// recursive proof: VerifyAssumption here declares the assumption
// rather than checking it, matching the "STF compiled twice" design
// (spec §4.4.5/§9) — the concrete zkvm runtime this would call into is
// out of scope (see DESIGN.md's dependency-drops entry for
// go-runtime/zkvm_runtime), so this is the seam a real guest
// environment plugs an assumption-declaration call into.
type GuestHost struct{}

// VerifyAssumption declares that a proof for imgID committing to
// journal is assumed valid; the recursion prover's own discharge
// mechanism is responsible for rejecting the enclosing proof if that
// assumption turns out false.
func (GuestHost) VerifyAssumption(imgID types.StatementDigest, journal []byte) error {
	return nil
}
