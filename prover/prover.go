// Package prover implements the recursion prover shim (C6): an
// abstract capability for binding to a guest program, accumulating
// inputs and recursion premises, and producing or verifying a succinct
// proof. Concrete ZK back-ends are out of scope; the only
// implementation here is Mock, which cmd/nexus and cmd/nexus-adapter
// use in every mode and which the other packages' tests use.
package prover

import (
	"github.com/cockroachdb/errors"

	"github.com/availproject/nexus/core/types"
)

// Mode selects the aggregation/proof strategy a Prover is bound with.
type Mode int

const (
	NoAggregation Mode = iota
	Compressed
	Groth16
	MockProof
)

// Proof is an opaque succinct proof together with the journal (public
// inputs) its guest program committed to.
type Proof struct {
	Bytes   []byte
	Journal []byte
	ImgId   types.StatementDigest
}

var (
	ErrNoElf          = errors.New("prover: elf must be non-empty")
	ErrNotMockMode    = errors.New("prover: operation requires MockProof mode")
	ErrImgIdMismatch  = errors.New("prover: proof's image id does not match the requested one")
	ErrChildNotProved = errors.New("prover: recursion premise was never itself proved valid")
)

// Prover is the recursion capability's abstract interface. Contract:
// if Prove succeeds, then for every child added via
// AddProofForRecursion the outer proof is valid only if that child was
// itself valid under its own image id (spec §4.5).
type Prover interface {
	// AddInput accumulates a guest-visible input value.
	AddInput(x []byte)
	// AddProofForRecursion accumulates a sub-proof whose discharge
	// obligation becomes one of this run's premises.
	AddProofForRecursion(child Proof) error
	// Prove produces a succinct proof over every accumulated input and
	// recursion premise.
	Prove() (Proof, error)
	// Verify performs the cheap top-level check that proof was
	// produced for imgID.
	Verify(proof Proof, imgID types.StatementDigest) (bool, error)
	// PublicInputs deserializes proof's journal.
	PublicInputs(proof Proof) ([]byte, error)
}

// New binds a Prover to a guest program (elf) under mode. Only
// MockProof is implemented; concrete ZK back-ends are out of scope.
func New(elf []byte, mode Mode) (Prover, error) {
	if len(elf) == 0 {
		return nil, ErrNoElf
	}
	if mode != MockProof {
		return nil, ErrNotMockMode
	}
	return &Mock{imgID: deriveMockImgID(elf)}, nil
}

// ImageID returns the image id New(elf, mode) would bind its Prover
// to, without constructing one. Callers (cmd/nexus-adapter) need this
// to fill in an adapter.Config's ImgId ahead of registering the
// app, since Prover itself exposes no accessor for its bound id.
func ImageID(elf []byte, mode Mode) (types.StatementDigest, error) {
	if len(elf) == 0 {
		return types.StatementDigest{}, ErrNoElf
	}
	if mode != MockProof {
		return types.StatementDigest{}, ErrNotMockMode
	}
	return deriveMockImgID(elf), nil
}

// deriveMockImgID derives a deterministic mock "image id" from the
// bound guest program, so distinct ELF bytes bind to distinct (mock)
// programs the way a real recursion prover's circuit-specific
// verifying key would.
func deriveMockImgID(elf []byte) types.StatementDigest {
	var id types.StatementDigest
	for i := range id {
		if i < len(elf) {
			id[i] = uint32(elf[i])
		}
	}
	return id
}

// Mock is a Prover with no real cryptography (no cryptographic proof
// bytes are ever produced): Prove always succeeds, recursion premises
// are accepted unchecked, and Verify accepts any proof whose image id
// matches the requested one and returns ErrImgIdMismatch otherwise.
// Grounded on the teacher's MockAggregator ("a test aggregator that
// always returns valid results").
type Mock struct {
	imgID    types.StatementDigest
	inputs   [][]byte
	children []Proof
}

func (m *Mock) AddInput(x []byte) { m.inputs = append(m.inputs, x) }

func (m *Mock) AddProofForRecursion(child Proof) error {
	// A MockProof-mode run accepts any child; the contract that a real
	// prover enforces (child validity) is exactly what MockProof is
	// documented to short-circuit.
	m.children = append(m.children, child)
	return nil
}

func (m *Mock) Prove() (Proof, error) {
	journal := make([]byte, 0)
	for _, in := range m.inputs {
		journal = append(journal, in...)
	}
	return Proof{Bytes: []byte("mock"), Journal: journal, ImgId: m.imgID}, nil
}

func (m *Mock) Verify(proof Proof, imgID types.StatementDigest) (bool, error) {
	if proof.ImgId != imgID {
		return false, ErrImgIdMismatch
	}
	return true, nil
}

func (m *Mock) PublicInputs(proof Proof) ([]byte, error) {
	return proof.Journal, nil
}

// VerifyAssumption implements stf.Host, wiring the native build's STF
// SubmitProof verification (spec §4.4.4 step 6) to this Prover.
func (m *Mock) VerifyAssumption(imgID types.StatementDigest, journal []byte) error {
	ok, err := m.Verify(Proof{ImgId: imgID, Journal: journal}, imgID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrImgIdMismatch
	}
	return nil
}
