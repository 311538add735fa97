// Package adapter implements the per-rollup adapter state machine
// (C8): a long-running, per-app task that converts a rollup's native
// proofs into the coordinator's canonical recursion-chained proof
// format and submits them as SubmitProof transactions.
package adapter

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/availproject/nexus/core/types"
	"github.com/availproject/nexus/log"
	"github.com/availproject/nexus/prover"
	"github.com/availproject/nexus/rlp"
	"github.com/availproject/nexus/store"
)

// RollupBatch is the rollup-specific unit of progress the adapter's
// upstream source yields: a new state root and height to attest to.
type RollupBatch struct {
	StateRoot  types.Hash
	Height     uint32
	RollupHash types.Hash
}

// RollupSource is the rollup-specific collaborator the adapter polls;
// concrete implementations (reading an Ethereum L2's RPC, a Celestia
// rollup's sequencer, etc.) are out of scope — this package ships only
// the seam.
type RollupSource interface {
	NextBatch(ctx context.Context) (RollupBatch, error)
}

// CoordinatorClient is the adapter's view of the coordinator: read the
// registered account and the current range-tip, and submit signed
// transactions. A concrete HTTP-backed implementation lives in the api
// package's client helpers.
type CoordinatorClient interface {
	AccountState(ctx context.Context, appID types.AppId) (*types.AccountState, error)
	RangeTip(ctx context.Context) (types.Hash, error)
	SubmitTx(ctx context.Context, tx *types.Transaction) error
}

var (
	// ErrContinuityHeight is the guest-side continuity check failure:
	// the previous proof's height+1 does not equal the batch being proved.
	ErrContinuityHeight = errors.New("adapter: previous proof height+1 does not match current height")
	// ErrContinuityRollupHash is the guest-side continuity check
	// failure: the previous proof's rollup_hash does not match the
	// hash reconstructed from the previous proof's commitments.
	ErrContinuityRollupHash = errors.New("adapter: previous proof rollup_hash mismatch")
	// ErrMissingPreviousProof is returned when a non-first proof has no
	// persisted predecessor to chain from.
	ErrMissingPreviousProof = errors.New("adapter: previous height's proof is missing")
)

// RetryConfig controls the exponential backoff applied to transient
// CoordinatorClient/RollupSource failures, grounded on the teacher's
// service-recovery backoff formula (initial/max/multiplier).
type RetryConfig struct {
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// DefaultRetryConfig returns a sensible bounded-retry policy for
// external RPC calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        5,
		InitialBackoff:    time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

func (c RetryConfig) nextBackoff(attempt int) time.Duration {
	backoff := c.InitialBackoff
	for i := 0; i < attempt; i++ {
		backoff = time.Duration(float64(backoff) * c.BackoffMultiplier)
		if backoff > c.MaxBackoff {
			return c.MaxBackoff
		}
	}
	return backoff
}

// Config binds an Adapter to a single registered app.
type Config struct {
	AppId        types.AppId
	ImgId        types.StatementDigest
	PollInterval time.Duration
	Retry        RetryConfig
}

// Adapter drives one rollup's proof production loop. Its proof chain
// is persisted under height.to_be_bytes() keys in its own KV instance,
// independent of the coordinator's versioned store.
type Adapter struct {
	cfg    Config
	source RollupSource
	client CoordinatorClient
	prover prover.Prover
	proofs store.KV
	log    *log.Logger
}

// New constructs an Adapter. proofs is a dedicated KV backend (an
// in-memory store.MemDB for --dev, a separate pebble database in
// production) holding only this adapter's own proof chain.
func New(cfg Config, source RollupSource, client CoordinatorClient, p prover.Prover, proofs store.KV, logger *log.Logger) *Adapter {
	return &Adapter{
		cfg:    cfg,
		source: source,
		client: client,
		prover: p,
		proofs: proofs,
		log:    logger.Module("adapter"),
	}
}

func proofKey(height uint32) []byte {
	key := make([]byte, len("proof:")+4)
	n := copy(key, "proof:")
	key[n] = byte(height >> 24)
	key[n+1] = byte(height >> 16)
	key[n+2] = byte(height >> 8)
	key[n+3] = byte(height)
	return key
}

// rlpProof is the on-disk encoding of a prover.Proof.
type rlpProof struct {
	Bytes   []byte
	Journal []byte
	ImgId   types.StatementDigest
}

func (a *Adapter) persistProof(height uint32, proof prover.Proof) error {
	enc, err := rlp.EncodeToBytes(rlpProof{Bytes: proof.Bytes, Journal: proof.Journal, ImgId: proof.ImgId})
	if err != nil {
		return err
	}
	batch := a.proofs.NewBatch()
	batch.Put(proofKey(height), enc)
	return batch.Commit()
}

func (a *Adapter) loadProof(height uint32) (*prover.Proof, error) {
	raw, err := a.proofs.Get(proofKey(height))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	var r rlpProof
	if err := rlp.DecodeBytes(raw, &r); err != nil {
		return nil, err
	}
	return &prover.Proof{Bytes: r.Bytes, Journal: r.Journal, ImgId: r.ImgId}, nil
}

// Init implements step 1: register the app with the coordinator if it
// is not already registered, then wait (with retry) for the
// registration to be confirmed.
func (a *Adapter) Init(ctx context.Context) error {
	var state *types.AccountState
	err := retryBackoff(ctx, a.cfg.Retry, func() error {
		var err error
		state, err = a.client.AccountState(ctx, a.cfg.AppId)
		return err
	})
	if err != nil {
		return errors.Wrap(err, "adapter: query account state")
	}
	if state != nil && state.IsRegistered() {
		return nil
	}

	var tip types.Hash
	err = retryBackoff(ctx, a.cfg.Retry, func() error {
		var err error
		tip, err = a.client.RangeTip(ctx)
		return err
	})
	if err != nil {
		return errors.Wrap(err, "adapter: query range tip")
	}

	tx := &types.Transaction{
		Kind: types.TxInitAccount,
		InitAccount: &types.InitAccountPayload{
			AppId:          a.cfg.AppId,
			Statement:      a.cfg.ImgId,
			StartNexusHash: tip,
		},
	}
	if err := retryBackoff(ctx, a.cfg.Retry, func() error { return a.client.SubmitTx(ctx, tx) }); err != nil {
		return errors.Wrap(err, "adapter: submit InitAccount")
	}

	return a.waitForRegistration(ctx)
}

func (a *Adapter) waitForRegistration(ctx context.Context) error {
	for attempt := 0; ; attempt++ {
		state, err := a.client.AccountState(ctx, a.cfg.AppId)
		if err == nil && state != nil && state.IsRegistered() {
			return nil
		}
		if attempt >= a.cfg.Retry.MaxRetries {
			return errors.New("adapter: InitAccount confirmation timed out")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(a.cfg.Retry.nextBackoff(attempt)):
		}
	}
}

// RunOnce implements steps 2-6 of the adapter loop for a single
// rollup batch: read the next batch, build NexusRollupPI, chain it to
// the previous proof, run the guest, persist the proof, and submit
// SubmitProof.
func (a *Adapter) RunOnce(ctx context.Context) error {
	var batch RollupBatch
	err := retryBackoff(ctx, a.cfg.Retry, func() error {
		var err error
		batch, err = a.source.NextBatch(ctx)
		return err
	})
	if err != nil {
		return errors.Wrap(err, "adapter: read rollup batch")
	}

	var tip types.Hash
	err = retryBackoff(ctx, a.cfg.Retry, func() error {
		var err error
		tip, err = a.client.RangeTip(ctx)
		return err
	})
	if err != nil {
		return errors.Wrap(err, "adapter: query range tip")
	}
	var account *types.AccountState
	err = retryBackoff(ctx, a.cfg.Retry, func() error {
		var err error
		account, err = a.client.AccountState(ctx, a.cfg.AppId)
		return err
	})
	if err != nil {
		return errors.Wrap(err, "adapter: query account state")
	}

	pi := types.PublicInputs{
		NexusHash:      tip,
		StateRoot:      batch.StateRoot,
		Height:         batch.Height,
		StartNexusHash: account.StartNexusHash,
		AppId:          a.cfg.AppId,
		ImgId:          a.cfg.ImgId,
		RollupHash:     batch.RollupHash,
	}

	if batch.Height > 0 {
		prev, err := a.loadProof(batch.Height - 1)
		if err != nil {
			return errors.Wrap(err, "adapter: load previous proof")
		}
		if prev == nil {
			return ErrMissingPreviousProof
		}
		var prevPI types.PublicInputs
		if err := rlp.DecodeBytes(prev.Journal, &prevPI); err != nil {
			return errors.Wrap(err, "adapter: decode previous journal")
		}
		if prevPI.Height+1 != pi.Height {
			return ErrContinuityHeight
		}
		if prevPI.RollupHash != batch.RollupHash {
			// The previous proof's rollup_hash must match the hash this
			// round reconstructs from its own commitments; RollupBatch
			// carries that reconstructed value directly since there is
			// no separate commitment-reconstruction step in this shim.
			return ErrContinuityRollupHash
		}
		if err := a.prover.AddProofForRecursion(*prev); err != nil {
			return errors.Wrap(err, "adapter: add recursion premise")
		}
	}

	journal, err := rlp.EncodeToBytes(pi)
	if err != nil {
		return errors.Wrap(err, "adapter: encode public inputs")
	}
	a.prover.AddInput(journal)
	proof, err := a.prover.Prove()
	if err != nil {
		return errors.Wrap(err, "adapter: prove")
	}

	if err := a.persistProof(pi.Height, proof); err != nil {
		return errors.Wrap(err, "adapter: persist proof")
	}

	tx := &types.Transaction{
		Kind: types.TxSubmitProof,
		SubmitProof: &types.SubmitProofPayload{
			AppId:        a.cfg.AppId,
			NexusHash:    pi.NexusHash,
			StateRoot:    pi.StateRoot,
			Proof:        proof.Bytes,
			Height:       pi.Height,
			PublicInputs: pi,
		},
	}
	if err := retryBackoff(ctx, a.cfg.Retry, func() error { return a.client.SubmitTx(ctx, tx) }); err != nil {
		return errors.Wrap(err, "adapter: submit SubmitProof")
	}

	a.log.Info("proof submitted", "app_id", a.cfg.AppId, "height", pi.Height)
	return nil
}

// Run calls Init once, then RunOnce on every tick of a PollInterval
// ticker until ctx is cancelled, logging and continuing past
// transient RunOnce failures rather than exiting the task.
func (a *Adapter) Run(ctx context.Context) error {
	if err := a.Init(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(a.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := a.RunOnce(ctx); err != nil {
				a.log.Error("batch attempt failed", "app_id", a.cfg.AppId, "err", err)
			}
		}
	}
}

// retryBackoff runs fn with bounded exponential backoff, grounded on
// the teacher's service-recovery retry/backoff policy (RecoveryConfig's
// InitialBackoff/MaxBackoff/BackoffMultiplier), adapted from
// restart-a-failed-service to retry-a-failed-RPC-call. fn reports its
// result through closed-over variables, not a return value, so one
// helper serves every call shape in this package without generics.
func retryBackoff(ctx context.Context, cfg RetryConfig, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt == cfg.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(cfg.nextBackoff(attempt)):
		}
	}
	return lastErr
}
