// Package engine implements the execution engine (C7): the single
// consumer of finalized DA headers that drives the coordinator's
// state-transition loop. For every finalized header it receives from
// a relayer.Client it snapshots the mempool, runs the pure
// state-transition function, proves the resulting batch, and commits
// the new tree root, header window, and indexes in one durable write
// before draining the mempool of the transactions it just consumed.
package engine

import (
	"context"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/availproject/nexus/core/types"
	"github.com/availproject/nexus/crypto"
	"github.com/availproject/nexus/headerwindow"
	"github.com/availproject/nexus/log"
	"github.com/availproject/nexus/mempool"
	"github.com/availproject/nexus/metrics"
	"github.com/availproject/nexus/prover"
	"github.com/availproject/nexus/relayer"
	"github.com/availproject/nexus/stf"
	"github.com/availproject/nexus/store"
)

// Engine orchestrates one DA header at a time through state
// transition, proving, and commit. It owns no network listeners of
// its own; relayer.Client supplies the header stream and Submit seam.
type Engine struct {
	store  *store.Store
	pool   *mempool.Pool
	prover prover.Prover
	client relayer.Client
	log    *log.Logger

	window *headerwindow.Window
}

// HeaderWindowKey is the extras key CommitWithExtras persists the
// encoded header window under, read back on startup to resume after a
// restart without replaying every batch. Exported so the api package
// can read the same key directly off store.KV() for GET /range.
const HeaderWindowKey = "engine/header_window"

// New constructs an Engine. The header window is loaded from s if
// present, or starts empty (genesis).
func New(s *store.Store, pool *mempool.Pool, p prover.Prover, client relayer.Client, logger *log.Logger) (*Engine, error) {
	window, err := loadWindow(s)
	if err != nil {
		return nil, err
	}
	return &Engine{
		store:  s,
		pool:   pool,
		prover: p,
		client: client,
		log:    logger.Module("engine"),
		window: window,
	}, nil
}

func loadWindow(s *store.Store) (*headerwindow.Window, error) {
	raw, err := s.KV().Get([]byte(HeaderWindowKey))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return headerwindow.New(), nil
	}
	return headerwindow.Decode(raw)
}

// Run subscribes to client and processes finalized headers one at a
// time until ctx is cancelled or the subscription ends. It returns the
// first batch-processing error encountered; a cancelled context is not
// treated as an error.
func (e *Engine) Run(ctx context.Context) error {
	headers, err := e.client.Subscribe(ctx)
	if err != nil {
		return errors.Wrap(err, "engine: subscribe")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case h, ok := <-headers:
				if !ok {
					return nil
				}
				if err := e.processHeader(ctx, h); err != nil {
					metrics.EngineErrors.Inc()
					e.log.Error("batch rejected", "avail_height", h.Height, "err", err)
					return err
				}
			}
		}
	})
	return g.Wait()
}

// processHeader runs one full cycle of the loop for a single
// finalized DA header: draft header, mempool snapshot, STF, prove,
// commit, drain.
func (e *Engine) processHeader(ctx context.Context, avail types.AvailHeader) error {
	draft := e.draftHeader(avail)

	batch, lastIndex, ok := e.pool.Snapshot()
	if !ok {
		batch, lastIndex = nil, -1
	}
	metrics.MempoolSnapshotSize.Set(int64(len(batch)))

	version, err := e.store.CurrentVersion()
	if err != nil {
		return errors.Wrap(err, "engine: current version")
	}

	preState, err := e.preloadPreState(version, batch)
	if err != nil {
		return errors.Wrap(err, "engine: preload pre-state")
	}

	host, ok := e.prover.(stf.Host)
	if !ok {
		return errors.New("engine: prover does not implement stf.Host")
	}
	stfStart := time.Now()
	nextWindow, results, err := stf.ExecuteBatch(host, avail, draft, e.window, batch, preState)
	metrics.STFDuration.Observe(float64(time.Since(stfStart).Milliseconds()))
	if err != nil {
		return err
	}

	updates := make(map[types.AppAccountId]*types.AccountState, len(results))
	for _, r := range results {
		metrics.Collector.Record("engine.tx_outcome", 1, map[string]string{
			"outcome": r.Outcome.String(),
			"app_id":  strconv.FormatUint(uint64(r.AppId), 10),
		})
		if r.Outcome != stf.Ok {
			continue
		}
		post := r.PostState
		key := types.DeriveAppAccountId(r.AppId)
		updates[key] = &post
	}

	writeBatch, su, err := e.store.UpdateSet(updates, version+1)
	if err != nil {
		return errors.Wrap(err, "engine: update set")
	}

	draft.PrevStateRoot = su.PreStateRoot
	draft.StateRoot = su.PostStateRoot
	txRoot, err := computeTxRoot(batch)
	if err != nil {
		return errors.Wrap(err, "engine: compute tx root")
	}
	draft.TxRoot = txRoot

	proverStart := time.Now()
	journal, err := draft.Encode()
	if err != nil {
		return errors.Wrap(err, "engine: encode header journal")
	}
	e.prover.AddInput(journal)
	proof, err := e.prover.Prove()
	metrics.ProverDuration.Observe(float64(time.Since(proverStart).Milliseconds()))
	if err != nil {
		return errors.Wrap(err, "engine: prove")
	}

	headerHash := draft.Hash()
	encodedHeader, err := draft.Encode()
	if err != nil {
		return errors.Wrap(err, "engine: encode header")
	}
	encodedWindow, err := nextWindow.Encode()
	if err != nil {
		return errors.Wrap(err, "engine: encode window")
	}

	extras := map[string][]byte{
		HeaderWindowKey:               encodedWindow,
		HeaderByHashKey(headerHash):   encodedHeader,
		AvailHashIndexKey(avail.Hash): headerHash.Bytes(),
		ProofByHashKey(headerHash):    proof.Bytes,
	}

	commitStart := time.Now()
	if err := e.store.CommitWithExtras(writeBatch, su.PostStateRoot, version+1, extras); err != nil {
		return errors.Wrap(err, "engine: commit")
	}
	metrics.CommitDuration.Observe(float64(time.Since(commitStart).Milliseconds()))

	if err := e.client.Submit(ctx, draft, proof.Bytes); err != nil {
		e.log.Warn("submit to DA chain failed, batch already committed", "header_hash", headerHash, "err", err)
	}

	e.window = nextWindow
	if lastIndex >= 0 {
		e.pool.ClearUpto(lastIndex)
	}
	metrics.BatchesCommitted.Inc()
	e.log.Info("batch committed", "number", draft.Number, "header_hash", headerHash, "tx_count", len(batch))
	return nil
}

// draftHeader builds the coordinator header this batch will seal.
// ParentHash links to the previously committed CoordinatorHeader's own
// hash (spec §8 invariant 1/3: h_{n+1}.parent_hash == hash(h_n)), not
// to the DA chain's parent-hash linkage — AvailHeaderHash carries that
// separately, purely for the avail-hash index and for
// stf.ExecuteBatch's DA-continuity check against the incoming avail
// header. StateRoot/PrevStateRoot/TxRoot are filled in once the state
// update and transactions are known, and Number is one past the
// window's current front (0 at genesis); this is safe because
// CoordinatorHeader.Hash() is never called on draft until after every
// field is final.
func (e *Engine) draftHeader(avail types.AvailHeader) *types.CoordinatorHeader {
	var number uint32
	var parentHash types.Hash
	if !e.window.IsEmpty() {
		number = e.window.First().Number + 1
		parentHash = e.window.First().Hash()
	}
	return &types.CoordinatorHeader{
		ParentHash:      parentHash,
		AvailHeaderHash: avail.Hash,
		Number:          number,
	}
}

// preloadPreState reads, once per distinct AppId touched by batch,
// the current account state so stf.ExecuteBatch can run against an
// in-memory snapshot instead of hitting the store mid-transition.
func (e *Engine) preloadPreState(version uint64, batch []*types.Transaction) (map[types.AppId]types.AccountState, error) {
	preState := make(map[types.AppId]types.AccountState)
	seen := make(map[types.AppId]bool)
	for _, tx := range batch {
		var appID types.AppId
		switch tx.Kind {
		case types.TxInitAccount:
			appID = tx.InitAccount.AppId
		case types.TxSubmitProof:
			appID = tx.SubmitProof.AppId
		default:
			continue
		}
		if seen[appID] {
			continue
		}
		seen[appID] = true
		state, err := e.store.Get(types.DeriveAppAccountId(appID), version)
		if err != nil {
			return nil, err
		}
		if state != nil {
			preState[appID] = *state
		}
	}
	return preState, nil
}

// computeTxRoot hashes the batch's transactions into a single
// commitment, grounded on the sequencer's batch-ID computation
// (Keccak256 over each transaction's own hash, concatenated in order).
func computeTxRoot(batch []*types.Transaction) (types.Hash, error) {
	if len(batch) == 0 {
		return types.Hash{}, nil
	}
	hashes := make([][]byte, len(batch))
	for i, tx := range batch {
		body, err := tx.EncodeUnsigned()
		if err != nil {
			return types.Hash{}, err
		}
		hashes[i] = crypto.Keccak256(body)
	}
	return crypto.Keccak256Hash(hashes...), nil
}

// HeaderByHashKey, AvailHashIndexKey, and ProofByHashKey build the
// extras keys a committed batch is indexed under; exported so the api
// package can resolve GET /header lookups against the same keyspace
// without duplicating the scheme.
func HeaderByHashKey(hash types.Hash) string {
	return "engine/header/" + string(hash.Bytes())
}

func AvailHashIndexKey(hash types.Hash) string {
	return "engine/avail_index/" + string(hash.Bytes())
}

func ProofByHashKey(hash types.Hash) string {
	return "engine/proof/" + string(hash.Bytes())
}
