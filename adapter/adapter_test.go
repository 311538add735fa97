package adapter

import (
	"context"
	"testing"
	"time"

	"github.com/availproject/nexus/core/types"
	"github.com/availproject/nexus/log"
	"github.com/availproject/nexus/prover"
	"github.com/availproject/nexus/store"
)

type fakeSource struct {
	batches []RollupBatch
	idx     int
}

func (f *fakeSource) NextBatch(ctx context.Context) (RollupBatch, error) {
	b := f.batches[f.idx]
	f.idx++
	return b, nil
}

type fakeCoordinator struct {
	state   *types.AccountState
	tip     types.Hash
	imgID   types.StatementDigest
	submits []*types.Transaction
}

func (f *fakeCoordinator) AccountState(ctx context.Context, appID types.AppId) (*types.AccountState, error) {
	return f.state, nil
}

func (f *fakeCoordinator) RangeTip(ctx context.Context) (types.Hash, error) {
	return f.tip, nil
}

func (f *fakeCoordinator) SubmitTx(ctx context.Context, tx *types.Transaction) error {
	f.submits = append(f.submits, tx)
	if tx.Kind == types.TxInitAccount {
		f.state = &types.AccountState{
			Statement:      tx.InitAccount.Statement,
			StartNexusHash: tx.InitAccount.StartNexusHash,
		}
	}
	return nil
}

func testRetryConfig() RetryConfig {
	return RetryConfig{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond, BackoffMultiplier: 2.0}
}

func newTestAdapter(t *testing.T, source *fakeSource, client *fakeCoordinator) *Adapter {
	t.Helper()
	p, err := prover.New([]byte{7}, prover.MockProof)
	if err != nil {
		t.Fatalf("prover.New: %v", err)
	}
	cfg := Config{AppId: types.AppId(1), ImgId: client.imgID, PollInterval: time.Millisecond, Retry: testRetryConfig()}
	return New(cfg, source, client, p, store.NewMemDB(), log.Default())
}

func TestInitRegistersUnregisteredApp(t *testing.T) {
	client := &fakeCoordinator{tip: types.Hash{0x01}, imgID: types.StatementDigest{1}}
	a := newTestAdapter(t, &fakeSource{}, client)

	if err := a.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if len(client.submits) != 1 || client.submits[0].Kind != types.TxInitAccount {
		t.Fatalf("expected one InitAccount submission, got %+v", client.submits)
	}
	if client.state == nil || !client.state.IsRegistered() {
		t.Fatal("account must be registered after Init")
	}
}

func TestInitSkipsRegistrationWhenAlreadyRegistered(t *testing.T) {
	client := &fakeCoordinator{state: &types.AccountState{Statement: types.StatementDigest{1}}}
	a := newTestAdapter(t, &fakeSource{}, client)

	if err := a.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if len(client.submits) != 0 {
		t.Fatalf("expected no submissions, got %+v", client.submits)
	}
}

func TestRunOnceFirstProofNeedsNoPredecessor(t *testing.T) {
	client := &fakeCoordinator{
		tip:   types.Hash{0x01},
		state: &types.AccountState{Statement: types.StatementDigest{1}, StartNexusHash: types.Hash{0x01}},
	}
	source := &fakeSource{batches: []RollupBatch{{StateRoot: types.Hash{0xaa}, Height: 0, RollupHash: types.Hash{0xbb}}}}
	a := newTestAdapter(t, source, client)

	if err := a.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(client.submits) != 1 || client.submits[0].Kind != types.TxSubmitProof {
		t.Fatalf("expected one SubmitProof submission, got %+v", client.submits)
	}
}

func TestRunOnceChainsToPreviousProof(t *testing.T) {
	client := &fakeCoordinator{
		tip:   types.Hash{0x01},
		state: &types.AccountState{Statement: types.StatementDigest{1}, StartNexusHash: types.Hash{0x01}},
	}
	source := &fakeSource{batches: []RollupBatch{
		{StateRoot: types.Hash{0xaa}, Height: 0, RollupHash: types.Hash{0xbb}},
		{StateRoot: types.Hash{0xcc}, Height: 1, RollupHash: types.Hash{0xbb}},
	}}
	a := newTestAdapter(t, source, client)

	if err := a.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce(height 0): %v", err)
	}
	if err := a.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce(height 1): %v", err)
	}
	if len(client.submits) != 2 {
		t.Fatalf("expected two SubmitProof submissions, got %d", len(client.submits))
	}
}

func TestRunOnceRejectsHeightGap(t *testing.T) {
	client := &fakeCoordinator{
		tip:   types.Hash{0x01},
		state: &types.AccountState{Statement: types.StatementDigest{1}, StartNexusHash: types.Hash{0x01}},
	}
	source := &fakeSource{batches: []RollupBatch{
		{StateRoot: types.Hash{0xaa}, Height: 0, RollupHash: types.Hash{0xbb}},
		{StateRoot: types.Hash{0xcc}, Height: 2, RollupHash: types.Hash{0xbb}}, // skips height 1
	}}
	a := newTestAdapter(t, source, client)

	if err := a.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce(height 0): %v", err)
	}
	err := a.RunOnce(context.Background())
	if err != ErrMissingPreviousProof {
		t.Fatalf("err = %v, want ErrMissingPreviousProof", err)
	}
}

func TestRunOnceRejectsRollupHashMismatch(t *testing.T) {
	client := &fakeCoordinator{
		tip:   types.Hash{0x01},
		state: &types.AccountState{Statement: types.StatementDigest{1}, StartNexusHash: types.Hash{0x01}},
	}
	source := &fakeSource{batches: []RollupBatch{
		{StateRoot: types.Hash{0xaa}, Height: 0, RollupHash: types.Hash{0xbb}},
		{StateRoot: types.Hash{0xcc}, Height: 1, RollupHash: types.Hash{0xff}}, // different rollup hash
	}}
	a := newTestAdapter(t, source, client)

	if err := a.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce(height 0): %v", err)
	}
	err := a.RunOnce(context.Background())
	if err != ErrContinuityRollupHash {
		t.Fatalf("err = %v, want ErrContinuityRollupHash", err)
	}
}
