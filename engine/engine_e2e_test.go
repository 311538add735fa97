package engine

import (
	"context"
	"testing"

	"github.com/availproject/nexus/core/types"
	"github.com/availproject/nexus/crypto"
)

// signedTx signs an unsigned transaction body with a fresh key and
// returns the signed envelope.
func signedTx(t *testing.T, tx *types.Transaction) *types.Transaction {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	tx.Signer = crypto.PubkeyToAddress(key.PublicKey)
	body, err := tx.EncodeUnsigned()
	if err != nil {
		t.Fatalf("EncodeUnsigned: %v", err)
	}
	hash := crypto.Keccak256Hash(body)
	sig, err := crypto.Sign(hash[:], key)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	copy(tx.Signature[:], sig)
	return tx
}

func initAccountTx(t *testing.T, appID types.AppId, statement types.StatementDigest, startNexusHash types.Hash) *types.Transaction {
	return signedTx(t, &types.Transaction{
		Kind: types.TxInitAccount,
		InitAccount: &types.InitAccountPayload{
			AppId:          appID,
			Statement:      statement,
			StartNexusHash: startNexusHash,
		},
	})
}

func submitProofTx(t *testing.T, appID types.AppId, statement types.StatementDigest, pi types.PublicInputs) *types.Transaction {
	return signedTx(t, &types.Transaction{
		Kind: types.TxSubmitProof,
		SubmitProof: &types.SubmitProofPayload{
			AppId:        appID,
			NexusHash:    pi.NexusHash,
			StateRoot:    pi.StateRoot,
			Height:       pi.Height,
			PublicInputs: pi,
		},
	})
}

// Scenario 1: genesis, no DA headers, the store and header window both
// stay empty and nothing is ever submitted back to the DA chain.
func TestE2EGenesisWithNoHeadersStaysEmpty(t *testing.T) {
	client := &fakeClient{}
	e, s, _ := newTestEngine(t, client)

	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !e.window.IsEmpty() {
		t.Fatal("window must stay empty with no headers processed")
	}
	version, err := s.CurrentVersion()
	if err != nil {
		t.Fatalf("CurrentVersion: %v", err)
	}
	if version != 0 {
		t.Fatalf("version = %d, want 0", version)
	}
	if len(client.submits) != 0 {
		t.Fatalf("submits = %d, want 0", len(client.submits))
	}
}

// Scenario 2: a header whose ParentHash does not match the window's
// front avail hash is rejected outright; the batch never commits.
func TestE2EOutOfOrderHeaderIsRejected(t *testing.T) {
	client := &fakeClient{}
	e, s, _ := newTestEngine(t, client)

	first := types.AvailHeader{Hash: types.Hash{0x01}, Height: 1}
	if err := e.processHeader(context.Background(), first); err != nil {
		t.Fatalf("processHeader(first): %v", err)
	}

	outOfOrder := types.AvailHeader{Hash: types.Hash{0x03}, ParentHash: types.Hash{0x99}, Height: 3}
	if err := e.processHeader(context.Background(), outOfOrder); err == nil {
		t.Fatal("expected an error for a header whose parent does not match the window front")
	}

	version, err := s.CurrentVersion()
	if err != nil {
		t.Fatalf("CurrentVersion: %v", err)
	}
	if version != 1 {
		t.Fatalf("version = %d, want 1 (rejected batch must not commit)", version)
	}
	if e.window.Len() != 1 {
		t.Fatalf("window.Len() = %d, want 1 (rejected batch must not mutate the window)", e.window.Len())
	}
}

// Scenario 3: an InitAccount registers an app in one batch, then a
// later batch with no transactions still advances the header window
// and store version while leaving the account state unchanged.
func TestE2EInitThenAdvanceWithEmptyBatch(t *testing.T) {
	client := &fakeClient{}
	e, s, pool := newTestEngine(t, client)
	appID := types.AppId(5)

	if err := pool.Add(initAccountTx(t, appID, types.StatementDigest{1}, types.Hash{0xaa})); err != nil {
		t.Fatalf("pool.Add: %v", err)
	}
	first := types.AvailHeader{Hash: types.Hash{0x01}, Height: 1}
	if err := e.processHeader(context.Background(), first); err != nil {
		t.Fatalf("processHeader(first): %v", err)
	}

	state, err := s.Get(types.DeriveAppAccountId(appID), 1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if state == nil || !state.IsRegistered() {
		t.Fatal("account must be registered after the first batch")
	}

	second := types.AvailHeader{Hash: types.Hash{0x02}, ParentHash: first.Hash, Height: 2}
	if err := e.processHeader(context.Background(), second); err != nil {
		t.Fatalf("processHeader(second): %v", err)
	}

	version, err := s.CurrentVersion()
	if err != nil {
		t.Fatalf("CurrentVersion: %v", err)
	}
	if version != 2 {
		t.Fatalf("version = %d, want 2", version)
	}
	stillRegistered, err := s.Get(types.DeriveAppAccountId(appID), 2)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stillRegistered == nil || !stillRegistered.Equal(*state) {
		t.Fatal("account state must be unchanged by an empty batch")
	}
}

// Scenario 4: a SubmitProof anchored correctly against a registered
// account's StartNexusHash, and referencing a header still present in
// the window, commits and advances the account's StateRoot/LastProofHeight.
func TestE2ESubmitProofSucceeds(t *testing.T) {
	client := &fakeClient{}
	e, s, pool := newTestEngine(t, client)
	appID := types.AppId(7)
	statement := types.StatementDigest{42}

	if err := pool.Add(initAccountTx(t, appID, statement, types.Hash{0xaa})); err != nil {
		t.Fatalf("pool.Add(init): %v", err)
	}
	genesis := types.AvailHeader{Hash: types.Hash{0x01}, Height: 1}
	if err := e.processHeader(context.Background(), genesis); err != nil {
		t.Fatalf("processHeader(genesis): %v", err)
	}

	anchorHash := e.window.First().Hash()
	pi := types.PublicInputs{
		NexusHash:      anchorHash,
		StateRoot:      types.Hash{0xbb},
		Height:         1,
		StartNexusHash: types.Hash{0xaa},
		AppId:          appID,
		ImgId:          statement,
	}
	if err := pool.Add(submitProofTx(t, appID, statement, pi)); err != nil {
		t.Fatalf("pool.Add(submit_proof): %v", err)
	}
	next := types.AvailHeader{Hash: types.Hash{0x02}, ParentHash: genesis.Hash, Height: 2}
	if err := e.processHeader(context.Background(), next); err != nil {
		t.Fatalf("processHeader(next): %v", err)
	}

	state, err := s.Get(types.DeriveAppAccountId(appID), 2)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if state == nil {
		t.Fatal("account must exist after the submit_proof batch")
	}
	if state.StateRoot != pi.StateRoot {
		t.Fatalf("StateRoot = %x, want %x", state.StateRoot, pi.StateRoot)
	}
	if state.LastProofHeight != pi.Height {
		t.Fatalf("LastProofHeight = %d, want %d", state.LastProofHeight, pi.Height)
	}
}

// Scenario 5: a SubmitProof whose PublicInputs.StartNexusHash does not
// match the registered account's StartNexusHash is rejected (wrong
// anchor) — the transaction is consumed from the mempool but the
// account state is left unchanged.
func TestE2ESubmitProofRejectsWrongAnchor(t *testing.T) {
	client := &fakeClient{}
	e, s, pool := newTestEngine(t, client)
	appID := types.AppId(8)
	statement := types.StatementDigest{7}

	if err := pool.Add(initAccountTx(t, appID, statement, types.Hash{0xaa})); err != nil {
		t.Fatalf("pool.Add(init): %v", err)
	}
	genesis := types.AvailHeader{Hash: types.Hash{0x01}, Height: 1}
	if err := e.processHeader(context.Background(), genesis); err != nil {
		t.Fatalf("processHeader(genesis): %v", err)
	}

	pi := types.PublicInputs{
		NexusHash:      e.window.First().Hash(),
		StateRoot:      types.Hash{0xcc},
		Height:         1,
		StartNexusHash: types.Hash{0xff}, // does not match the registered 0xaa
		AppId:          appID,
		ImgId:          statement,
	}
	if err := pool.Add(submitProofTx(t, appID, statement, pi)); err != nil {
		t.Fatalf("pool.Add(submit_proof): %v", err)
	}
	next := types.AvailHeader{Hash: types.Hash{0x02}, ParentHash: genesis.Hash, Height: 2}
	if err := e.processHeader(context.Background(), next); err != nil {
		t.Fatalf("processHeader(next): %v", err)
	}

	state, err := s.Get(types.DeriveAppAccountId(appID), 2)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if state == nil {
		t.Fatal("account must still exist")
	}
	if state.StateRoot != (types.Hash{}) {
		t.Fatalf("StateRoot = %x, want zero (rejected submit_proof must not advance state)", state.StateRoot)
	}
	if state.LastProofHeight != 0 {
		t.Fatalf("LastProofHeight = %d, want 0", state.LastProofHeight)
	}
}

// Scenario 6: two successive SubmitProof batches chain correctly —
// the second anchors StartNexusHash against the same registration and
// references a header the window still contains, advancing
// LastProofHeight each time, mirroring the proof-chain continuity the
// adapter enforces on its own side of the coordinator boundary.
func TestE2ESubmitProofChainsAcrossTwoBatches(t *testing.T) {
	client := &fakeClient{}
	e, s, pool := newTestEngine(t, client)
	appID := types.AppId(9)
	statement := types.StatementDigest{3}

	if err := pool.Add(initAccountTx(t, appID, statement, types.Hash{0xaa})); err != nil {
		t.Fatalf("pool.Add(init): %v", err)
	}
	genesis := types.AvailHeader{Hash: types.Hash{0x01}, Height: 1}
	if err := e.processHeader(context.Background(), genesis); err != nil {
		t.Fatalf("processHeader(genesis): %v", err)
	}

	firstPI := types.PublicInputs{
		NexusHash:      e.window.First().Hash(),
		StateRoot:      types.Hash{0xb1},
		Height:         1,
		StartNexusHash: types.Hash{0xaa},
		AppId:          appID,
		ImgId:          statement,
	}
	if err := pool.Add(submitProofTx(t, appID, statement, firstPI)); err != nil {
		t.Fatalf("pool.Add(submit_proof 1): %v", err)
	}
	second := types.AvailHeader{Hash: types.Hash{0x02}, ParentHash: genesis.Hash, Height: 2}
	if err := e.processHeader(context.Background(), second); err != nil {
		t.Fatalf("processHeader(second): %v", err)
	}

	secondPI := types.PublicInputs{
		NexusHash:      e.window.First().Hash(),
		StateRoot:      types.Hash{0xb2},
		Height:         2,
		StartNexusHash: types.Hash{0xaa},
		AppId:          appID,
		ImgId:          statement,
	}
	if err := pool.Add(submitProofTx(t, appID, statement, secondPI)); err != nil {
		t.Fatalf("pool.Add(submit_proof 2): %v", err)
	}
	third := types.AvailHeader{Hash: types.Hash{0x03}, ParentHash: second.Hash, Height: 3}
	if err := e.processHeader(context.Background(), third); err != nil {
		t.Fatalf("processHeader(third): %v", err)
	}

	state, err := s.Get(types.DeriveAppAccountId(appID), 3)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if state == nil {
		t.Fatal("account must exist after both submit_proof batches")
	}
	if state.StateRoot != secondPI.StateRoot {
		t.Fatalf("StateRoot = %x, want %x (second proof must win)", state.StateRoot, secondPI.StateRoot)
	}
	if state.LastProofHeight != 2 {
		t.Fatalf("LastProofHeight = %d, want 2", state.LastProofHeight)
	}
	if len(client.submits) != 3 {
		t.Fatalf("submits = %d, want 3", len(client.submits))
	}
	for i := 1; i < len(client.submits); i++ {
		if client.submits[i].ParentHash != client.submits[i-1].Hash() {
			t.Fatalf("submits[%d].ParentHash must equal hash(submits[%d])", i, i-1)
		}
	}
}
