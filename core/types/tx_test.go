package types

import "testing"

func TestInitAccountEncodeDecodeRoundTrip(t *testing.T) {
	want := &Transaction{
		Kind: TxInitAccount,
		InitAccount: &InitAccountPayload{
			AppId:          AppId(5),
			Statement:      StatementDigest{1, 1, 1, 1, 1, 1, 1, 1},
			StartNexusHash: HexToHash("0xaa"),
		},
		Signer:    BytesToAddress([]byte{0x01}),
		Signature: [65]byte{1, 2, 3},
	}
	enc, err := want.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(enc)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Kind != TxInitAccount {
		t.Fatalf("Kind = %v, want TxInitAccount", got.Kind)
	}
	if got.InitAccount == nil {
		t.Fatal("expected InitAccount payload")
	}
	if got.SubmitProof != nil {
		t.Fatal("unexpected SubmitProof payload")
	}
	if *got.InitAccount != *want.InitAccount {
		t.Fatalf("InitAccount payload mismatch: got %+v, want %+v", got.InitAccount, want.InitAccount)
	}
	if got.Signer != want.Signer || got.Signature != want.Signature {
		t.Fatal("signature envelope mismatch")
	}
}

func TestSubmitProofEncodeDecodeRoundTripWithData(t *testing.T) {
	data := HexToHash("0xbb")
	want := &Transaction{
		Kind: TxSubmitProof,
		SubmitProof: &SubmitProofPayload{
			AppId:     AppId(5),
			NexusHash: HexToHash("0x01"),
			StateRoot: HexToHash("0x02"),
			Proof:     []byte{0xde, 0xad, 0xbe, 0xef},
			Height:    3,
			Data:      &data,
			PublicInputs: PublicInputs{
				NexusHash:      HexToHash("0x01"),
				StateRoot:      HexToHash("0x02"),
				Height:         3,
				StartNexusHash: HexToHash("0x03"),
				AppId:          AppId(5),
				ImgId:          StatementDigest{1, 1, 1, 1, 1, 1, 1, 1},
				RollupHash:     HexToHash("0x04"),
			},
		},
	}
	enc, err := want.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(enc)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.SubmitProof == nil {
		t.Fatal("expected SubmitProof payload")
	}
	if got.SubmitProof.Data == nil || *got.SubmitProof.Data != data {
		t.Fatal("expected Data to round-trip through the optional-field encoding")
	}
	if got.SubmitProof.PublicInputs != want.SubmitProof.PublicInputs {
		t.Fatalf("PublicInputs mismatch: got %+v, want %+v", got.SubmitProof.PublicInputs, want.SubmitProof.PublicInputs)
	}
}

func TestSubmitProofWithoutDataRoundTrips(t *testing.T) {
	want := &Transaction{
		Kind: TxSubmitProof,
		SubmitProof: &SubmitProofPayload{
			AppId:  AppId(9),
			Height: 1,
		},
	}
	enc, err := want.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(enc)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.SubmitProof.Data != nil {
		t.Fatal("expected Data to remain nil when absent")
	}
}
