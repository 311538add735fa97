package types

import (
	"github.com/availproject/nexus/rlp"
)

// TxKind discriminates the two Transaction variants.
type TxKind uint8

const (
	TxInitAccount TxKind = iota
	TxSubmitProof
)

// InitAccountPayload registers a previously-unregistered app.
type InitAccountPayload struct {
	AppId          AppId
	Statement      StatementDigest
	StartNexusHash Hash
}

// PublicInputs is the journal a rollup's recursive proof commits to
// (NexusRollupPI in the adapter's terminology).
type PublicInputs struct {
	NexusHash      Hash
	StateRoot      Hash
	Height         uint32
	StartNexusHash Hash
	AppId          AppId
	ImgId          StatementDigest
	RollupHash     Hash
}

// SubmitProofPayload advances an already-registered app.
type SubmitProofPayload struct {
	AppId        AppId
	NexusHash    Hash
	StateRoot    Hash
	Proof        []byte
	Height       uint32
	Data         *Hash // optional extra commitment; nil when absent
	PublicInputs PublicInputs
}

// rlpSubmitProof mirrors SubmitProofPayload, carrying Data as a
// presence flag plus value, since RLP has no native optional-value
// encoding.
type rlpSubmitProof struct {
	AppId        AppId
	NexusHash    Hash
	StateRoot    Hash
	Proof        []byte
	Height       uint32
	HasData      bool
	Data         Hash
	PublicInputs PublicInputs
}

// Transaction is a signed envelope carrying exactly one of
// InitAccount or SubmitProof.
type Transaction struct {
	Kind        TxKind
	InitAccount *InitAccountPayload
	SubmitProof *SubmitProofPayload

	// Signer and signature fields of the envelope. Signature is a
	// 65-byte compact ECDSA signature (R || S || V) over Keccak256 of
	// the unsigned body's canonical encoding; see the crypto package
	// for signing and recovery.
	Signer    Address
	Signature [65]byte
}

// rlpUnsignedTx is the canonical encoding of a Transaction's unsigned
// body: the part that is hashed and signed. Encode wraps it together
// with the Signer and Signature to form the full envelope.
type rlpUnsignedTx struct {
	Kind           TxKind
	InitAccount    InitAccountPayload
	HasInitAccount bool
	SubmitProof    rlpSubmitProof
	HasSubmitProof bool
}

// EncodeUnsigned returns the canonical encoding of the transaction body
// that is hashed and signed.
func (tx *Transaction) EncodeUnsigned() ([]byte, error) {
	raw := rlpUnsignedTx{Kind: tx.Kind}
	if tx.InitAccount != nil {
		raw.InitAccount = *tx.InitAccount
		raw.HasInitAccount = true
	}
	if tx.SubmitProof != nil {
		raw.SubmitProof = rlpSubmitProof{
			AppId:        tx.SubmitProof.AppId,
			NexusHash:    tx.SubmitProof.NexusHash,
			StateRoot:    tx.SubmitProof.StateRoot,
			Proof:        tx.SubmitProof.Proof,
			Height:       tx.SubmitProof.Height,
			PublicInputs: tx.SubmitProof.PublicInputs,
		}
		if tx.SubmitProof.Data != nil {
			raw.SubmitProof.HasData = true
			raw.SubmitProof.Data = *tx.SubmitProof.Data
		}
		raw.HasSubmitProof = true
	}
	return rlp.EncodeToBytes(raw)
}

// Encode returns the canonical encoding of the full signed envelope.
func (tx *Transaction) Encode() ([]byte, error) {
	body, err := tx.EncodeUnsigned()
	if err != nil {
		return nil, err
	}
	return rlp.EncodeToBytes(struct {
		Body      []byte
		Signer    Address
		Signature [65]byte
	}{body, tx.Signer, tx.Signature})
}

// Decode decodes a Transaction from its canonical encoding, including
// the signature and claimed signer (callers that need an authenticated
// signer should re-derive it via signature recovery rather than
// trusting the encoded field).
func Decode(data []byte) (*Transaction, error) {
	var env struct {
		Body      []byte
		Signer    Address
		Signature [65]byte
	}
	if err := rlp.DecodeBytes(data, &env); err != nil {
		return nil, err
	}
	var raw rlpUnsignedTx
	if err := rlp.DecodeBytes(env.Body, &raw); err != nil {
		return nil, err
	}
	tx := &Transaction{Kind: raw.Kind, Signer: env.Signer, Signature: env.Signature}
	if raw.HasInitAccount {
		p := raw.InitAccount
		tx.InitAccount = &p
	}
	if raw.HasSubmitProof {
		p := SubmitProofPayload{
			AppId:        raw.SubmitProof.AppId,
			NexusHash:    raw.SubmitProof.NexusHash,
			StateRoot:    raw.SubmitProof.StateRoot,
			Proof:        raw.SubmitProof.Proof,
			Height:       raw.SubmitProof.Height,
			PublicInputs: raw.SubmitProof.PublicInputs,
		}
		if raw.SubmitProof.HasData {
			d := raw.SubmitProof.Data
			p.Data = &d
		}
		tx.SubmitProof = &p
	}
	return tx, nil
}
