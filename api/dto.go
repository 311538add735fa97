// Package api implements the coordinator's external HTTP surface (C9):
// transaction admission, header/account lookups, and the recent-header
// range, over plain net/http handlers (grounded on the teacher's
// engine/server.go HTTP bootstrap, simplified since this surface's
// semantics are fixed and transport-agnostic).
package api

import (
	"encoding/hex"
	"strings"

	"github.com/availproject/nexus/core/types"
)

func hexEncode(b []byte) string { return "0x" + hex.EncodeToString(b) }

func hexDecode(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s)%2 == 1 {
		s = "0" + s
	}
	return hex.DecodeString(s)
}

func hashFromHex(s string) (types.Hash, error) {
	b, err := hexDecode(s)
	if err != nil {
		return types.Hash{}, err
	}
	return types.BytesToHash(b), nil
}

func addressFromHex(s string) (types.Address, error) {
	b, err := hexDecode(s)
	if err != nil {
		return types.Address{}, err
	}
	return types.BytesToAddress(b), nil
}

func statementDigestFromHex(s string) (types.StatementDigest, error) {
	b, err := hexDecode(s)
	if err != nil {
		return types.StatementDigest{}, err
	}
	var d types.StatementDigest
	for i := range d {
		if i*4+4 <= len(b) {
			d[i] = uint32(b[i*4])<<24 | uint32(b[i*4+1])<<16 | uint32(b[i*4+2])<<8 | uint32(b[i*4+3])
		}
	}
	return d, nil
}

func statementDigestToHex(d types.StatementDigest) string { return hexEncode(d.Bytes()) }

// publicInputsDTO is the JSON mirror of types.PublicInputs, every hash
// and digest field hex-rendered.
type publicInputsDTO struct {
	NexusHash      string `json:"nexus_hash"`
	StateRoot      string `json:"state_root"`
	Height         uint32 `json:"height"`
	StartNexusHash string `json:"start_nexus_hash"`
	AppId          uint32 `json:"app_id"`
	ImgId          string `json:"img_id"`
	RollupHash     string `json:"rollup_hash"`
}

func publicInputsToDTO(pi types.PublicInputs) publicInputsDTO {
	return publicInputsDTO{
		NexusHash:      pi.NexusHash.Hex(),
		StateRoot:      pi.StateRoot.Hex(),
		Height:         pi.Height,
		StartNexusHash: pi.StartNexusHash.Hex(),
		AppId:          uint32(pi.AppId),
		ImgId:          statementDigestToHex(pi.ImgId),
		RollupHash:     pi.RollupHash.Hex(),
	}
}

func publicInputsFromDTO(d publicInputsDTO) (types.PublicInputs, error) {
	var pi types.PublicInputs
	var err error
	if pi.NexusHash, err = hashFromHex(d.NexusHash); err != nil {
		return pi, err
	}
	if pi.StateRoot, err = hashFromHex(d.StateRoot); err != nil {
		return pi, err
	}
	if pi.StartNexusHash, err = hashFromHex(d.StartNexusHash); err != nil {
		return pi, err
	}
	if pi.RollupHash, err = hashFromHex(d.RollupHash); err != nil {
		return pi, err
	}
	if pi.ImgId, err = statementDigestFromHex(d.ImgId); err != nil {
		return pi, err
	}
	pi.Height = d.Height
	pi.AppId = types.AppId(d.AppId)
	return pi, nil
}

// initAccountDTO mirrors types.InitAccountPayload.
type initAccountDTO struct {
	AppId          uint32 `json:"app_id"`
	Statement      string `json:"statement"`
	StartNexusHash string `json:"start_nexus_hash"`
}

// submitProofDTO mirrors types.SubmitProofPayload.
type submitProofDTO struct {
	AppId        uint32          `json:"app_id"`
	NexusHash    string          `json:"nexus_hash"`
	StateRoot    string          `json:"state_root"`
	Proof        string          `json:"proof"`
	Height       uint32          `json:"height"`
	Data         *string         `json:"data,omitempty"`
	PublicInputs publicInputsDTO `json:"public_inputs"`
}

// txDTO is the canonical JSON envelope POST /tx accepts and admits to
// the mempool.
type txDTO struct {
	Kind        string          `json:"kind"`
	InitAccount *initAccountDTO `json:"init_account,omitempty"`
	SubmitProof *submitProofDTO `json:"submit_proof,omitempty"`
	Signer      string          `json:"signer"`
	Signature   string          `json:"signature"`
}

func txToDTO(tx *types.Transaction) (txDTO, error) {
	dto := txDTO{Signer: tx.Signer.Hex(), Signature: hexEncode(tx.Signature[:])}
	switch tx.Kind {
	case types.TxInitAccount:
		dto.Kind = "init_account"
		dto.InitAccount = &initAccountDTO{
			AppId:          uint32(tx.InitAccount.AppId),
			Statement:      statementDigestToHex(tx.InitAccount.Statement),
			StartNexusHash: tx.InitAccount.StartNexusHash.Hex(),
		}
	case types.TxSubmitProof:
		dto.Kind = "submit_proof"
		sp := &submitProofDTO{
			AppId:        uint32(tx.SubmitProof.AppId),
			NexusHash:    tx.SubmitProof.NexusHash.Hex(),
			StateRoot:    tx.SubmitProof.StateRoot.Hex(),
			Proof:        hexEncode(tx.SubmitProof.Proof),
			Height:       tx.SubmitProof.Height,
			PublicInputs: publicInputsToDTO(tx.SubmitProof.PublicInputs),
		}
		if tx.SubmitProof.Data != nil {
			h := tx.SubmitProof.Data.Hex()
			sp.Data = &h
		}
		dto.SubmitProof = sp
	}
	return dto, nil
}

func txFromDTO(dto txDTO) (*types.Transaction, error) {
	tx := &types.Transaction{}
	signer, err := addressFromHex(dto.Signer)
	if err != nil {
		return nil, err
	}
	tx.Signer = signer
	sig, err := hexDecode(dto.Signature)
	if err != nil {
		return nil, err
	}
	copy(tx.Signature[:], sig)

	switch dto.Kind {
	case "init_account":
		if dto.InitAccount == nil {
			return nil, errMissingPayload
		}
		statement, err := statementDigestFromHex(dto.InitAccount.Statement)
		if err != nil {
			return nil, err
		}
		start, err := hashFromHex(dto.InitAccount.StartNexusHash)
		if err != nil {
			return nil, err
		}
		tx.Kind = types.TxInitAccount
		tx.InitAccount = &types.InitAccountPayload{
			AppId:          types.AppId(dto.InitAccount.AppId),
			Statement:      statement,
			StartNexusHash: start,
		}
	case "submit_proof":
		if dto.SubmitProof == nil {
			return nil, errMissingPayload
		}
		nexusHash, err := hashFromHex(dto.SubmitProof.NexusHash)
		if err != nil {
			return nil, err
		}
		stateRoot, err := hashFromHex(dto.SubmitProof.StateRoot)
		if err != nil {
			return nil, err
		}
		proof, err := hexDecode(dto.SubmitProof.Proof)
		if err != nil {
			return nil, err
		}
		pi, err := publicInputsFromDTO(dto.SubmitProof.PublicInputs)
		if err != nil {
			return nil, err
		}
		tx.Kind = types.TxSubmitProof
		tx.SubmitProof = &types.SubmitProofPayload{
			AppId:        types.AppId(dto.SubmitProof.AppId),
			NexusHash:    nexusHash,
			StateRoot:    stateRoot,
			Proof:        proof,
			Height:       dto.SubmitProof.Height,
			PublicInputs: pi,
		}
		if dto.SubmitProof.Data != nil {
			h, err := hashFromHex(*dto.SubmitProof.Data)
			if err != nil {
				return nil, err
			}
			tx.SubmitProof.Data = &h
		}
	default:
		return nil, errUnknownTxKind
	}
	return tx, nil
}

// headerDTO mirrors types.CoordinatorHeader, with its derived hash
// included for convenience.
type headerDTO struct {
	Hash            string `json:"hash"`
	ParentHash      string `json:"parent_hash"`
	PrevStateRoot   string `json:"prev_state_root"`
	StateRoot       string `json:"state_root"`
	TxRoot          string `json:"tx_root"`
	AvailHeaderHash string `json:"avail_header_hash"`
	Number          uint32 `json:"number"`
}

func headerToDTO(h *types.CoordinatorHeader) headerDTO {
	return headerDTO{
		Hash:            h.Hash().Hex(),
		ParentHash:      h.ParentHash.Hex(),
		PrevStateRoot:   h.PrevStateRoot.Hex(),
		StateRoot:       h.StateRoot.Hex(),
		TxRoot:          h.TxRoot.Hex(),
		AvailHeaderHash: h.AvailHeaderHash.Hex(),
		Number:          h.Number,
	}
}

func headerFromDTO(d headerDTO) (*types.CoordinatorHeader, error) {
	h := &types.CoordinatorHeader{Number: d.Number}
	var err error
	if h.ParentHash, err = hashFromHex(d.ParentHash); err != nil {
		return nil, err
	}
	if h.PrevStateRoot, err = hashFromHex(d.PrevStateRoot); err != nil {
		return nil, err
	}
	if h.StateRoot, err = hashFromHex(d.StateRoot); err != nil {
		return nil, err
	}
	if h.TxRoot, err = hashFromHex(d.TxRoot); err != nil {
		return nil, err
	}
	if h.AvailHeaderHash, err = hashFromHex(d.AvailHeaderHash); err != nil {
		return nil, err
	}
	return h, nil
}

// accountDTO mirrors types.AccountState.
type accountDTO struct {
	Statement       string `json:"statement"`
	StateRoot       string `json:"state_root"`
	StartNexusHash  string `json:"start_nexus_hash"`
	LastProofHeight uint32 `json:"last_proof_height"`
	Height          uint32 `json:"height"`
}

func accountToDTO(a types.AccountState) accountDTO {
	return accountDTO{
		Statement:       statementDigestToHex(a.Statement),
		StateRoot:       a.StateRoot.Hex(),
		StartNexusHash:  a.StartNexusHash.Hex(),
		LastProofHeight: a.LastProofHeight,
		Height:          a.Height,
	}
}

func accountFromDTO(d accountDTO) (types.AccountState, error) {
	var a types.AccountState
	var err error
	if a.Statement, err = statementDigestFromHex(d.Statement); err != nil {
		return a, err
	}
	if a.StateRoot, err = hashFromHex(d.StateRoot); err != nil {
		return a, err
	}
	if a.StartNexusHash, err = hashFromHex(d.StartNexusHash); err != nil {
		return a, err
	}
	a.LastProofHeight = d.LastProofHeight
	a.Height = d.Height
	return a, nil
}

// accountResponse is GET /account's body: the account value (nil for
// a non-membership result), its inclusion/exclusion proof, a
// convenience hash of the encoded value, and the coordinator header
// the proof is verifiable against.
type accountResponse struct {
	Account      *accountDTO `json:"account"`
	Proof        []string    `json:"proof"`
	ValueHash    string      `json:"value_hash"`
	NexusHeader  headerDTO   `json:"nexus_header"`
	AppAccountId string      `json:"app_account_id"`
}

// rangeResponse is GET /range's body: recent coordinator header
// hashes, newest first, mirroring the header window's own ordering.
type rangeResponse struct {
	Headers []string `json:"headers"`
}

// errorResponse is the JSON body every non-2xx response carries.
type errorResponse struct {
	Error string `json:"error"`
}
