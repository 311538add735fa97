package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/availproject/nexus/core/types"
)

// HTTPClient is the adapter-facing implementation of
// adapter.CoordinatorClient (named structurally here rather than
// imported, so the api package does not depend on adapter): it talks
// to a running Server over plain HTTP, the concrete client helper
// adapter.go's own doc comment defers to.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient returns a client that talks to a Server listening at
// baseURL (e.g. "http://127.0.0.1:8090").
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{baseURL: baseURL, http: &http.Client{Timeout: 10 * time.Second}}
}

// AccountState queries GET /account and returns nil if the rollup has
// never been registered.
func (c *HTTPClient) AccountState(ctx context.Context, appID types.AppId) (*types.AccountState, error) {
	accountID := types.DeriveAppAccountId(appID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/account?app_account_id="+accountID.Hex(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}
	var body accountResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	if body.Account == nil {
		return nil, nil
	}
	state, err := accountFromDTO(*body.Account)
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// RangeTip queries GET /range and returns the newest coordinator
// header hash, or the zero hash if the coordinator has not committed
// a header yet.
func (c *HTTPClient) RangeTip(ctx context.Context) (types.Hash, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/range", nil)
	if err != nil {
		return types.Hash{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return types.Hash{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return types.Hash{}, decodeAPIError(resp)
	}
	var body rangeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return types.Hash{}, err
	}
	if len(body.Headers) == 0 {
		return types.Hash{}, nil
	}
	return hashFromHex(body.Headers[0])
}

// SubmitTx posts tx's canonical JSON envelope to POST /tx.
func (c *HTTPClient) SubmitTx(ctx context.Context, tx *types.Transaction) error {
	dto, err := txToDTO(tx)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(dto); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tx", &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	var body errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Error == "" {
		return errors.Newf("api: request failed with status %s", resp.Status)
	}
	return errors.New(body.Error)
}
