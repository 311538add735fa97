package api

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/availproject/nexus/core/types"
)

func TestHTTPClientRoundTrip(t *testing.T) {
	srv, _, _, appID, _ := setup(t)
	ts := httptest.NewServer(srv.mux())
	defer ts.Close()

	client := NewHTTPClient(ts.URL)

	state, err := client.AccountState(context.Background(), appID)
	if err != nil {
		t.Fatalf("AccountState: %v", err)
	}
	if state == nil || !state.IsRegistered() {
		t.Fatal("expected a registered account")
	}

	tip, err := client.RangeTip(context.Background())
	if err != nil {
		t.Fatalf("RangeTip: %v", err)
	}
	if tip.IsZero() {
		t.Fatal("expected a non-zero tip after one committed batch")
	}

	tx := signedInitAccountTx(t, types.AppId(555))
	if err := client.SubmitTx(context.Background(), tx); err != nil {
		t.Fatalf("SubmitTx: %v", err)
	}
}

func TestHTTPClientAccountStateUnregisteredIsNil(t *testing.T) {
	srv, _, _, _, _ := setup(t)
	ts := httptest.NewServer(srv.mux())
	defer ts.Close()

	client := NewHTTPClient(ts.URL)
	state, err := client.AccountState(context.Background(), types.AppId(999999))
	if err != nil {
		t.Fatalf("AccountState: %v", err)
	}
	if state != nil {
		t.Fatal("expected nil for an unregistered app")
	}
}
