package api

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/availproject/nexus/core/types"
	"github.com/availproject/nexus/engine"
	"github.com/availproject/nexus/headerwindow"
	"github.com/availproject/nexus/log"
	"github.com/availproject/nexus/mempool"
	"github.com/availproject/nexus/metrics"
	"github.com/availproject/nexus/store"
)

var (
	errMissingPayload = errors.New("api: transaction kind declared without its payload")
	errUnknownTxKind  = errors.New("api: unknown transaction kind")
	errHeaderNotFound = errors.New("api: no header found for that hash")
	errNoHeaders      = errors.New("api: coordinator has not committed a header yet")
)

// Server exposes the coordinator's four read/write HTTP endpoints,
// plus GET /metrics and GET /debug/metrics, over net/http, grounded on
// the teacher's EngineAPI HTTP bootstrap
// (listener lifecycle, Start/Addr/Stop) but with one plain handler per
// endpoint instead of a single JSON-RPC dispatch, since this surface's
// method set is small and fixed.
type Server struct {
	store *store.Store
	pool  *mempool.Pool
	log   *log.Logger

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

// New constructs a Server backed by s (for header/account/range reads)
// and pool (for transaction admission).
func New(s *store.Store, pool *mempool.Pool, logger *log.Logger) *Server {
	return &Server{store: s, pool: pool, log: logger.Module("api")}
}

func (srv *Server) mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/tx", srv.instrument(srv.handleSubmitTx))
	mux.HandleFunc("/header", srv.instrument(srv.handleHeader))
	mux.HandleFunc("/account", srv.instrument(srv.handleAccount))
	mux.HandleFunc("/range", srv.instrument(srv.handleRange))
	mux.HandleFunc("/debug/metrics", srv.instrument(srv.handleDebugMetrics))
	mux.Handle("/metrics", metrics.NewPrometheusExporter(metrics.DefaultRegistry, metrics.DefaultPrometheusConfig()).Handler())
	return mux
}

// handleDebugMetrics implements GET /debug/metrics: the tagged,
// per-transaction-outcome breakdown metrics.Collector records, which
// the plain /metrics Prometheus exposition (label-free) cannot carry.
func (srv *Server) handleDebugMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errors.New("api: /debug/metrics only accepts GET"))
		return
	}
	writeOK(w, metrics.Collector.GetAll())
}

// instrument wraps a handler with the request/error/latency metrics
// every endpoint shares.
func (srv *Server) instrument(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		metrics.APIRequests.Inc()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		metrics.APILatency.Observe(float64(time.Since(start).Milliseconds()))
		if rec.status >= 400 {
			metrics.APIErrors.Inc()
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Start listens on addr and serves until Stop is called or the
// listener fails. It blocks; callers run it in its own goroutine.
func (srv *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrap(err, "api: listen")
	}

	srv.mu.Lock()
	srv.listener = ln
	srv.server = &http.Server{Handler: srv.mux()}
	srv.mu.Unlock()

	srv.log.Info("api server listening", "addr", ln.Addr().String())
	if err := srv.server.Serve(ln); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "api: serve")
	}
	return nil
}

// Addr returns the listener's address, useful when Start was called
// with port 0.
func (srv *Server) Addr() net.Addr {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.listener == nil {
		return nil
	}
	return srv.listener.Addr()
}

// Stop gracefully shuts the HTTP server down.
func (srv *Server) Stop(ctx context.Context) error {
	srv.mu.Lock()
	s := srv.server
	srv.mu.Unlock()
	if s == nil {
		return nil
	}
	return s.Shutdown(ctx)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: err.Error()})
}

func writeOK(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// handleSubmitTx implements POST /tx: decode the canonical JSON
// envelope, admit it to the mempool, and echo the decoded kind back
// on success or the rejection reason on failure.
func (srv *Server) handleSubmitTx(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, errors.New("api: /tx only accepts POST"))
		return
	}
	var dto txDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "api: decode transaction"))
		return
	}
	tx, err := txFromDTO(dto)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := srv.pool.Add(tx); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeOK(w, map[string]string{"status": "admitted", "kind": dto.Kind})
}

// handleHeader implements GET /header?hash=HEX: hash may be either a
// coordinator header hash (looked up directly) or a DA header hash
// (resolved through the avail-hash index first).
func (srv *Server) handleHeader(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errors.New("api: /header only accepts GET"))
		return
	}
	hash, err := hashFromHex(r.URL.Query().Get("hash"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "api: parse hash"))
		return
	}
	header, err := srv.lookupHeader(hash)
	if err != nil {
		if errors.Is(err, errHeaderNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeOK(w, headerToDTO(header))
}

// lookupHeader resolves hash against the coordinator-hash keyspace
// first, falling back to the avail-hash index (spec.md §6: "the hash
// may be supplied either as a coordinator hash or a DA hash").
func (srv *Server) lookupHeader(hash types.Hash) (*types.CoordinatorHeader, error) {
	enc, err := srv.store.KV().Get([]byte(engine.HeaderByHashKey(hash)))
	if err != nil {
		return nil, err
	}
	if enc != nil {
		return types.DecodeCoordinatorHeader(enc)
	}

	resolved, err := srv.store.KV().Get([]byte(engine.AvailHashIndexKey(hash)))
	if err != nil {
		return nil, err
	}
	if resolved == nil {
		return nil, errHeaderNotFound
	}
	coordHash := types.BytesToHash(resolved)
	enc, err = srv.store.KV().Get([]byte(engine.HeaderByHashKey(coordHash)))
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return nil, errHeaderNotFound
	}
	return types.DecodeCoordinatorHeader(enc)
}

// handleAccount implements GET /account?app_account_id=HEX.
func (srv *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errors.New("api: /account only accepts GET"))
		return
	}
	rawID := r.URL.Query().Get("app_account_id")
	idBytes, err := hexDecode(rawID)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "api: parse app_account_id"))
		return
	}
	accountID := types.AppAccountId(types.BytesToHash(idBytes))

	version, err := srv.store.CurrentVersion()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	nexusHeader, err := srv.currentHeader()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}

	value, proof, err := srv.store.GetWithProof(accountID, version)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	resp := accountResponse{
		NexusHeader:  headerToDTO(nexusHeader),
		AppAccountId: accountID.Hex(),
	}
	resp.Proof = make([]string, len(proof.Siblings))
	for i, s := range proof.Siblings {
		resp.Proof[i] = s.Hex()
	}
	if value != nil {
		dto := accountToDTO(*value)
		resp.Account = &dto
		enc, err := value.Encode()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		sum := sha256.Sum256(enc)
		resp.ValueHash = types.Hash(sum).Hex()
	} else {
		resp.ValueHash = types.Hash{}.Hex()
	}
	writeOK(w, resp)
}

// currentHeader returns the coordinator header at the latest committed
// version, which is always the header window's front once at least
// one batch has been committed (the two advance in lockstep: every
// processHeader call both increments the store's version by one and
// pushes exactly one header onto the window).
func (srv *Server) currentHeader() (*types.CoordinatorHeader, error) {
	raw, err := srv.store.KV().Get([]byte(engine.HeaderWindowKey))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, errNoHeaders
	}
	window, err := headerwindow.Decode(raw)
	if err != nil {
		return nil, err
	}
	if window.IsEmpty() {
		return nil, errNoHeaders
	}
	return window.First(), nil
}

// handleRange implements GET /range: the header window's hashes,
// newest first.
func (srv *Server) handleRange(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errors.New("api: /range only accepts GET"))
		return
	}
	raw, err := srv.store.KV().Get([]byte(engine.HeaderWindowKey))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if raw == nil {
		writeOK(w, rangeResponse{Headers: []string{}})
		return
	}
	window, err := headerwindow.Decode(raw)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	inner := window.Inner()
	hashes := make([]string, len(inner))
	for i, h := range inner {
		hashes[i] = h.Hash().Hex()
	}
	writeOK(w, rangeResponse{Headers: hashes})
}
