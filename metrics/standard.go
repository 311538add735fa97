package metrics

import "time"

// Pre-defined metrics for the coordinator. All metrics live in
// DefaultRegistry so they are globally accessible without passing a
// registry around, and are served over HTTP by the api package's
// /metrics endpoint (PrometheusExporter).

var (
	// ---- Coordinator engine metrics ----

	// MempoolSnapshotSize tracks the transaction count of the most
	// recent mempool snapshot taken by the execution engine loop.
	MempoolSnapshotSize = DefaultRegistry.Gauge("coordinator.mempool_snapshot_size")
	// STFDuration records execute_batch duration in milliseconds.
	STFDuration = DefaultRegistry.Histogram("coordinator.stf_duration_ms")
	// ProverDuration records recursion-prover Prove() duration in milliseconds.
	ProverDuration = DefaultRegistry.Histogram("coordinator.prover_duration_ms")
	// CommitDuration records the atomic-commit step's duration in milliseconds.
	CommitDuration = DefaultRegistry.Histogram("coordinator.commit_duration_ms")
	// BatchesCommitted counts successfully committed batches.
	BatchesCommitted = DefaultRegistry.Counter("coordinator.batches_committed")
	// EngineErrors counts batches aborted before commit.
	EngineErrors = DefaultRegistry.Counter("coordinator.engine_errors")

	// ---- Coordinator HTTP API metrics ----

	// APIRequests counts incoming HTTP API requests.
	APIRequests = DefaultRegistry.Counter("coordinator.api_requests")
	// APIErrors counts HTTP API requests that returned a non-2xx status.
	APIErrors = DefaultRegistry.Counter("coordinator.api_errors")
	// APILatency records HTTP API request latency in milliseconds.
	APILatency = DefaultRegistry.Histogram("coordinator.api_latency_ms")

	// CPUUsagePercent tracks this process's CPU utilization, sampled
	// periodically by a CPUTracker in cmd/nexus.
	CPUUsagePercent = DefaultRegistry.Gauge("coordinator.cpu_usage_percent")

	// Collector records tagged, queryable per-transaction-outcome counts
	// that Counter/Gauge/Histogram cannot express (they carry no labels);
	// the execution engine tags each processed transaction's outcome and
	// app_id so operators can break down rejection reasons per rollup.
	Collector = NewMetricsCollector(CollectorConfig{EnableHistograms: true})

	// Reporter periodically exports DefaultRegistry's snapshot to its
	// registered backends; cmd/nexus registers a logReportBackend and starts it
	// alongside the engine and API server.
	Reporter = NewMetricsReporter(30 * time.Second)
)
