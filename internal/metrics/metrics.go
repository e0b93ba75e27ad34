// Package metrics provides discovery session metrics using atomic counters.
package metrics

import (
	"sync/atomic"
	"time"
)

// Metrics holds discovery metrics using atomic counters for thread safety.
type Metrics struct {
	// RPC metrics
	rpcCallsTotal   atomic.Int64
	rpcErrorsTotal  atomic.Int64
	rpcLatencyNanos atomic.Int64

	// Scan metrics
	scansStarted   atomic.Int64
	batchesFetched atomic.Int64
	fetchErrors    atomic.Int64
	addressesSeen  atomic.Int64
	staleResults   atomic.Int64

	// Cache metrics
	cacheHits   atomic.Int64
	cacheMisses atomic.Int64

	// Selection metrics
	togglesRefused    atomic.Int64
	accountsCommitted atomic.Int64
}

// Global is the global metrics instance.
//
//nolint:gochecknoglobals // Intentional global for metrics access
var Global = &Metrics{}

// RecordRPCCall records an RPC call with its duration and success status.
func (m *Metrics) RecordRPCCall(duration time.Duration, err error) {
	m.rpcCallsTotal.Add(1)
	m.rpcLatencyNanos.Add(duration.Nanoseconds())

	if err != nil {
		m.rpcErrorsTotal.Add(1)
	}
}

// RecordScanStarted records a new scan generation.
func (m *Metrics) RecordScanStarted() {
	m.scansStarted.Add(1)
}

// RecordBatch records a completed balance fetch for one batch.
func (m *Metrics) RecordBatch(addresses int, err error) {
	if err != nil {
		m.fetchErrors.Add(1)
		return
	}
	m.batchesFetched.Add(1)
	m.addressesSeen.Add(int64(addresses))
}

// RecordStaleResult records a batch dropped because its generation was superseded.
func (m *Metrics) RecordStaleResult() {
	m.staleResults.Add(1)
}

// RecordCacheLookup records whether a batch was answered from the balance cache.
func (m *Metrics) RecordCacheLookup(hit bool) {
	if hit {
		m.cacheHits.Add(1)
		return
	}
	m.cacheMisses.Add(1)
}

// RecordToggleRefused records a selection refused by the empty-balance cap.
func (m *Metrics) RecordToggleRefused() {
	m.togglesRefused.Add(1)
}

// RecordCommit records accounts written to the store.
func (m *Metrics) RecordCommit(accounts int) {
	m.accountsCommitted.Add(int64(accounts))
}

// Snapshot is a point-in-time copy of all metrics.
type Snapshot struct {
	RPCCallsTotal     int64 `json:"rpc_calls_total"`
	RPCErrorsTotal    int64 `json:"rpc_errors_total"`
	RPCLatencyNanos   int64 `json:"rpc_latency_nanos"`
	ScansStarted      int64 `json:"scans_started"`
	BatchesFetched    int64 `json:"batches_fetched"`
	FetchErrors       int64 `json:"fetch_errors"`
	AddressesSeen     int64 `json:"addresses_seen"`
	StaleResults      int64 `json:"stale_results"`
	CacheHits         int64 `json:"cache_hits"`
	CacheMisses       int64 `json:"cache_misses"`
	TogglesRefused    int64 `json:"toggles_refused"`
	AccountsCommitted int64 `json:"accounts_committed"`
}

// Snapshot returns a point-in-time copy of all metrics.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		RPCCallsTotal:     m.rpcCallsTotal.Load(),
		RPCErrorsTotal:    m.rpcErrorsTotal.Load(),
		RPCLatencyNanos:   m.rpcLatencyNanos.Load(),
		ScansStarted:      m.scansStarted.Load(),
		BatchesFetched:    m.batchesFetched.Load(),
		FetchErrors:       m.fetchErrors.Load(),
		AddressesSeen:     m.addressesSeen.Load(),
		StaleResults:      m.staleResults.Load(),
		CacheHits:         m.cacheHits.Load(),
		CacheMisses:       m.cacheMisses.Load(),
		TogglesRefused:    m.togglesRefused.Load(),
		AccountsCommitted: m.accountsCommitted.Load(),
	}
}

// RPCCallsTotal returns the total number of RPC calls made.
func (m *Metrics) RPCCallsTotal() int64 {
	return m.rpcCallsTotal.Load()
}

// RPCErrorsTotal returns the total number of RPC errors.
func (m *Metrics) RPCErrorsTotal() int64 {
	return m.rpcErrorsTotal.Load()
}

// RPCLatencyAvgMs returns the average RPC latency in milliseconds.
// Returns 0 if no calls have been made.
func (m *Metrics) RPCLatencyAvgMs() float64 {
	calls := m.rpcCallsTotal.Load()
	if calls == 0 {
		return 0
	}
	nanos := m.rpcLatencyNanos.Load()
	return float64(nanos) / float64(calls) / 1e6
}

// FetchErrorRate returns failed batches as a percentage (0-100) of all batches.
// Returns 0 if no batches have been fetched.
func (m *Metrics) FetchErrorRate() float64 {
	ok := m.batchesFetched.Load()
	failed := m.fetchErrors.Load()
	total := ok + failed
	if total == 0 {
		return 0
	}
	return float64(failed) / float64(total) * 100
}

// Reset resets all metrics to zero.
// Useful for testing.
func (m *Metrics) Reset() {
	m.rpcCallsTotal.Store(0)
	m.rpcErrorsTotal.Store(0)
	m.rpcLatencyNanos.Store(0)
	m.scansStarted.Store(0)
	m.batchesFetched.Store(0)
	m.fetchErrors.Store(0)
	m.addressesSeen.Store(0)
	m.staleResults.Store(0)
	m.cacheHits.Store(0)
	m.cacheMisses.Store(0)
	m.togglesRefused.Store(0)
	m.accountsCommitted.Store(0)
}
