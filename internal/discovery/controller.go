package discovery

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/mrz1836/hdwscan/internal/amount"
	"github.com/mrz1836/hdwscan/internal/dpath"
	"github.com/mrz1836/hdwscan/internal/ledger"
	"github.com/mrz1836/hdwscan/internal/metrics"
	hdwerr "github.com/mrz1836/hdwscan/pkg/errors"
)

// Controller runs discovery for one scope at a time.
//
// Fetches run concurrently, but their results are folded into the ledger
// under mu, one batch at a time. Every scope change bumps the generation;
// results tagged with an older generation are dropped.
type Controller struct {
	fetcher BalanceFetcher
	opts    *Options
	logger  Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	state   State
	gen     uint64
	scope   Scope
	ledger  ledger.Ledger
	scanned []ledger.Account
	index   map[string]int // address -> position in scanned
	paths   map[string]*pathProgress
	run     *scanRun
	sem     chan struct{}
}

// pathProgress tracks how far a path has been scanned.
type pathProgress struct {
	next        int // highest seen index + 1
	autoScanned int // addresses fetched by automatic continuation
}

// scanRun is one Scanning phase. It ends when its last request returns, or
// when the caller completes or resets the scan.
type scanRun struct {
	ctx      context.Context //nolint:containedctx // Scoped to a single scanning phase
	cancel   context.CancelFunc
	inflight int
	done     chan struct{}
}

// fetchJob is a single balance request.
type fetchJob struct {
	path  dpath.DPath
	start int
	count int
	auto  bool
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Error(string, ...any) {}

// NewController creates a discovery controller. A nil logger discards output.
func NewController(fetcher BalanceFetcher, opts *Options, logger Logger) *Controller {
	if opts == nil {
		opts = DefaultOptions()
	}
	if logger == nil {
		logger = nopLogger{}
	}
	return &Controller{
		fetcher: fetcher,
		opts:    opts,
		logger:  logger,
		metrics: metrics.Global,
		index:   make(map[string]int),
		paths:   make(map[string]*pathProgress),
	}
}

// StartScan begins scanning every path of scope from index 0.
//
// A scope that differs from the current one resets the session first. The
// same scope rescans from 0, refreshing balances and keeping selections.
// Starting while a scan is running fails with ErrInvalidState.
func (c *Controller) StartScan(ctx context.Context, scope Scope) error {
	if err := c.opts.Validate(); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	if err := scope.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	if c.state == StateScanning {
		c.mu.Unlock()
		return c.stateError("start scan")
	}

	if !c.scope.Same(scope) {
		c.resetLocked()
		c.scope = scope.clone()
	} else {
		c.gen++
	}
	c.metrics.RecordScanStarted()
	c.logger.Debug("discovery: starting scan gen=%d asset=%s network=%s paths=%d",
		c.gen, scope.Asset, scope.Network, len(scope.Paths))

	c.beginLocked(ctx)
	for _, p := range c.scope.Paths {
		progress := c.progressLocked(p)
		progress.autoScanned = 0
		c.dispatchLocked(fetchJob{path: p, start: 0, count: c.autoBatchLocked(progress), auto: true})
	}
	update := c.progressUpdateLocked(PhaseScanning, "", fmt.Sprintf("Scanning %d paths...", len(c.scope.Paths)))
	c.mu.Unlock()

	c.report(update)
	return nil
}

// AddPath adds a path to the current scope and scans it from index 0
// without resetting the ledger. It is valid while scanning or completed.
func (c *Controller) AddPath(ctx context.Context, path dpath.DPath) error {
	if err := path.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	if c.state == StateIdle {
		c.mu.Unlock()
		return c.stateError("add path")
	}
	if c.scope.Has(path) {
		c.mu.Unlock()
		return hdwerr.WithDetails(hdwerr.ErrInvalidInput, map[string]string{
			"path":   path.Label,
			"reason": "path already in scope",
		})
	}

	c.scope.Paths = append(c.scope.Paths, path)
	c.beginLocked(ctx)
	progress := c.progressLocked(path)
	c.dispatchLocked(fetchJob{path: path, start: 0, count: c.autoBatchLocked(progress), auto: true})
	update := c.progressUpdateLocked(PhaseScanning, path.Label, fmt.Sprintf("Scanning %s...", path.Label))
	c.mu.Unlock()

	c.report(update)
	return nil
}

// ScanMore requests the next batch for path, continuing from the highest
// seen index + 1. It is only valid once the scan has completed.
func (c *Controller) ScanMore(ctx context.Context, path dpath.DPath) error {
	c.mu.Lock()
	if c.state != StateCompleted {
		c.mu.Unlock()
		return c.stateError("scan more")
	}
	if !c.scope.Has(path) {
		c.mu.Unlock()
		return hdwerr.WithDetails(hdwerr.ErrUnknownPath, map[string]string{
			"label":  path.Label,
			"value":  path.Value,
			"reason": "path not in scope",
		})
	}

	c.beginLocked(ctx)
	progress := c.progressLocked(path)
	c.dispatchLocked(fetchJob{path: path, start: progress.next, count: c.opts.BatchSize})
	update := c.progressUpdateLocked(PhaseScanning, path.Label,
		fmt.Sprintf("Scanning %s from index %d...", path.Label, progress.next))
	c.mu.Unlock()

	c.report(update)
	return nil
}

// OnScanResult folds a batch of results for path into the ledger.
//
// Results tagged with a stale generation are dropped and false is returned.
// Results are deduplicated by address (first occurrence wins) and must
// belong to path; invalid results fail with ErrInvalidAccount and leave the
// ledger unchanged.
func (c *Controller) OnScanResult(gen uint64, path dpath.DPath, results []ledger.Account) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		c.dropStaleLocked(gen, path)
		return false, nil
	}
	if err := c.applyLocked(path, results); err != nil {
		return false, err
	}
	return true, nil
}

// CompleteScan marks the scan as completed and cancels outstanding
// requests. Calling it when not scanning is a no-op.
func (c *Controller) CompleteScan() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.completeLocked()
}

// Reset cancels outstanding requests and discards the scope, the scan set
// and the ledger. The controller returns to Idle.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.resetLocked()
}

// Toggle flips the selection of address, subject to the empty balance cap.
// It reports whether the selection changed.
func (c *Controller) Toggle(address string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.toggleLocked(address)
}

// SetSelected moves address to the requested selection state. Unknown
// addresses fail with ErrNotFound. A refusal by the empty balance cap, or a
// no-op, reports false.
func (c *Controller) SetSelected(address string, selected bool) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.ledger.Get(address)
	if !ok {
		return false, hdwerr.WithDetails(hdwerr.ErrNotFound, map[string]string{"address": address})
	}
	if entry.IsSelected == selected {
		return false, nil
	}
	return c.toggleLocked(address), nil
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		State:      c.state,
		Generation: c.gen,
		Scope:      c.scope.clone(),
		Ledger:     c.ledger,
		Scanned:    slices.Clone(c.scanned),
	}
}

// State returns the current scan state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Wait blocks until the controller is no longer scanning or ctx is done.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	run := c.run
	c.mu.Unlock()

	if run == nil {
		return nil
	}
	select {
	case <-run.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Options returns the controller options.
func (c *Controller) Options() Options {
	return *c.opts
}

func (c *Controller) stateError(operation string) error {
	return hdwerr.WithDetails(hdwerr.ErrInvalidState, map[string]string{
		"operation": operation,
		"state":     c.state.String(),
	})
}

func (c *Controller) toggleLocked(address string) bool {
	next, changed := ledger.Toggle(c.ledger, address, c.opts.EmptyBalanceCap)
	if !changed {
		if _, ok := c.ledger.Get(address); ok {
			c.metrics.RecordToggleRefused()
			c.logger.Debug("discovery: selection of %s refused, %d empty addresses already selected",
				address, len(c.ledger.EmptyBalanceSelected()))
		}
		return false
	}
	c.ledger = next
	return true
}

// beginLocked enters Scanning, reusing the current run if one is active.
func (c *Controller) beginLocked(ctx context.Context) {
	if c.sem == nil {
		c.sem = make(chan struct{}, c.opts.MaxConcurrent)
	}
	c.state = StateScanning
	if c.run != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.run = &scanRun{ctx: runCtx, cancel: cancel, done: make(chan struct{})}
}

func (c *Controller) completeLocked() {
	if c.state != StateScanning {
		return
	}
	c.endRunLocked()
	c.state = StateCompleted
	c.logger.Debug("discovery: scan completed gen=%d addresses=%d selected=%d",
		c.gen, len(c.scanned), len(c.ledger.Selected()))
}

func (c *Controller) endRunLocked() {
	if c.run == nil {
		return
	}
	c.run.cancel()
	close(c.run.done)
	c.run = nil
}

func (c *Controller) resetLocked() {
	c.endRunLocked()
	c.gen++
	c.state = StateIdle
	c.scope = Scope{}
	c.scanned = nil
	c.index = make(map[string]int)
	c.paths = make(map[string]*pathProgress)
	// An empty batch on a non-empty ledger clears it.
	c.ledger, _ = ledger.Merge(c.ledger, nil)
}

func (c *Controller) progressLocked(path dpath.DPath) *pathProgress {
	p, ok := c.paths[path.Value]
	if !ok {
		p = &pathProgress{}
		c.paths[path.Value] = p
	}
	return p
}

// autoBatchLocked sizes an automatic request so it stays within MaxAddresses.
func (c *Controller) autoBatchLocked(p *pathProgress) int {
	count := c.opts.BatchSize
	if c.opts.MaxAddresses > 0 {
		count = min(count, c.opts.MaxAddresses-p.autoScanned)
	}
	return count
}

func (c *Controller) dropStaleLocked(gen uint64, path dpath.DPath) {
	c.metrics.RecordStaleResult()
	c.logger.Debug("discovery: dropping stale results for %s gen=%d current=%d", path.Label, gen, c.gen)
}

// applyLocked validates and merges one batch. The ledger, the scan set and
// the path progress change only if the whole batch is valid.
func (c *Controller) applyLocked(path dpath.DPath, results []ledger.Account) error {
	if !c.scope.Has(path) {
		return hdwerr.WithDetails(hdwerr.ErrUnknownPath, map[string]string{
			"label":  path.Label,
			"value":  path.Value,
			"reason": "path not in scope",
		})
	}

	batch := make([]ledger.Account, 0, len(results))
	seen := make(map[string]struct{}, len(results))
	for _, r := range results {
		if _, dup := seen[r.Address]; dup {
			continue
		}
		seen[r.Address] = struct{}{}
		if !r.BaseDPath.IsZero() && !r.BaseDPath.Same(path) {
			return hdwerr.WithDetails(hdwerr.ErrInvalidAccount, map[string]string{
				"address": r.Address,
				"reason":  "result does not belong to " + path.Label,
			})
		}
		batch = append(batch, r)
	}
	if len(batch) == 0 {
		return nil
	}

	merged, err := ledger.Merge(c.ledger, batch)
	if err != nil {
		return err
	}
	c.ledger = merged

	progress := c.progressLocked(path)
	for _, r := range batch {
		if i, ok := c.index[r.Address]; ok {
			c.scanned[i] = r
		} else {
			c.index[r.Address] = len(c.scanned)
			c.scanned = append(c.scanned, r)
		}
		progress.next = max(progress.next, r.PathIndex+1)
	}
	return nil
}

// shouldContinueLocked applies the gap policy to an automatic batch.
func (c *Controller) shouldContinueLocked(job fetchJob, results []ledger.Account) bool {
	if !job.auto || c.opts.GapLimit == 0 || len(results) == 0 {
		return false
	}
	progress := c.progressLocked(job.path)
	if c.opts.MaxAddresses > 0 && progress.autoScanned >= c.opts.MaxAddresses {
		return false
	}
	tail := results[max(0, len(results)-c.opts.GapLimit):]
	return slices.ContainsFunc(tail, func(a ledger.Account) bool {
		return amount.NonZero(a.Balance)
	})
}

func (c *Controller) progressUpdateLocked(phase, label, message string) ProgressUpdate {
	return ProgressUpdate{
		Phase:            phase,
		PathLabel:        label,
		AddressesScanned: len(c.scanned),
		Selected:         len(c.ledger.Selected()),
		Message:          message,
	}
}

func (c *Controller) report(update ProgressUpdate) {
	if c.opts.ProgressCallback != nil && update.Phase != "" {
		c.opts.ProgressCallback(update)
	}
}
