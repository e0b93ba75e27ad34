// Package discovery drives account discovery over HD derivation paths.
//
// A Controller owns one discovery session: it requests balance batches from a
// BalanceFetcher, folds the results into a selection ledger and tracks the
// scan state. All ledger writes go through the controller's lock, so
// concurrent fetches never interleave a merge.
package discovery

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/mrz1836/hdwscan/internal/dpath"
	"github.com/mrz1836/hdwscan/internal/ledger"
	hdwerr "github.com/mrz1836/hdwscan/pkg/errors"
)

// Default scanning parameters.
const (
	// DefaultBatchSize is the number of addresses requested per fetch.
	DefaultBatchSize = 10

	// DefaultGapLimit is how many trailing entries of a batch are checked
	// for funds before the next batch is requested automatically.
	DefaultGapLimit = 5

	// DefaultMaxAddresses caps automatic scanning per path. ScanMore is not
	// subject to it.
	DefaultMaxAddresses = 100

	// DefaultMaxConcurrent limits parallel fetch requests.
	DefaultMaxConcurrent = 3

	// DefaultTimeout is the default context timeout for a discovery run.
	DefaultTimeout = 5 * time.Minute
)

// Errors specific to discovery options.
var (
	// ErrInvalidBatchSize indicates the batch size is invalid.
	ErrInvalidBatchSize = &hdwerr.Error{
		Code:     "INVALID_BATCH_SIZE",
		Message:  "batch size must be positive",
		ExitCode: hdwerr.ExitInput,
	}

	// ErrInvalidGapLimit indicates the gap limit is invalid.
	ErrInvalidGapLimit = &hdwerr.Error{
		Code:     "INVALID_GAP_LIMIT",
		Message:  "gap limit must not be negative",
		ExitCode: hdwerr.ExitInput,
	}

	// ErrInvalidMaxConcurrent indicates max concurrent is invalid.
	ErrInvalidMaxConcurrent = &hdwerr.Error{
		Code:     "INVALID_MAX_CONCURRENT",
		Message:  "max concurrent must be positive",
		ExitCode: hdwerr.ExitInput,
	}

	// ErrInvalidEmptyCap indicates the empty balance cap is invalid.
	ErrInvalidEmptyCap = &hdwerr.Error{
		Code:     "INVALID_EMPTY_CAP",
		Message:  "empty balance cap must not be negative",
		ExitCode: hdwerr.ExitInput,
	}
)

// State is the scan state of a controller.
type State int

// Scan states.
const (
	StateIdle State = iota
	StateScanning
	StateCompleted
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// BalanceFetcher resolves and prices a window of addresses on a path.
//
// Implementations must be idempotent per (path, start) and return results in
// ascending PathIndex order. An empty result means there are no further
// addresses at this depth.
type BalanceFetcher interface {
	FetchBalances(ctx context.Context, path dpath.DPath, start, count int) ([]ledger.Account, error)
}

// Logger is the logging surface the controller needs.
type Logger interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

// Scope identifies what a discovery session scans. Changing any part of it
// invalidates the ledger.
type Scope struct {
	Asset   string
	Network string
	Paths   []dpath.DPath
}

// Same reports whether two scopes cover the same asset, network and path set.
// Path order is ignored.
func (s Scope) Same(other Scope) bool {
	if s.Asset != other.Asset || s.Network != other.Network || len(s.Paths) != len(other.Paths) {
		return false
	}
	for _, p := range s.Paths {
		if !other.Has(p) {
			return false
		}
	}
	for _, p := range other.Paths {
		if !s.Has(p) {
			return false
		}
	}
	return true
}

// Has reports whether path is part of the scope.
func (s Scope) Has(path dpath.DPath) bool {
	return slices.ContainsFunc(s.Paths, path.Same)
}

// Validate checks the scope has at least one well-formed path and lists no
// path twice.
func (s Scope) Validate() error {
	if len(s.Paths) == 0 {
		return hdwerr.WithDetails(hdwerr.ErrInvalidInput, map[string]string{"reason": "no derivation paths to scan"})
	}
	for i, p := range s.Paths {
		if err := p.Validate(); err != nil {
			return err
		}
		if slices.ContainsFunc(s.Paths[:i], p.Same) {
			return hdwerr.WithDetails(hdwerr.ErrInvalidInput, map[string]string{
				"reason": "duplicate derivation path",
				"path":   p.Value,
			})
		}
	}
	return nil
}

func (s Scope) clone() Scope {
	out := s
	out.Paths = slices.Clone(s.Paths)
	return out
}

// ProgressUpdate provides feedback during scanning operations.
type ProgressUpdate struct {
	// Phase indicates the current scanning phase.
	Phase string

	// PathLabel is the label of the path the update refers to.
	PathLabel string

	// AddressesScanned is the number of distinct addresses discovered so far.
	AddressesScanned int

	// Selected is the number of currently selected addresses.
	Selected int

	// Message provides additional context about the progress.
	Message string
}

// Progress phases.
const (
	PhaseScanning  = "scanning"
	PhaseBatch     = "batch"
	PhaseError     = "error"
	PhaseCompleted = "completed"
)

// ProgressCallback is called during scanning to report progress.
type ProgressCallback func(ProgressUpdate)

// Options configures a Controller.
type Options struct {
	// BatchSize is the number of addresses requested per fetch.
	// Default: DefaultBatchSize (10).
	BatchSize int

	// GapLimit enables automatic continuation: when one of the last GapLimit
	// entries of a batch holds funds, the next batch is requested.
	// Zero disables it. Default: DefaultGapLimit (5).
	GapLimit int

	// MaxAddresses caps automatic continuation per path. Zero means no cap.
	// Default: DefaultMaxAddresses (100).
	MaxAddresses int

	// MaxConcurrent limits parallel fetch requests.
	// Default: DefaultMaxConcurrent (3).
	MaxConcurrent int

	// EmptyBalanceCap is how many zero-balance addresses may be selected.
	// Default: ledger.DefaultEmptyBalanceCap (5).
	EmptyBalanceCap int

	// ProgressCallback receives updates during scanning.
	ProgressCallback ProgressCallback
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() *Options {
	return &Options{
		BatchSize:       DefaultBatchSize,
		GapLimit:        DefaultGapLimit,
		MaxAddresses:    DefaultMaxAddresses,
		MaxConcurrent:   DefaultMaxConcurrent,
		EmptyBalanceCap: ledger.DefaultEmptyBalanceCap,
	}
}

// Validate checks that the options are valid.
func (o *Options) Validate() error {
	if o.BatchSize <= 0 {
		return hdwerr.WithDetails(ErrInvalidBatchSize, map[string]string{"value": fmt.Sprintf("%d", o.BatchSize)})
	}
	if o.GapLimit < 0 {
		return hdwerr.WithDetails(ErrInvalidGapLimit, map[string]string{"value": fmt.Sprintf("%d", o.GapLimit)})
	}
	if o.MaxConcurrent <= 0 {
		return hdwerr.WithDetails(ErrInvalidMaxConcurrent, map[string]string{"value": fmt.Sprintf("%d", o.MaxConcurrent)})
	}
	if o.EmptyBalanceCap < 0 {
		return hdwerr.WithDetails(ErrInvalidEmptyCap, map[string]string{"value": fmt.Sprintf("%d", o.EmptyBalanceCap)})
	}
	return nil
}

// Snapshot is a point-in-time copy of the controller state.
type Snapshot struct {
	State      State
	Generation uint64
	Scope      Scope
	Ledger     ledger.Ledger

	// Scanned holds every discovered account, deduplicated by address, in
	// discovery order.
	Scanned []ledger.Account
}
