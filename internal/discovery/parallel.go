package discovery

import (
	"fmt"
	"time"

	"github.com/mrz1836/hdwscan/internal/ledger"
)

// dispatchLocked starts a fetch for job in the current run. At most
// MaxConcurrent fetches call the fetcher at once; the rest wait on sem.
func (c *Controller) dispatchLocked(job fetchJob) {
	if job.count <= 0 {
		return
	}
	run := c.run
	run.inflight++
	go c.fetch(run, c.gen, job)
}

// fetch performs one balance request and hands the result back to the
// controller.
func (c *Controller) fetch(run *scanRun, gen uint64, job fetchJob) {
	var (
		results []ledger.Account
		err     error
	)

	select {
	case c.sem <- struct{}{}:
		started := time.Now()
		results, err = c.fetcher.FetchBalances(run.ctx, job.path, job.start, job.count)
		<-c.sem
		c.logger.Debug("discovery: fetched %s [%d,%d) in %s", job.path.Label, job.start, job.start+job.count, time.Since(started))
	case <-run.ctx.Done():
		err = run.ctx.Err()
	}

	update := c.deliver(run, gen, job, results, err)
	c.report(update)
}

// deliver folds a finished fetch into the controller and schedules the next
// batch when the gap policy asks for one. An empty or failed batch stops the
// path. The run completes when its last request has been delivered.
func (c *Controller) deliver(run *scanRun, gen uint64, job fetchJob, results []ledger.Account, fetchErr error) ProgressUpdate {
	c.mu.Lock()
	defer c.mu.Unlock()

	run.inflight--
	if gen != c.gen {
		c.dropStaleLocked(gen, job.path)
		return ProgressUpdate{}
	}

	active := c.run == run
	c.metrics.RecordBatch(len(results), fetchErr)

	var update ProgressUpdate
	switch {
	case fetchErr != nil && run.ctx.Err() != nil:
		c.logger.Debug("discovery: fetch %s [%d,%d) canceled", job.path.Label, job.start, job.start+job.count)

	case fetchErr != nil:
		c.logger.Error("discovery: fetch %s [%d,%d) failed: %v", job.path.Label, job.start, job.start+job.count, fetchErr)
		update = c.progressUpdateLocked(PhaseError, job.path.Label, fmt.Sprintf("%s: %v", job.path.Label, fetchErr))

	default:
		if err := c.applyLocked(job.path, results); err != nil {
			c.logger.Error("discovery: rejected batch for %s: %v", job.path.Label, err)
			update = c.progressUpdateLocked(PhaseError, job.path.Label, fmt.Sprintf("%s: %v", job.path.Label, err))
			break
		}
		if job.auto {
			c.progressLocked(job.path).autoScanned += len(results)
		}
		update = c.progressUpdateLocked(PhaseBatch, job.path.Label,
			fmt.Sprintf("%s: %d addresses at index %d", job.path.Label, len(results), job.start))

		if active && c.shouldContinueLocked(job, results) {
			progress := c.progressLocked(job.path)
			c.dispatchLocked(fetchJob{
				path:  job.path,
				start: progress.next,
				count: c.autoBatchLocked(progress),
				auto:  true,
			})
		}
	}

	if active && run.inflight == 0 {
		c.completeLocked()
		update = c.progressUpdateLocked(PhaseCompleted, "",
			fmt.Sprintf("Scan complete: %d addresses, %d selected", len(c.scanned), len(c.ledger.Selected())))
	}
	return update
}
