package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/Ahmed-Esso/airbnb-analytics/config"
	"github.com/Ahmed-Esso/airbnb-analytics/models"
	"github.com/Ahmed-Esso/airbnb-analytics/scraper"
	"github.com/Ahmed-Esso/airbnb-analytics/utils"
)

// Fetcher turns one task into a record. The production fetcher owns an
// isolated browser session per call; tests substitute a pure function.
type Fetcher func(ctx context.Context, task models.Task) (*models.Record, error)

// Orchestrator runs a batch of scrape tasks on a bounded worker pool.
//
// Cancellation is cooperative: Cancel prevents any task not yet dispatched
// from starting, while tasks already in flight run to completion. Results
// arrive on the Results channel in completion order, never submission
// order, and are folded into storage by the caller's single collector loop.
type Orchestrator struct {
	workers int
	fetch   Fetcher
	pacer   *scraper.Pacer

	sessionID string
	cancelled atomic.Bool

	results  chan models.TaskResult
	progress chan models.Progress
}

// NewOrchestrator builds a pool with the given (already clamped) worker
// count. A nil pacer means parallel mode; sequential runs pass one worker
// and a pacer.
func NewOrchestrator(workers int, fetch Fetcher, pacer *scraper.Pacer) *Orchestrator {
	return &Orchestrator{
		workers:   config.ClampWorkerCount(workers),
		fetch:     fetch,
		pacer:     pacer,
		sessionID: uuid.NewString(),
	}
}

// SessionID identifies this scrape session in logs and events.
func (o *Orchestrator) SessionID() string { return o.sessionID }

// Cancel requests cooperative cancellation. Safe to call from any
// goroutine, any number of times.
func (o *Orchestrator) Cancel() {
	o.cancelled.Store(true)
}

// Cancelled reports whether cancellation has been requested.
func (o *Orchestrator) Cancelled() bool { return o.cancelled.Load() }

// Results exposes the completion-order result stream. Valid after Run.
func (o *Orchestrator) Results() <-chan models.TaskResult { return o.results }

// Progress exposes the per-task progress stream. Valid after Run.
func (o *Orchestrator) Progress() <-chan models.Progress { return o.progress }

// Run dispatches the tasks and returns immediately; both channels close
// once the last in-flight task settles. A task whose fetch fails yields a
// nil record — one bad page never aborts the batch.
func (o *Orchestrator) Run(ctx context.Context, tasks []models.Task) {
	total := len(tasks)
	o.results = make(chan models.TaskResult, total)
	o.progress = make(chan models.Progress, total+1)

	jobs := make(chan models.Task)
	var completed atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < o.workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for task := range jobs {
				rec := o.runTask(ctx, workerID, task)
				o.results <- models.TaskResult{Identity: task.Identity, Record: rec}
				o.progress <- models.Progress{
					Completed: int(completed.Add(1)),
					Total:     total,
				}
			}
		}(i)
	}

	go func() {
		defer close(jobs)
		for _, task := range tasks {
			// The cancellation flag is polled only here, at the dispatch
			// boundary. In-flight extractions always finish or time out on
			// their own terms.
			if o.cancelled.Load() || ctx.Err() != nil {
				log.Info("dispatch halted",
					"session", o.sessionID, "pending", total-int(completed.Load()))
				return
			}
			jobs <- task
		}
	}()

	go func() {
		wg.Wait()
		close(o.results)
		close(o.progress)
	}()
}

func (o *Orchestrator) runTask(ctx context.Context, workerID int, task models.Task) *models.Record {
	if o.pacer != nil {
		if err := o.pacer.Wait(ctx); err != nil {
			return nil
		}
	}

	rec, err := o.fetch(ctx, task)
	if err != nil {
		// A removed listing is routine, not a fault.
		if errors.Is(err, scraper.ErrErrorPage) {
			log.Info("listing unavailable",
				"session", o.sessionID, "listing", task.Identity.ID)
		} else {
			log.Warn("task failed",
				"session", o.sessionID, "worker", workerID,
				"listing", task.Identity.ID, "err", err)
		}
		return nil
	}
	return rec
}

// BrowserFetcher returns the production Fetcher: each call launches its own
// exec allocator and stealth tab, so no cookies, DOM handles or page state
// leak between tasks, and one task's crash cannot poison another's session.
func BrowserFetcher(cfg config.Config) Fetcher {
	return func(ctx context.Context, task models.Task) (*models.Record, error) {
		allocCtx, cancelAlloc := utils.NewAllocator(ctx, cfg)
		defer cancelAlloc()

		tabCtx, cancelTab, err := utils.NewStealthTab(allocCtx)
		if err != nil {
			return nil, err
		}
		defer cancelTab()

		url := scraper.WithCurrency(task.Identity.CanonicalURL)
		snap, err := scraper.CaptureSnapshot(tabCtx, url, cfg)
		if err != nil {
			return nil, err
		}

		rec := scraper.Extract(snap)
		if rec == nil {
			return nil, scraper.ErrErrorPage
		}
		rec.URL = task.Identity.CanonicalURL
		scraper.ApplyHints(rec, task)
		return rec, nil
	}
}
