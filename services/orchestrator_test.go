package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ahmed-Esso/airbnb-analytics/models"
	"github.com/Ahmed-Esso/airbnb-analytics/scraper"
)

func makeTasks(n int) []models.Task {
	tasks := make([]models.Task, 0, n)
	for i := 0; i < n; i++ {
		tasks = append(tasks, models.Task{Identity: models.Identity{
			ID:           fmt.Sprint(i),
			CanonicalURL: fmt.Sprintf("https://www.airbnb.com/rooms/%d", i),
		}})
	}
	return tasks
}

func okFetcher(ctx context.Context, task models.Task) (*models.Record, error) {
	return &models.Record{URL: task.Identity.CanonicalURL, RoomType: "Private room"}, nil
}

func drain(o *Orchestrator) []models.TaskResult {
	var out []models.TaskResult
	for r := range o.Results() {
		out = append(out, r)
	}
	return out
}

func TestOrchestratorRunsAllTasks(t *testing.T) {
	t.Parallel()

	o := NewOrchestrator(3, okFetcher, nil)
	o.Run(context.Background(), makeTasks(12))

	results := drain(o)
	require.Len(t, results, 12)

	seen := map[string]bool{}
	for _, r := range results {
		require.NotNil(t, r.Record)
		seen[r.Identity.ID] = true
	}
	assert.Len(t, seen, 12, "every task settles exactly once")
}

func TestOrchestratorWorkerBound(t *testing.T) {
	t.Parallel()

	const workers = 2
	var inFlight, peak atomic.Int64

	fetch := func(ctx context.Context, task models.Task) (*models.Record, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		return &models.Record{}, nil
	}

	o := NewOrchestrator(workers, fetch, nil)
	o.Run(context.Background(), makeTasks(10))
	drain(o)

	assert.LessOrEqual(t, peak.Load(), int64(workers))
}

func TestOrchestratorFailedTaskYieldsNilRecord(t *testing.T) {
	t.Parallel()

	fetch := func(ctx context.Context, task models.Task) (*models.Record, error) {
		switch task.Identity.ID {
		case "1":
			return nil, scraper.ErrErrorPage
		case "2":
			return nil, errors.New("tab crashed")
		}
		return &models.Record{}, nil
	}

	o := NewOrchestrator(2, fetch, nil)
	o.Run(context.Background(), makeTasks(4))

	results := drain(o)
	require.Len(t, results, 4, "failures settle like successes")

	var nilCount int
	for _, r := range results {
		if r.Record == nil {
			nilCount++
		}
	}
	assert.Equal(t, 2, nilCount)
}

func TestOrchestratorCancellation(t *testing.T) {
	t.Parallel()

	var started atomic.Int64
	release := make(chan struct{})

	fetch := func(ctx context.Context, task models.Task) (*models.Record, error) {
		started.Add(1)
		<-release
		return &models.Record{}, nil
	}

	o := NewOrchestrator(2, fetch, nil)
	o.Run(context.Background(), makeTasks(10))

	// Wait until both workers hold a task, then cancel mid-batch.
	require.Eventually(t, func() bool { return started.Load() == 2 },
		time.Second, time.Millisecond)
	o.Cancel()
	assert.True(t, o.Cancelled())
	close(release)

	results := drain(o)

	// In-flight tasks finish; nothing new is dispatched after the flag is
	// seen. The dispatcher may have parked one more task on the jobs channel
	// before Cancel landed.
	assert.GreaterOrEqual(t, len(results), 2)
	assert.LessOrEqual(t, len(results), 4)
	for _, r := range results {
		assert.NotNil(t, r.Record, "started tasks run to completion")
	}
}

func TestOrchestratorContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := NewOrchestrator(2, okFetcher, nil)
	o.Run(ctx, makeTasks(5))

	// Workers never see the flag; dispatch stops at the boundary check, so
	// at most a couple of tasks sneak through.
	assert.LessOrEqual(t, len(drain(o)), 2)
}

func TestOrchestratorProgress(t *testing.T) {
	t.Parallel()

	o := NewOrchestrator(4, okFetcher, nil)
	o.Run(context.Background(), makeTasks(8))

	var mu sync.Mutex
	var events []models.Progress
	done := make(chan struct{})
	go func() {
		defer close(done)
		for p := range o.Progress() {
			mu.Lock()
			events = append(events, p)
			mu.Unlock()
		}
	}()

	drain(o)
	<-done

	require.Len(t, events, 8)
	seen := map[int]bool{}
	for _, p := range events {
		assert.Equal(t, 8, p.Total)
		assert.False(t, seen[p.Completed], "completed counter never repeats")
		seen[p.Completed] = true
	}
	assert.True(t, seen[8], "final event reports the full batch")
}

func TestOrchestratorClampsWorkers(t *testing.T) {
	t.Parallel()

	o := NewOrchestrator(99, okFetcher, nil)
	assert.Equal(t, 10, o.workers)

	o = NewOrchestrator(0, okFetcher, nil)
	assert.Equal(t, 1, o.workers)
}

func TestOrchestratorSessionID(t *testing.T) {
	t.Parallel()

	a := NewOrchestrator(1, okFetcher, nil)
	b := NewOrchestrator(1, okFetcher, nil)
	assert.NotEmpty(t, a.SessionID())
	assert.NotEqual(t, a.SessionID(), b.SessionID())
}
