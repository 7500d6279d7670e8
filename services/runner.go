package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Ahmed-Esso/airbnb-analytics/config"
	"github.com/Ahmed-Esso/airbnb-analytics/models"
	"github.com/Ahmed-Esso/airbnb-analytics/scraper"
	"github.com/Ahmed-Esso/airbnb-analytics/storage"
	"github.com/Ahmed-Esso/airbnb-analytics/utils"
)

// Summary is the terminal notification for one query: how many listings
// were discovered, how many tasks settled, how many records cleared the
// viability gate, and where the exports went.
type Summary struct {
	SessionID  string
	Query      string
	Discovered int
	Completed  int
	Saved      int
	Skipped    int
	Outputs    []string
}

// Runner executes discovery+scrape sessions against one shared sink.
// OnProgress, when set, receives an event after every settled task; it runs
// on the runner's collector goroutine and must not block for long.
type Runner struct {
	Cfg        config.Config
	Sink       *storage.Sink
	OnProgress func(models.Progress)

	mu      sync.Mutex
	current *Orchestrator
}

func NewRunner(cfg config.Config) *Runner {
	return &Runner{Cfg: cfg, Sink: storage.NewSink()}
}

// Cancel stops the in-flight session at the next task boundary. Tasks
// already dispatched run to completion.
func (r *Runner) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != nil {
		r.current.Cancel()
	}
}

// RunQuery runs one full session for a query in the given mode.
func (r *Runner) RunQuery(ctx context.Context, mode config.Mode, query string) (*Summary, error) {
	tasks, err := r.discoverTasks(ctx, mode, query)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, fmt.Errorf("no listings found for %q", query)
	}

	log.Info("scraping listings", "query", query, "count", len(tasks), "workers", r.workers())

	orch := NewOrchestrator(r.workers(), BrowserFetcher(r.Cfg), r.pacer())
	r.mu.Lock()
	r.current = orch
	r.mu.Unlock()

	orch.Run(ctx, tasks)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for p := range orch.Progress() {
			if r.OnProgress != nil {
				r.OnProgress(p)
			}
		}
	}()

	summary := &Summary{SessionID: orch.SessionID(), Query: query, Discovered: len(tasks)}
	for res := range orch.Results() {
		summary.Completed++
		if res.Record != nil && r.Sink.Add(res.Identity, res.Record) {
			summary.Saved++
			log.Info("listing scraped",
				"city", res.Record.City, "roomType", res.Record.RoomType,
				"progress", fmt.Sprintf("%d/%d", summary.Completed, len(tasks)))
		} else {
			summary.Skipped++
		}
	}
	<-done

	r.mu.Lock()
	r.current = nil
	r.mu.Unlock()

	return summary, nil
}

// RunBatch processes several city queries in one run, exporting each
// city's new records to a city-scoped CSV before moving on.
func (r *Runner) RunBatch(ctx context.Context, cities []string) ([]*Summary, error) {
	var summaries []*Summary
	for i, city := range cities {
		if ctx.Err() != nil {
			break
		}

		log.Info("starting city", "city", city, "position", fmt.Sprintf("%d/%d", i+1, len(cities)))
		summary, err := r.RunQuery(ctx, config.ModeCity, city)
		if err != nil {
			log.Warn("city failed", "city", city, "err", err)
			continue
		}

		path := groupOutFile(city)
		if n, err := r.Sink.ExportGroup(city, path); err != nil {
			log.Warn("city export failed", "city", city, "err", err)
		} else if n > 0 {
			summary.Outputs = append(summary.Outputs, path)
			log.Info("city exported", "city", city, "records", n, "file", path)
		}
		summaries = append(summaries, summary)

		if i < len(cities)-1 {
			select {
			case <-ctx.Done():
			case <-time.After(config.BatchDelay()):
			}
		}
	}
	if len(summaries) == 0 {
		return nil, fmt.Errorf("no city produced any records")
	}
	return summaries, nil
}

// discoverTasks resolves a query into scrape tasks. Single-listing mode
// skips discovery entirely; the other modes drive the search page frontier.
func (r *Runner) discoverTasks(ctx context.Context, mode config.Mode, query string) ([]models.Task, error) {
	if mode == config.ModeSingle {
		identity, err := scraper.Identify(query)
		if err != nil {
			return nil, fmt.Errorf("invalid listing url: %w", err)
		}
		return []models.Task{{Identity: identity}}, nil
	}

	var searchURL, cityHint string
	switch mode {
	case config.ModeCity:
		searchURL = scraper.SearchURL(query)
		cityHint = query
	case config.ModeURL:
		searchURL = scraper.WithCurrency(query)
		cityHint = scraper.CityFromSearchURL(query)
	default:
		return nil, fmt.Errorf("unknown mode %q", mode)
	}

	// The discovery browser is independent of the per-task sessions and is
	// torn down before fan-out starts.
	allocCtx, cancelAlloc := utils.NewAllocator(ctx, r.Cfg)
	defer cancelAlloc()
	tabCtx, cancelTab, err := utils.NewStealthTab(allocCtx)
	if err != nil {
		return nil, fmt.Errorf("start discovery browser: %w", err)
	}
	defer cancelTab()

	log.Info("discovering listings", "url", searchURL, "target", r.Cfg.MaxListings)
	frontier, err := scraper.Discover(tabCtx, searchURL, r.Cfg.MaxListings, r.Cfg)
	if err != nil {
		return nil, err
	}
	log.Info("discovery complete", "found", frontier.Size())

	return frontier.Tasks(cityHint), nil
}

func (r *Runner) workers() int {
	if r.Cfg.Sequential {
		return 1
	}
	return config.ClampWorkerCount(r.Cfg.Workers)
}

func (r *Runner) pacer() *scraper.Pacer {
	if r.Cfg.Sequential {
		return scraper.NewPacer()
	}
	return nil
}

func groupOutFile(city string) string {
	slug := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(city), " ", "_"))
	return fmt.Sprintf("%s_airbnb.csv", slug)
}
