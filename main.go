package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/charmbracelet/log"

	"github.com/Ahmed-Esso/airbnb-analytics/config"
	"github.com/Ahmed-Esso/airbnb-analytics/models"
	"github.com/Ahmed-Esso/airbnb-analytics/services"
	"github.com/Ahmed-Esso/airbnb-analytics/storage"
	"github.com/Ahmed-Esso/airbnb-analytics/utils"
)

func main() {
	cfg := config.Default()

	mode := flag.String("mode", string(cfg.Mode), "query mode: city, url or single")
	query := flag.String("query", cfg.Query, "city name, search URL or listing URL")
	count := flag.Int("count", cfg.MaxListings, "target number of listings to discover")
	workers := flag.String("workers", fmt.Sprint(cfg.Workers), "parallel workers (clamped to 1-10)")
	sequential := flag.Bool("sequential", false, "scrape one listing at a time with jittered delays")
	out := flag.String("out", cfg.OutFile, "CSV output file (JSON written next to it)")
	batchFile := flag.String("cities", "", "YAML file with a city list for a multi-city run")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	if *verbose {
		log.SetLevel(log.DebugLevel)
	}
	log.SetTimeFormat(time.Kitchen)

	cfg.Mode = config.Mode(*mode)
	cfg.Query = *query
	cfg.MaxListings = *count
	cfg.Workers = config.ClampWorkers(*workers)
	cfg.Sequential = *sequential
	cfg.OutFile = *out

	log.Info("airbnb listing scraper",
		"mode", cfg.Mode, "query", cfg.Query,
		"target", cfg.MaxListings, "workers", cfg.Workers,
		"sequential", cfg.Sequential)

	rootCtx, cancelRoot := context.WithTimeout(context.Background(), cfg.GlobalTimeout)
	defer cancelRoot()

	runner := services.NewRunner(cfg)

	// Ctrl-C is a cancellation request, not a kill: tasks already running
	// finish, nothing new starts, and whatever was scraped still exports.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Warn("cancellation requested; letting in-flight tasks finish")
		runner.Cancel()
	}()

	spin := spinner.New(spinner.CharSets[9], 100*time.Millisecond)
	runner.OnProgress = func(p models.Progress) {
		spin.Suffix = fmt.Sprintf(" scraping %d/%d", p.Completed, p.Total)
	}
	spin.Start()

	summaries, err := run(rootCtx, runner, cfg, *batchFile)
	spin.Stop()
	if err != nil {
		log.Fatal("run failed", "err", err)
	}

	for _, s := range summaries {
		log.Info("session done",
			"query", s.Query, "discovered", s.Discovered,
			"completed", s.Completed, "saved", s.Saved, "skipped", s.Skipped)
	}

	if runner.Sink.Len() == 0 {
		log.Warn("no records cleared the viability gate; nothing to export")
		return
	}

	outputs, err := export(runner.Sink, cfg)
	if err != nil {
		log.Fatal("export failed", "err", err)
	}
	log.Info("all done", "records", runner.Sink.Len(), "outputs", strings.Join(outputs, ", "))

	printStats(runner.Sink.Records())
}

func run(ctx context.Context, runner *services.Runner, cfg config.Config, batchFile string) ([]*services.Summary, error) {
	if batchFile != "" {
		cities, err := config.LoadCityBatch(batchFile)
		if err != nil {
			return nil, err
		}
		return runner.RunBatch(ctx, cities)
	}

	summary, err := runner.RunQuery(ctx, cfg.Mode, cfg.Query)
	if err != nil {
		return nil, err
	}
	return []*services.Summary{summary}, nil
}

// export writes the tabular and tree-structured serializations of the same
// record set, plus the optional Postgres upsert.
func export(sink *storage.Sink, cfg config.Config) ([]string, error) {
	csvPath := cfg.OutFile
	jsonPath := strings.TrimSuffix(csvPath, ".csv") + ".json"

	if err := sink.ExportCSV(csvPath); err != nil {
		return nil, err
	}
	if err := sink.ExportJSON(jsonPath); err != nil {
		return nil, err
	}
	outputs := []string{csvPath, jsonPath}

	if cfg.DBEnabled {
		store, err := storage.NewPostgresStore(cfg)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()

		dbCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		saved, err := store.SaveRecords(dbCtx, sink.Records())
		if err != nil {
			return nil, fmt.Errorf("store records: %w", err)
		}
		log.Info("postgres upsert complete", "records", saved)
	}

	return outputs, nil
}

func printStats(records []*models.Record) {
	stats := utils.BuildSummaryStats(records)
	log.Info("summary",
		"listings", stats.TotalListings,
		"priced", stats.PricedListings,
		"avgPrice", fmt.Sprintf("%.2f", stats.AveragePrice),
		"minPrice", stats.MinimumPrice,
		"maxPrice", stats.MaximumPrice)

	for _, c := range stats.ListingsPerCity {
		log.Info("per city", "city", c.City, "count", c.Count)
	}
	for i, rec := range stats.TopRated {
		log.Info("top rated",
			"rank", i+1,
			"rating", fmt.Sprintf("%.2f", *rec.OverallRating),
			"url", rec.URL)
	}
}
