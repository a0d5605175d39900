// Package ingest implements the bulk-run CLI command: expand a YAML
// target list into section jobs, pull them through a worker pool, and
// record everything in sqlite.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/RulesFoundation/atlas/models"
	"github.com/RulesFoundation/atlas/pkg/artifacts"
	"github.com/RulesFoundation/atlas/pkg/db"
	"github.com/RulesFoundation/atlas/pkg/terms"
)

func IngestAction(c *cli.Context) error {
	logLevel := slog.LevelInfo
	if c.Bool("quiet") {
		logLevel = slog.LevelError
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	startTime := time.Now()

	config, err := models.LoadIngestConfig(c.String("config"))
	if err != nil {
		logger.Error("failed to load ingest config", "path", c.String("config"), "error", err)
		os.Exit(2)
	}

	// CLI flags override the config file.
	if c.IsSet("workers") {
		config.WorkerCount = c.Int("workers")
	}
	if c.IsSet("rate") {
		config.RatePerSecond = c.Float64("rate")
	}
	if c.IsSet("emit-akn") {
		config.EmitAKN = c.Bool("emit-akn")
	}
	if c.IsSet("output-dir") {
		config.OutputDir = c.String("output-dir")
	}

	var maxAge time.Duration
	if c.Bool("force") {
		maxAge = 0
	} else {
		maxAge, err = time.ParseDuration(c.String("max-age"))
		if err != nil {
			logger.Error("invalid max-age duration", "error", err)
			os.Exit(2)
		}
	}

	var manager *artifacts.Manager
	if config.EmitAKN {
		manager, err = artifacts.NewManager(config.OutputDir, maxAge)
		if err != nil {
			logger.Error("failed to initialize artifact manager", "error", err)
			os.Exit(2)
		}
	}

	database, err := db.Open(c.String("db"))
	if err != nil {
		logger.Error("failed to open database", "path", c.String("db"), "error", err)
		os.Exit(2)
	}
	defer database.Close()

	jurisdictions := make([]string, 0, len(config.Targets))
	for _, t := range config.Targets {
		jurisdictions = append(jurisdictions, t.Jurisdiction)
	}
	runID, err := database.StartRun(jurisdictions)
	if err != nil {
		logger.Error("failed to start ingest run", "error", err)
		os.Exit(2)
	}
	logger.Info("Ingest run started", "run_id", runID, "jurisdictions", jurisdictions)

	allResults, totalTerms, runErr := run(context.Background(), logger, config, database, manager)
	if runErr != nil && allResults == nil {
		logger.Error("ingest run failed", "error", runErr)
		os.Exit(2)
	}

	var successCount, errorCount int
	for _, r := range allResults {
		if r.Error != nil {
			errorCount++
		} else {
			successCount++
		}
	}

	if err := database.FinishRun(runID, successCount, errorCount); err != nil {
		logger.Warn("Failed to finish ingest run", "run_id", runID, "error", err)
	}

	fmt.Printf("Run %d: %d/%d sections ingested in %.1fs\n", runID, successCount, len(allResults), time.Since(startTime).Seconds())
	if errorCount > 0 {
		fmt.Printf("Failed sections:\n")
		for _, r := range allResults {
			if r.Error != nil {
				fmt.Printf("  %s %s (%s): %v\n", r.Job.Jurisdiction, r.Job.Citation, r.ErrorType, r.Error)
			}
		}
	}

	if !c.Bool("quiet") && successCount > 0 {
		fmt.Printf("\nTop terms:\n")
		for _, tc := range terms.Top(totalTerms, 15) {
			fmt.Printf("  %s: %d\n", tc.Term, tc.Count)
		}
	}

	if errorCount == len(allResults) {
		os.Exit(2)
	}
	if errorCount > 0 {
		os.Exit(1)
	}
	return nil
}
