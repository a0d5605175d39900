package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/RulesFoundation/atlas/models"
	"github.com/RulesFoundation/atlas/pkg/artifacts"
	"github.com/RulesFoundation/atlas/pkg/converters"
	"github.com/RulesFoundation/atlas/pkg/db"
	"github.com/RulesFoundation/atlas/pkg/fetcher"
	"github.com/RulesFoundation/atlas/pkg/terms"
)

// Job names one section to pull.
type Job struct {
	Jurisdiction string
	Citation     string
	Language     string
}

// Result holds the outcome of one section job.
type Result struct {
	Job          Job
	Section      *models.Section
	SectionID    string
	ArtifactPath string
	Error        error
	ErrorType    string
	TermCounts   terms.Frequency
}

// referencer is implemented by converters that can report a section's
// outbound cross references once the section has been loaded.
type referencer interface {
	SectionReferences(citation string) []string
}

// frenchSectioner is implemented by converters whose source publishes a
// parallel French corpus.
type frenchSectioner interface {
	SectionFrench(ctx context.Context, citation string) (*models.Section, error)
}

// expandTargets resolves each target's units into section jobs. Units a
// converter cannot enumerate (sources with no machine-readable table of
// contents) fall back to being treated as single citations.
func expandTargets(ctx context.Context, logger *slog.Logger, config *models.IngestConfig, convs map[string]converters.Converter) []Job {
	var jobList []Job
	for _, target := range config.Targets {
		conv := convs[target.Jurisdiction]
		count := 0
		for _, unit := range target.Units {
			if target.MaxSections > 0 && count >= target.MaxSections {
				break
			}
			numbers, err := conv.SectionNumbers(ctx, unit)
			if err != nil {
				logger.Warn("Cannot enumerate unit, treating as single citation", "jurisdiction", target.Jurisdiction, "unit", unit, "error", err)
				numbers = []string{unit}
			}
			for _, num := range numbers {
				if target.MaxSections > 0 && count >= target.MaxSections {
					break
				}
				jobList = append(jobList, Job{Jurisdiction: target.Jurisdiction, Citation: num, Language: target.Language})
				count++
			}
		}
		logger.Info("Expanded target", "jurisdiction", target.Jurisdiction, "units", len(target.Units), "sections", count)
	}
	return jobList
}

func run(ctx context.Context, logger *slog.Logger, config *models.IngestConfig, database *db.DB, manager *artifacts.Manager) ([]Result, terms.Frequency, error) {
	f := fetcher.NewFetcher(fetcher.WithRate(config.RatePerSecond))

	convs := make(map[string]converters.Converter)
	for _, target := range config.Targets {
		if _, ok := convs[target.Jurisdiction]; ok {
			continue
		}
		conv, err := converters.New(target.Jurisdiction, "", f)
		if err != nil {
			return nil, nil, fmt.Errorf("no converter for %s: %w", target.Jurisdiction, err)
		}
		convs[target.Jurisdiction] = conv
	}

	return runWithConverters(ctx, logger, config, convs, database, manager)
}

func runWithConverters(ctx context.Context, logger *slog.Logger, config *models.IngestConfig, convs map[string]converters.Converter, database *db.DB, manager *artifacts.Manager) ([]Result, terms.Frequency, error) {
	jobList := expandTargets(ctx, logger, config, convs)
	if len(jobList) == 0 {
		return nil, nil, fmt.Errorf("targets expanded to no sections")
	}

	logger.Info("Starting concurrent ingest phase", "section_count", len(jobList), "workers", config.WorkerCount)
	var wg sync.WaitGroup
	jobs := make(chan Job, len(jobList))
	results := make(chan Result, len(jobList))

	for w := 1; w <= config.WorkerCount; w++ {
		wg.Add(1)
		go worker(ctx, w, logger, convs, database, manager, &wg, jobs, results)
	}

	for _, job := range jobList {
		jobs <- job
	}
	close(jobs)

	wg.Wait()
	close(results)
	logger.Info("All ingest workers finished")

	allResults := make([]Result, 0, len(jobList))
	var runErr error
	for result := range results {
		allResults = append(allResults, result)
		if result.Error != nil {
			runErr = fmt.Errorf("one or more sections failed")
		}
	}

	totalTerms := make(terms.Frequency)
	for _, result := range allResults {
		totalTerms = terms.Merge(totalTerms, result.TermCounts)
	}

	return allResults, totalTerms, runErr
}

func worker(ctx context.Context, id int, logger *slog.Logger, convs map[string]converters.Converter, database *db.DB, manager *artifacts.Manager, wg *sync.WaitGroup, jobs <-chan Job, results chan<- Result) {
	defer wg.Done()
	for job := range jobs {
		logger.Info("Worker started section", "worker_id", id, "jurisdiction", job.Jurisdiction, "citation", job.Citation)
		result := Result{Job: job}

		conv := convs[job.Jurisdiction]
		section, err := fetchSection(ctx, conv, job)
		if err != nil {
			logger.Error("Error converting section", "worker_id", id, "jurisdiction", job.Jurisdiction, "citation", job.Citation, "error", err)
			result.Error = err
			if errors.Is(err, converters.ErrSectionNotFound) {
				result.ErrorType = "not_found"
			} else {
				result.ErrorType = "convert_error"
			}
			results <- result
			continue
		}
		result.Section = section
		result.TermCounts = terms.CountSection(section)

		sectionID, err := database.UpsertSection(section)
		if err != nil {
			logger.Error("Error storing section", "worker_id", id, "citation", job.Citation, "error", err)
			result.Error = err
			result.ErrorType = "db_error"
			results <- result
			continue
		}
		result.SectionID = sectionID

		storeCrossReferences(logger, conv, database, job, section)

		if manager != nil {
			path, wrote, err := manager.WriteAKN(section)
			if err != nil {
				logger.Warn("Failed to write AKN artifact", "citation", job.Citation, "error", err)
			} else {
				result.ArtifactPath = path
				if _, _, err := manager.WriteJSON(section); err != nil {
					logger.Warn("Failed to write JSON artifact", "citation", job.Citation, "error", err)
				}
				if wrote {
					logger.Info("Wrote artifacts", "worker_id", id, "citation", job.Citation, "akn", path)
				}
			}
		}

		results <- result
		logger.Info("Worker finished section", "worker_id", id, "citation", job.Citation)
	}
}

// fetchSection dispatches to the converter's alternate-language path
// when the target asked for one.
func fetchSection(ctx context.Context, conv converters.Converter, job Job) (*models.Section, error) {
	if job.Language == "fr" {
		fs, ok := conv.(frenchSectioner)
		if !ok {
			return nil, fmt.Errorf("%s has no French corpus", job.Jurisdiction)
		}
		return fs.SectionFrench(ctx, job.Citation)
	}
	return conv.Section(ctx, job.Citation)
}

// storeCrossReferences records outbound references for converters that
// can report them.
func storeCrossReferences(logger *slog.Logger, conv converters.Converter, database *db.DB, job Job, section *models.Section) {
	r, ok := conv.(referencer)
	if !ok {
		return
	}
	fromPath := section.Jurisdiction + "/" + section.Citation.Path()
	for _, toPath := range r.SectionReferences(job.Citation) {
		if toPath == fromPath {
			continue
		}
		if err := database.InsertCrossReference(fromPath, toPath); err != nil {
			logger.Warn("Failed to record cross reference", "from", fromPath, "to", toPath, "error", err)
		}
	}
}
