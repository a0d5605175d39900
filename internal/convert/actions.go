// Package convert implements the single-section CLI command: fetch one
// citation from its government source and print the normalized result.
package convert

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/RulesFoundation/atlas/models"
	"github.com/RulesFoundation/atlas/pkg/akn"
	"github.com/RulesFoundation/atlas/pkg/converters"
	"github.com/RulesFoundation/atlas/pkg/fetcher"
)

func ConvertAction(c *cli.Context) error {
	logLevel := slog.LevelInfo
	if c.Bool("quiet") {
		logLevel = slog.LevelError
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	jurisdiction := c.String("jurisdiction")
	citation := c.String("citation")
	if jurisdiction == "" || citation == "" {
		fmt.Fprintln(os.Stderr, "Error: --jurisdiction and --citation are required")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, `  atlas convert --jurisdiction us --citation "26 USC 32"`)
		fmt.Fprintln(os.Stderr, `  atlas convert --jurisdiction us-fl --citation 220.02`)
		fmt.Fprintln(os.Stderr, `  atlas convert --jurisdiction uk --citation ukpga/2003/1/section/62 --akn`)
		os.Exit(1)
	}
	if _, ok := models.LookupJurisdiction(jurisdiction); !ok {
		logger.Error("unknown jurisdiction", "jurisdiction", jurisdiction)
		os.Exit(1)
	}

	f := fetcher.NewFetcher(fetcher.WithRate(c.Float64("rate")))
	conv, err := converters.New(jurisdiction, c.String("format"), f)
	if err != nil {
		logger.Error("no converter available", "jurisdiction", jurisdiction, "format", c.String("format"), "error", err)
		os.Exit(1)
	}

	logger.Info("Converting section", "jurisdiction", jurisdiction, "citation", citation, "format", conv.Format())
	section, err := fetchSection(context.Background(), conv, citation, c.String("lang"), logger)
	if err != nil {
		if errors.Is(err, converters.ErrSectionNotFound) {
			logger.Error("section not found", "jurisdiction", jurisdiction, "citation", citation)
			os.Exit(1)
		}
		logger.Error("conversion failed", "error", err)
		os.Exit(2)
	}

	var outputData []byte
	if c.Bool("akn") {
		outputData, err = akn.Bytes(section)
	} else {
		outputData, err = json.MarshalIndent(section, "", "  ")
	}
	if err != nil {
		logger.Error("failed to serialize section", "error", err)
		os.Exit(2)
	}

	if outputPath := c.String("output"); outputPath != "" {
		if err := os.WriteFile(outputPath, outputData, 0600); err != nil {
			logger.Error("failed to write output file", "path", outputPath, "error", err)
			os.Exit(2)
		}
		logger.Info("Wrote section", "path", outputPath, "bytes", len(outputData))
		return nil
	}

	fmt.Println(string(outputData))
	return nil
}

// frenchSectioner is implemented by converters whose source publishes a
// parallel French corpus.
type frenchSectioner interface {
	SectionFrench(ctx context.Context, citation string) (*models.Section, error)
}

func fetchSection(ctx context.Context, conv converters.Converter, citation, lang string, logger *slog.Logger) (*models.Section, error) {
	switch lang {
	case "", "en":
		return conv.Section(ctx, citation)
	case "fr":
		fs, ok := conv.(frenchSectioner)
		if !ok {
			logger.Error("no French corpus for jurisdiction", "jurisdiction", conv.Jurisdiction())
			os.Exit(1)
		}
		return fs.SectionFrench(ctx, citation)
	default:
		logger.Error("unsupported language", "lang", lang)
		os.Exit(1)
	}
	return nil, nil
}

// SectionsAction lists the section citations within one unit of a
// jurisdiction, for driving bulk runs.
func SectionsAction(c *cli.Context) error {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	jurisdiction := c.String("jurisdiction")
	unit := c.String("unit")
	if jurisdiction == "" || unit == "" {
		fmt.Fprintln(os.Stderr, "Error: --jurisdiction and --unit are required")
		fmt.Fprintln(os.Stderr, `  atlas sections --jurisdiction us-fl --unit 220`)
		os.Exit(1)
	}

	f := fetcher.NewFetcher(fetcher.WithRate(c.Float64("rate")))
	conv, err := converters.New(jurisdiction, c.String("format"), f)
	if err != nil {
		logger.Error("no converter available", "jurisdiction", jurisdiction, "error", err)
		os.Exit(1)
	}

	numbers, err := conv.SectionNumbers(context.Background(), unit)
	if err != nil {
		logger.Error("failed to list sections", "jurisdiction", jurisdiction, "unit", unit, "error", err)
		os.Exit(2)
	}

	for _, num := range numbers {
		fmt.Println(num)
	}
	logger.Info("Listed sections", "jurisdiction", jurisdiction, "unit", unit, "count", len(numbers))
	return nil
}

// JurisdictionsAction prints every known jurisdiction and whether a
// converter is registered for it.
func JurisdictionsAction(c *cli.Context) error {
	formats := make(map[string][]string)
	for _, key := range converters.Registered() {
		jurisdiction, format, ok := strings.Cut(key, ":")
		if !ok {
			continue
		}
		formats[jurisdiction] = append(formats[jurisdiction], format)
	}

	for _, j := range models.Jurisdictions() {
		status := "-"
		if f := formats[j.ID]; len(f) > 0 {
			status = strings.Join(f, ",")
		}
		fmt.Printf("%-10s %-30s %-10s %s\n", j.ID, j.Name, j.Kind, status)
	}
	return nil
}
