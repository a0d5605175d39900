package models

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// IngestTarget names one unit of work for a bulk run: a chapter, title,
// or act within a jurisdiction, in whatever form that jurisdiction's
// converter understands ("220", "43.05", "ukpga/2003/1").
type IngestTarget struct {
	Jurisdiction string   `yaml:"jurisdiction"`
	Units        []string `yaml:"units"`
	MaxSections  int      `yaml:"max_sections,omitempty"`
	// Language selects an alternate-language corpus where the source
	// publishes one ("fr" for Canada's fra/ tree). Empty means the
	// source's primary language.
	Language string `yaml:"language,omitempty"`
}

// IngestConfig holds runtime configuration for a bulk ingest run.
type IngestConfig struct {
	Targets     []IngestTarget `yaml:"targets"`
	WorkerCount int            `yaml:"workers,omitempty"`
	// RatePerSecond caps outbound requests per host. Zero means the
	// default of 2 req/s.
	RatePerSecond float64 `yaml:"rate_per_second,omitempty"`
	// EmitAKN writes an Akoma Ntoso XML file per section under OutputDir.
	EmitAKN   bool   `yaml:"emit_akn,omitempty"`
	OutputDir string `yaml:"output_dir,omitempty"`
}

// LoadIngestConfig reads and validates a YAML ingest configuration.
func LoadIngestConfig(path string) (*IngestConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config IngestConfig
	if err := yaml.Unmarshal(raw, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if len(config.Targets) == 0 {
		return nil, fmt.Errorf("config %s has no targets", path)
	}
	for _, t := range config.Targets {
		if _, ok := LookupJurisdiction(t.Jurisdiction); !ok {
			return nil, fmt.Errorf("unknown jurisdiction %q in config", t.Jurisdiction)
		}
		if t.Language != "" && t.Language != "en" && t.Language != "fr" {
			return nil, fmt.Errorf("unsupported language %q in config", t.Language)
		}
	}

	if config.WorkerCount <= 0 {
		config.WorkerCount = 4
	}
	if config.OutputDir == "" {
		config.OutputDir = "akn"
	}
	return &config, nil
}
