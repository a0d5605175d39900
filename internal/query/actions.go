// Package query implements the read-side CLI commands over the sqlite
// archive: full-text search, single-section display, cross references,
// and term frequency.
package query

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/RulesFoundation/atlas/models"
	"github.com/RulesFoundation/atlas/pkg/akn"
	dbpkg "github.com/RulesFoundation/atlas/pkg/db"
	"github.com/RulesFoundation/atlas/pkg/terms"
)

func SearchAction(c *cli.Context) error {
	query := c.Args().First()
	if query == "" {
		fmt.Fprintln(os.Stderr, "Error: No search query provided")
		fmt.Fprintln(os.Stderr, `  atlas search "earned income credit"`)
		os.Exit(1)
	}

	database, err := dbpkg.Open(c.String("db"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	results, err := database.Search(query, c.Int("limit"))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No sections matched")
		return nil
	}

	fmt.Printf("%-8s %-14s %-40s %s\n", "JURIS", "SECTION", "TITLE", "SNIPPET")
	fmt.Println(strings.Repeat("-", 110))
	for _, r := range results {
		title := r.SectionTitle
		if len(title) > 38 {
			title = title[:35] + "..."
		}
		fmt.Printf("%-8s %-14s %-40s %s\n", r.Jurisdiction, r.Section, title, r.Snippet)
	}
	fmt.Printf("\nTotal: %d sections\n", len(results))
	return nil
}

func ShowAction(c *cli.Context) error {
	jurisdiction := c.String("jurisdiction")
	sectionNum := c.Args().First()
	if jurisdiction == "" || sectionNum == "" {
		fmt.Fprintln(os.Stderr, "Error: jurisdiction and section are required")
		fmt.Fprintln(os.Stderr, `  atlas show --jurisdiction us-fl 220.02`)
		os.Exit(1)
	}

	database, err := dbpkg.Open(c.String("db"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	section, err := database.GetSection(jurisdiction, c.Int("title"), sectionNum)
	if err != nil {
		return fmt.Errorf("failed to load section: %w", err)
	}
	if section == nil {
		fmt.Printf("Section %s %s not found. Ingest it first:\n", jurisdiction, sectionNum)
		fmt.Printf("  atlas convert --jurisdiction %s --citation %s\n", jurisdiction, sectionNum)
		os.Exit(1)
	}

	switch strings.ToLower(c.String("format")) {
	case "akn":
		data, err := akn.Bytes(section)
		if err != nil {
			return fmt.Errorf("failed to serialize section: %w", err)
		}
		fmt.Println(string(data))
	case "text":
		fmt.Printf("%s %s  %s\n\n", section.Jurisdiction, section.Citation.Section, section.SectionTitle)
		if section.Text != "" {
			fmt.Println(section.Text)
		}
		printSubsections(section.Subsections, 1)
		if section.History != "" {
			fmt.Printf("\nHistory: %s\n", section.History)
		}
	default:
		data, err := json.MarshalIndent(section, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to serialize section: %w", err)
		}
		fmt.Println(string(data))
	}
	return nil
}

func printSubsections(subs []models.Subsection, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, sub := range subs {
		if sub.Heading != "" {
			fmt.Printf("%s(%s) %s. %s\n", indent, sub.Identifier, sub.Heading, sub.Text)
		} else {
			fmt.Printf("%s(%s) %s\n", indent, sub.Identifier, sub.Text)
		}
		printSubsections(sub.Children, depth+1)
	}
}

// RefsAction lists the sections that reference a citation path.
func RefsAction(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		fmt.Fprintln(os.Stderr, "Error: No citation path provided")
		fmt.Fprintln(os.Stderr, `  atlas refs us/statute/26/32`)
		os.Exit(1)
	}

	database, err := dbpkg.Open(c.String("db"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	paths, err := database.ReferencesTo(path)
	if err != nil {
		return fmt.Errorf("failed to load cross references: %w", err)
	}

	if len(paths) == 0 {
		fmt.Printf("No stored sections reference %s\n", path)
		return nil
	}
	for _, p := range paths {
		fmt.Println(p)
	}
	fmt.Printf("\nTotal: %d referencing sections\n", len(paths))
	return nil
}

// TermsAction ranks vocabulary across stored sections.
func TermsAction(c *cli.Context) error {
	database, err := dbpkg.Open(c.String("db"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	sections, err := database.ListSections(c.String("jurisdiction"), 0)
	if err != nil {
		return fmt.Errorf("failed to load sections: %w", err)
	}
	if len(sections) == 0 {
		fmt.Println("No sections stored")
		return nil
	}

	freq := make(terms.Frequency)
	for _, section := range sections {
		freq = terms.Merge(freq, terms.CountSection(section))
	}

	top := terms.Top(freq, c.Int("limit"))
	if c.Bool("json") {
		data, err := json.MarshalIndent(top, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("Term frequency over %d sections:\n", len(sections))
	for _, tc := range top {
		fmt.Printf("  %-25s %d\n", tc.Term, tc.Count)
	}
	return nil
}
