// Package dbcmd implements database maintenance CLI commands.
package dbcmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/urfave/cli/v2"

	dbpkg "github.com/RulesFoundation/atlas/pkg/db"
)

func InitAction(c *cli.Context) error {
	database, err := dbpkg.Open(c.String("db"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	if err := database.InitSchema(); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	fmt.Printf("Database initialized at %s\n", database.Path())
	return nil
}

func PathAction(c *cli.Context) error {
	database, err := dbpkg.Open(c.String("db"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	fmt.Println(database.Path())
	return nil
}

func StatsAction(c *cli.Context) error {
	database, err := dbpkg.Open(c.String("db"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	stats, err := database.Stats()
	if err != nil {
		return fmt.Errorf("failed to compute stats: %w", err)
	}

	if len(stats) == 0 {
		fmt.Println("No sections stored")
		return nil
	}

	jurisdictions := make([]string, 0, len(stats))
	for j := range stats {
		jurisdictions = append(jurisdictions, j)
	}
	sort.Strings(jurisdictions)

	fmt.Printf("%-10s %s\n", "JURIS", "SECTIONS")
	fmt.Println(strings.Repeat("-", 20))
	total := 0
	for _, j := range jurisdictions {
		fmt.Printf("%-10s %d\n", j, stats[j])
		total += stats[j]
	}
	fmt.Printf("\nTotal: %d sections in %s\n", total, database.Path())
	return nil
}
