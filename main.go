package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/RulesFoundation/atlas/internal/convert"
	"github.com/RulesFoundation/atlas/internal/dbcmd"
	"github.com/RulesFoundation/atlas/internal/ingest"
	"github.com/RulesFoundation/atlas/internal/query"
)

func main() {
	dbFlag := &cli.StringFlag{
		Name:  "db",
		Usage: "sqlite database path",
		Value: "atlas.db",
	}
	rateFlag := &cli.Float64Flag{
		Name:  "rate",
		Usage: "max requests per second per host",
	}

	app := &cli.App{
		Name:  "atlas",
		Usage: "Pull statutory text from government sources into a normalized archive",
		Commands: []*cli.Command{
			{
				Name:   "convert",
				Usage:  "Fetch and normalize one section",
				Action: convert.ConvertAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "jurisdiction", Aliases: []string{"j"}, Usage: "jurisdiction ID, e.g. us, us-fl, uk"},
					&cli.StringFlag{Name: "citation", Aliases: []string{"c"}, Usage: "jurisdiction-specific citation"},
					&cli.StringFlag{Name: "format", Usage: "source format when a jurisdiction has several"},
					&cli.BoolFlag{Name: "akn", Usage: "emit Akoma Ntoso XML instead of JSON"},
					&cli.StringFlag{Name: "lang", Usage: "alternate source language (fr for Canada)"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "write to file instead of stdout"},
					&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "only log errors"},
					rateFlag,
				},
			},
			{
				Name:   "sections",
				Usage:  "List section citations within a unit (chapter, title, act)",
				Action: convert.SectionsAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "jurisdiction", Aliases: []string{"j"}},
					&cli.StringFlag{Name: "unit", Aliases: []string{"u"}},
					&cli.StringFlag{Name: "format"},
					rateFlag,
				},
			},
			{
				Name:   "ingest",
				Usage:  "Bulk-ingest sections from a YAML target config",
				Action: ingest.IngestAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "config", Usage: "ingest config file", Value: "atlas.yaml"},
					&cli.IntFlag{Name: "workers", Usage: "worker count override"},
					&cli.BoolFlag{Name: "emit-akn", Usage: "write Akoma Ntoso artifacts"},
					&cli.StringFlag{Name: "output-dir", Usage: "artifact directory override"},
					&cli.StringFlag{Name: "max-age", Usage: "reuse artifacts newer than this", Value: "168h"},
					&cli.BoolFlag{Name: "force", Usage: "rewrite artifacts regardless of age"},
					&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}},
					dbFlag,
					rateFlag,
				},
			},
			{
				Name:      "search",
				Usage:     "Full-text search over stored sections",
				ArgsUsage: "<query>",
				Action:    query.SearchAction,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Value: 10},
					dbFlag,
				},
			},
			{
				Name:      "show",
				Usage:     "Display one stored section",
				ArgsUsage: "<section>",
				Action:    query.ShowAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "jurisdiction", Aliases: []string{"j"}},
					&cli.IntFlag{Name: "title", Aliases: []string{"t"}, Usage: "title number, when the section repeats across titles"},
					&cli.StringFlag{Name: "format", Usage: "json, akn, or text", Value: "json"},
					dbFlag,
				},
			},
			{
				Name:      "refs",
				Usage:     "List stored sections referencing a citation path",
				ArgsUsage: "<citation-path>",
				Action:    query.RefsAction,
				Flags:     []cli.Flag{dbFlag},
			},
			{
				Name:   "terms",
				Usage:  "Rank vocabulary across stored sections",
				Action: query.TermsAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "jurisdiction", Aliases: []string{"j"}, Usage: "restrict to one jurisdiction"},
					&cli.IntFlag{Name: "limit", Value: 25},
					&cli.BoolFlag{Name: "json"},
					dbFlag,
				},
			},
			{
				Name:   "jurisdictions",
				Usage:  "List known jurisdictions and their converters",
				Action: convert.JurisdictionsAction,
			},
			{
				Name:  "db",
				Usage: "Database maintenance",
				Subcommands: []*cli.Command{
					{
						Name:   "init",
						Usage:  "Create the schema",
						Action: dbcmd.InitAction,
						Flags:  []cli.Flag{dbFlag},
					},
					{
						Name:   "stats",
						Usage:  "Per-jurisdiction section counts",
						Action: dbcmd.StatsAction,
						Flags:  []cli.Flag{dbFlag},
					},
					{
						Name:   "path",
						Usage:  "Print the database location",
						Action: dbcmd.PathAction,
						Flags:  []cli.Flag{dbFlag},
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
