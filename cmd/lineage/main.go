// Command lineage manages a family graph: GEDCOM import and export, tree
// views and edge edits against the store configured in .lineage.yaml.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rlch/lineage"
	"github.com/urfave/cli/v3"

	// Register store backends via init().
	_ "github.com/rlch/lineage/databases/badger"
	_ "github.com/rlch/lineage/databases/memory"
	_ "github.com/rlch/lineage/databases/neo4j"
	_ "github.com/rlch/lineage/databases/sqlite"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "lineage",
		Usage: "Family graph storage, traversal and GEDCOM exchange",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to .lineage.yaml (default: search upward from the working directory)",
				Sources: cli.EnvVars("LINEAGE_CONFIG"),
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "enable debug logging",
				Sources: cli.EnvVars("LINEAGE_DEBUG"),
			},
		},
		Commands: []*cli.Command{
			importCommand(),
			exportCommand(),
			listCommand(),
			ancestorsCommand(),
			descendantsCommand(),
			chartCommand(),
			linkCommand(),
			unlinkCommand(),
			removePersonCommand(),
		},
	}
}

func scopeFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "scope",
		Aliases: []string{"s"},
		Usage:   "tree the command works on",
		Value:   lineage.DefaultScope,
		Sources: cli.EnvVars("LINEAGE_SCOPE"),
	}
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "output results as JSON",
	}
}
