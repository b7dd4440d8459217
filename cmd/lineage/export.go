package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rlch/lineage/exchange"
	"github.com/urfave/cli/v3"
)

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export a tree as GEDCOM 5.5.1",
		Flags: []cli.Flag{
			scopeFlag(),
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "output file (default: stdout)",
			},
			&cli.StringFlag{
				Name:    "exclude",
				Aliases: []string{"x"},
				Usage:   `expression selecting people to leave out, e.g. 'Living && BirthYear > 1920'`,
				Sources: cli.EnvVars("LINEAGE_EXPORT_EXCLUDE"),
			},
		},
		Action: runExport,
	}
}

func runExport(ctx context.Context, cmd *cli.Command) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	opts := []exchange.Option{exchange.WithLogger(s.logger), exchange.WithConfig(s.cfg)}
	if exclude := cmd.String("exclude"); exclude != "" {
		opts = append(opts, exchange.WithExclude(exclude))
	}

	exporter, err := exchange.NewExporter(s.store, opts...)
	if err != nil {
		return err
	}

	path := cmd.String("out")
	if path == "" {
		return exporter.ExportTo(ctx, output(cmd), cmd.String("scope"))
	}

	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	if err := exporter.ExportTo(ctx, f, cmd.String("scope")); err != nil {
		_ = f.Close()

		return err
	}

	return f.Close()
}
