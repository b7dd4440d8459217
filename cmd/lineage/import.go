package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/boyter/gocodewalker"
	"github.com/rlch/lineage/exchange"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// ErrNoGedcomFiles is returned when import finds nothing to read.
var ErrNoGedcomFiles = errors.New("no .ged files found")

const gedcomExtension = "ged"

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import GEDCOM files into a tree",
		ArgsUsage: "<files or directories...>",
		Flags: []cli.Flag{
			scopeFlag(),
			jsonFlag(),
			&cli.StringFlag{
				Name:  "role-policy",
				Usage: "how adoption evidence is weighed (family-first, pedigree-first, family-only, pedigree-only)",
			},
		},
		Action: runImport,
	}
}

func runImport(ctx context.Context, cmd *cli.Command) error {
	files, err := collectGedcomFiles(cmd.Args().Slice())
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return ErrNoGedcomFiles
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	opts := []exchange.Option{exchange.WithLogger(s.logger), exchange.WithConfig(s.cfg)}
	if policy := cmd.String("role-policy"); policy != "" {
		opts = append(opts, exchange.WithRolePolicy(policy))
	}

	importer, err := exchange.NewImporter(s.engine, opts...)
	if err != nil {
		return err
	}

	out := formatter(cmd)
	scope := cmd.String("scope")

	for _, file := range files {
		data, err := os.ReadFile(filepath.Clean(file))
		if err != nil {
			return fmt.Errorf("reading %s: %w", file, err)
		}

		s.logger.Debug("importing", zap.String("file", file), zap.String("scope", scope))

		result, err := importer.Import(ctx, data, scope)
		if err != nil {
			return fmt.Errorf("importing %s: %w", file, err)
		}

		if err := out.Import(file, result); err != nil {
			return err
		}
	}

	return nil
}

// collectGedcomFiles expands directories into the .ged files beneath them.
// Files named explicitly are taken whatever their extension.
func collectGedcomFiles(args []string) ([]string, error) {
	var files []string

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			files = append(files, arg)

			continue
		}

		found, err := walkGedcom(arg)
		if err != nil {
			return nil, err
		}

		files = append(files, found...)
	}

	return files, nil
}

// walkGedcom lists the GEDCOM files under root in path order, skipping what
// .gitignore and .ignore files exclude.
func walkGedcom(root string) ([]string, error) {
	queue := make(chan *gocodewalker.File, 100)

	walker := gocodewalker.NewFileWalker(root, queue)
	walker.AllowListExtensions = []string{gedcomExtension, strings.ToUpper(gedcomExtension)}

	// The handler runs on the walker's goroutines.
	var (
		mu   sync.Mutex
		errs []error
	)

	walker.SetErrorHandler(func(err error) bool {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()

		return true
	})

	done := make(chan error, 1)

	go func() {
		done <- walker.Start()
	}()

	var files []string
	for f := range queue {
		files = append(files, f.Location)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	mu.Lock()
	defer mu.Unlock()

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	slices.Sort(files)

	return files, nil
}
