package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rlch/lineage/render"
	"github.com/urfave/cli/v3"
)

// ErrMissingArgument is returned when a command is run without its
// positional arguments.
var ErrMissingArgument = errors.New("missing argument")

const defaultGenerations = 4

func generationsFlag() cli.Flag {
	return &cli.IntFlag{
		Name:    "generations",
		Aliases: []string{"g"},
		Usage:   "how many generations to follow",
		Value:   defaultGenerations,
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:   "list",
		Usage:  "List the people in a tree",
		Flags:  []cli.Flag{scopeFlag(), jsonFlag()},
		Action: runList,
	}
}

func runList(ctx context.Context, cmd *cli.Command) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	people, err := s.store.ListPersons(ctx, cmd.String("scope"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return printJSON(output(cmd), people)
	}

	for _, p := range people {
		if _, err := fmt.Fprintln(output(cmd), render.PersonLabel(p)); err != nil {
			return err
		}
	}

	return nil
}

func ancestorsCommand() *cli.Command {
	return &cli.Command{
		Name:      "ancestors",
		Usage:     "Show a person's ancestor tree",
		ArgsUsage: "<person-id>",
		Flags:     []cli.Flag{generationsFlag(), jsonFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return view(cmd, func(s *session, id string, generations int) error {
				tree, err := s.traverser.Ancestors(ctx, id, generations)
				if err != nil {
					return err
				}

				return formatter(cmd).Ancestors(tree)
			})
		},
	}
}

func descendantsCommand() *cli.Command {
	return &cli.Command{
		Name:      "descendants",
		Usage:     "Show a person's descendant tree",
		ArgsUsage: "<person-id>",
		Flags:     []cli.Flag{generationsFlag(), jsonFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return view(cmd, func(s *session, id string, generations int) error {
				tree, err := s.traverser.Descendants(ctx, id, generations)
				if err != nil {
					return err
				}

				return formatter(cmd).Descendants(tree)
			})
		},
	}
}

func chartCommand() *cli.Command {
	return &cli.Command{
		Name:      "chart",
		Usage:     "Show a family chart: spouses and descendants, with the root's parents",
		ArgsUsage: "<person-id>",
		Flags:     []cli.Flag{generationsFlag(), jsonFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return view(cmd, func(s *session, id string, generations int) error {
				chart, err := s.traverser.FamilyChart(ctx, id, generations)
				if err != nil {
					return err
				}

				return formatter(cmd).Chart(chart)
			})
		},
	}
}

func view(cmd *cli.Command, show func(s *session, id string, generations int) error) error {
	if cmd.Args().Len() < 1 {
		return fmt.Errorf("%w: usage: lineage %s <person-id>", ErrMissingArgument, cmd.Name)
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	return show(s, cmd.Args().First(), cmd.Int("generations"))
}
