package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rlch/lineage"
	"github.com/urfave/cli/v3"
)

func linkCommand() *cli.Command {
	return &cli.Command{
		Name:      "link",
		Usage:     "Create a relationship; for parent-child the first person is the parent",
		ArgsUsage: "<person1-id> <person2-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "type",
				Aliases: []string{"t"},
				Usage:   "relationship type (parent-child, spousal, sibling)",
				Value:   string(lineage.RelationshipParentChild),
			},
			&cli.StringFlag{
				Name:  "role",
				Usage: "parental role for parent-child edges (biological, adoptive, step, foster, guardian)",
			},
			&cli.StringFlag{
				Name:  "status",
				Usage: "status for spousal edges (married, divorced, other)",
			},
			&cli.StringFlag{
				Name:  "notes",
				Usage: "free-text notes",
			},
			jsonFlag(),
		},
		Action: runLink,
	}
}

func runLink(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() < 2 {
		return fmt.Errorf("%w: usage: lineage link <person1-id> <person2-id>", ErrMissingArgument)
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	attrs := lineage.RelationshipAttrs{
		ParentalRole: lineage.ParentalRole(cmd.String("role")),
		Status:       lineage.SpousalStatus(cmd.String("status")),
		Notes:        cmd.String("notes"),
	}

	r, err := s.engine.CreateRelationship(ctx,
		cmd.Args().Get(0), cmd.Args().Get(1),
		lineage.RelationshipType(cmd.String("type")), attrs)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return printJSON(output(cmd), r)
	}

	_, err = fmt.Fprintln(output(cmd), r.ID)

	return err
}

func unlinkCommand() *cli.Command {
	return &cli.Command{
		Name:      "unlink",
		Usage:     "Delete a relationship",
		ArgsUsage: "<relationship-id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() < 1 {
				return fmt.Errorf("%w: usage: lineage unlink <relationship-id>", ErrMissingArgument)
			}

			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			return s.engine.DeleteRelationship(ctx, cmd.Args().First())
		},
	}
}

func removePersonCommand() *cli.Command {
	return &cli.Command{
		Name:      "remove-person",
		Aliases:   []string{"rm"},
		Usage:     "Delete a person and every relationship touching them",
		ArgsUsage: "<person-id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() < 1 {
				return fmt.Errorf("%w: usage: lineage remove-person <person-id>", ErrMissingArgument)
			}

			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			return s.engine.DeletePerson(ctx, cmd.Args().First())
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}
