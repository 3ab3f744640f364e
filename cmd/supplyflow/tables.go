package main

import (
	"context"
	"fmt"

	"github.com/dukex/supplyflow/pkg/models"
	"github.com/dukex/supplyflow/pkg/transitions"
	"github.com/urfave/cli/v3"
)

func TablesCommand() *cli.Command {
	return &cli.Command{
		Name:      "tables",
		Usage:     "Print the effective transition tables as YAML",
		ArgsUsage: "[document-type]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "transitions-file",
				Usage:   "YAML file overriding the built-in transition tables",
				Sources: cli.EnvVars("TRANSITIONS_FILE"),
			},
		},
		Action: func(_ context.Context, command *cli.Command) error {
			tables, err := transitions.LoadFile(command.String("transitions-file"))
			if err != nil {
				return err
			}

			if docType := models.DocumentType(command.Args().First()); docType != "" {
				table, ok := tables.Table(docType)
				if !ok {
					return fmt.Errorf("%w: %s", transitions.ErrUnknownDocumentType, docType)
				}

				tables, err = transitions.NewValidator(map[models.DocumentType]transitions.Table{docType: table})
				if err != nil {
					return err
				}
			}

			out, err := transitions.Marshal(tables)
			if err != nil {
				return err
			}

			_, err = command.Root().Writer.Write(out)

			return err
		},
	}
}
