package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukex/supplyflow/pkg/cmd"
	"github.com/dukex/supplyflow/pkg/events"
	"github.com/dukex/supplyflow/pkg/log"
	"github.com/dukex/supplyflow/pkg/models"
	"github.com/dukex/supplyflow/pkg/services"
	"github.com/dukex/supplyflow/pkg/transitions"
	"github.com/urfave/cli/v3"
)

var errInvalidRules = errors.New("rules file has invalid rules")

// ValidateCommand checks transition table and rule files without starting
// anything.
func ValidateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Validate transition tables and a rules file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "transitions-file",
				Usage:   "YAML file overriding the built-in transition tables",
				Sources: cli.EnvVars("TRANSITIONS_FILE"),
			},
			&cli.StringFlag{
				Name:    "rules-file",
				Usage:   "YAML rules file to check",
				Sources: cli.EnvVars("RULES_FILE"),
			},
		},
		Action: func(_ context.Context, command *cli.Command) error {
			out := command.Root().Writer

			tables, err := transitions.LoadFile(command.String("transitions-file"))
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "transition tables: %d document types ok\n", len(tables.Types()))

			path := command.String("rules-file")
			if path == "" {
				return nil
			}

			rules, err := services.LoadRulesFile(path)
			if err != nil {
				return err
			}

			logger := log.Discard()
			svc := services.NewRules(nil, cmd.NewValidationRegistry(logger), nil, logger)

			failed := 0

			for i, rule := range rules {
				if err := svc.Validate(rule); err != nil {
					failed++

					fmt.Fprintf(out, "rule %d (%s): %v\n", i, rule.Name, err)

					continue
				}

				if rule.EntityType != events.Wildcard && !tables.Supports(models.DocumentType(rule.EntityType)) {
					fmt.Fprintf(out, "rule %d (%s): warning: entity type %q has no transition table\n", i, rule.Name, rule.EntityType)
				}
			}

			fmt.Fprintf(out, "rules: %d ok, %d invalid\n", len(rules)-failed, failed)

			if failed > 0 {
				return errInvalidRules
			}

			return nil
		},
	}
}
