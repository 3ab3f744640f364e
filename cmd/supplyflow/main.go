// Command supplyflow runs the document workflow automation engine.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

func newApp() *cli.Command {
	return &cli.Command{
		Name:                  "supplyflow",
		Usage:                 "Automate supply chain document workflows",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			ServeCommand(),
			ValidateCommand(),
			TablesCommand(),
		},
	}
}

func main() {
	err := newApp().Run(context.Background(), os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
