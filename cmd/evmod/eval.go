package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/robbyt/go-evmod"
	"github.com/robbyt/go-evmod/platform/dom"
)

type evalCmd struct {
	gs      *globalState
	event   string
	imports []string
}

func (c *evalCmd) run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := c.gs.engine()
	if err != nil {
		return err
	}
	defer func() { _ = e.Close(ctx) }()

	if err := importFiles(ctx, e, c.imports); err != nil {
		return err
	}

	d, err := e.Compile(args[0])
	if err != nil {
		return err
	}
	ev, err := dom.NewEventFromJSON(d.EventName, c.event)
	if err != nil {
		return fmt.Errorf("invalid event: %w", err)
	}

	ok, err := e.Evaluator().Evaluate(ctx, d.Tests, ev)
	if err != nil {
		return err
	}
	if !ok {
		_, err = c.gs.color(color.FgRed, color.Bold).Fprintf(c.gs.stdout, "FAIL %s\n", d)
		return err
	}

	if _, err := c.gs.color(color.FgGreen, color.Bold).Fprintf(c.gs.stdout, "PASS %s\n", d); err != nil {
		return err
	}
	if len(d.MethodNames) > 0 {
		_, err = fmt.Fprintf(c.gs.stdout, "methods: %s\n", strings.Join(d.MethodNames, ", "))
	}
	return err
}

// importFiles imports script modules given as paths relative to the
// working directory.
func importFiles(ctx context.Context, e *evmod.Engine, files []string) error {
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return err
		}
		if err := e.Import(ctx, abs, evmod.ImportOptions{}); err != nil {
			return err
		}
	}
	return nil
}

func getCmdEval(gs *globalState) *cobra.Command {
	c := &evalCmd{gs: gs}

	cmd := &cobra.Command{
		Use:   "eval <modifier>",
		Short: "Evaluate a modifier against an event",
		Long: `Evaluate the tests of a modifier against the properties of one event, given
as a JSON object, and print whether the event passes and which methods
would be applied.`,
		Example: `  evmod eval 'keydown[ctrlKey][code="KeyS"].prevent' --event '{"ctrlKey":true,"code":"KeyS"}'
  evmod eval 'keydown[key=NEXT_KEY]' --import keys.star --event '{"key":"ArrowRight"}'`,
		Args: cobra.ExactArgs(1),
		RunE: c.run,
	}

	cmd.Flags().StringVarP(&c.event, "event", "e", "{}", "event properties as a JSON object")
	cmd.Flags().StringSliceVarP(&c.imports, "import", "i", nil, "script module whose functions become variables (repeatable)")
	return cmd
}
