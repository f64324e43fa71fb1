package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type compileCmd struct {
	gs     *globalState
	format string
	strict bool
}

func (c *compileCmd) run(_ *cobra.Command, args []string) error {
	e, err := c.gs.engine()
	if err != nil {
		return err
	}
	if c.strict {
		if err := e.CheckModifier(args[0]); err != nil {
			return err
		}
	}
	d, err := e.Compile(args[0])
	if err != nil {
		return err
	}

	var out []byte
	switch c.format {
	case "yaml":
		out, err = yaml.Marshal(d)
	case "json":
		out, err = json.MarshalIndent(d, "", "  ")
		out = append(out, '\n')
	default:
		return fmt.Errorf("unsupported output format %q", c.format)
	}
	if err != nil {
		return fmt.Errorf("failed to encode descriptor: %w", err)
	}
	_, err = c.gs.stdout.Write(out)
	return err
}

func getCmdCompile(gs *globalState) *cobra.Command {
	c := &compileCmd{gs: gs}

	cmd := &cobra.Command{
		Use:   "compile <modifier>",
		Short: "Print the descriptor of a modifier",
		Long: `Compile a modifier expression and print its descriptor: the event name,
the tests and the method names.`,
		Example: `  evmod compile 'keydown[ctrlKey][code="KeyS"].prevent'
  evmod compile --format json 'click[!altKey].stop'`,
		Args: cobra.ExactArgs(1),
		RunE: c.run,
	}

	cmd.Flags().StringVarP(&c.format, "format", "f", "yaml", "output format: yaml or json")
	cmd.Flags().BoolVar(&c.strict, "strict", false, "fail on names missing from the default tables")
	return cmd
}
