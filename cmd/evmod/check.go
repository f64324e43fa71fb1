package main

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/robbyt/go-evmod/platform/config"
)

type checkCmd struct {
	gs *globalState
}

func (c *checkCmd) run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	f, err := config.Load(c.gs.fs, args[0])
	if err != nil {
		return err
	}

	e, err := c.gs.engine()
	if err != nil {
		return err
	}
	defer func() { _ = e.Close(ctx) }()

	if err := e.CheckConfig(ctx, f); err != nil {
		return err
	}

	_, err = c.gs.color(color.FgGreen).Fprintf(c.gs.stdout,
		"ok %s: %d imports, %d modifiers, %d actions\n",
		args[0], len(f.Imports), len(f.Modifiers()), len(f.Actions()))
	return err
}

func getCmdCheck(gs *globalState) *cobra.Command {
	c := &checkCmd{gs: gs}

	return &cobra.Command{
		Use:   "check <config>",
		Short: "Validate a binding config file",
		Long: `Load a YAML (.yaml, .yml) or TOML (.toml) binding config, import its
modules and compile every modifier against the default tables plus the
imported variables.`,
		Args: cobra.ExactArgs(1),
		RunE: c.run,
	}
}
