package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/robbyt/go-evmod"
	"github.com/robbyt/go-evmod/options"
)

// globalState holds what the commands share: the output streams, the file
// system and the global flags.
type globalState struct {
	ctx    context.Context
	fs     afero.Fs
	stdout io.Writer
	stderr io.Writer
	stdin  io.Reader
	isTTY  bool

	logLevel string
	noColor  bool
}

func newGlobalState() *globalState {
	return &globalState{
		ctx:    context.Background(),
		fs:     afero.NewOsFs(),
		stdout: os.Stdout,
		stderr: os.Stderr,
		stdin:  os.Stdin,
		isTTY:  isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()),
	}
}

func (gs *globalState) logHandler() (slog.Handler, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(gs.logLevel)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", gs.logLevel, err)
	}
	return slog.NewTextHandler(gs.stderr, &slog.HandlerOptions{Level: level}), nil
}

func (gs *globalState) engine(opts ...options.Option) (*evmod.Engine, error) {
	handler, err := gs.logHandler()
	if err != nil {
		return nil, err
	}
	return evmod.New(append([]options.Option{options.WithLogHandler(handler)}, opts...)...)
}

func (gs *globalState) color(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if gs.noColor || !gs.isTTY {
		c.DisableColor()
	} else {
		c.EnableColor()
	}
	return c
}

func newRootCmd(gs *globalState) *cobra.Command {
	root := &cobra.Command{
		Use:           "evmod",
		Short:         "Event modifier tool",
		Long:          "Compile, evaluate and replay event modifier expressions such as keydown[ctrlKey][code=\"KeyS\"].prevent",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			gs.logLevel = strings.ToLower(gs.logLevel)
			_, err := gs.logHandler()
			return err
		},
	}
	root.SetOut(gs.stdout)
	root.SetErr(gs.stderr)
	root.SetIn(gs.stdin)

	flags := root.PersistentFlags()
	flags.StringVar(&gs.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	flags.BoolVar(&gs.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		getCmdCompile(gs),
		getCmdEval(gs),
		getCmdCheck(gs),
		getCmdRun(gs),
	)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w (see --help)", err)
	})
	return root
}

// execute runs the command line in args and returns the process exit code.
func execute(gs *globalState, args []string) int {
	root := newRootCmd(gs)
	root.SetArgs(args)
	if err := root.ExecuteContext(gs.ctx); err != nil {
		_, _ = gs.color(color.FgRed).Fprintf(gs.stderr, "error: %v\n", err)
		return 1
	}
	return 0
}
