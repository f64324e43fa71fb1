package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/robbyt/go-evmod/execution/data"
	"github.com/robbyt/go-evmod/platform/binding"
	"github.com/robbyt/go-evmod/platform/config"
	"github.com/robbyt/go-evmod/platform/dom"
)

var errInvalidEventLine = errors.New("invalid event line")

type runCmd struct {
	gs     *globalState
	html   string
	events string
}

// replayEvent is one line of an events file:
//
//	{"selector": "#editor", "type": "keydown", "props": {"ctrlKey": true}, "bubbles": true, "cancelable": true}
type replayEvent struct {
	selector string
	event    *dom.Event
}

func parseEventLine(line string) (*replayEvent, error) {
	if !gjson.Valid(line) {
		return nil, fmt.Errorf("%w: not valid JSON", errInvalidEventLine)
	}
	res := gjson.GetMany(line, "selector", "type", "props", "bubbles", "cancelable")
	sel, typ, props := res[0].String(), res[1].String(), res[2]
	if sel == "" || typ == "" {
		return nil, fmt.Errorf("%w: selector and type are required", errInvalidEventLine)
	}

	raw := "{}"
	if props.Exists() {
		raw = props.Raw
	}
	ev, err := dom.NewEventFromJSON(typ, raw,
		dom.WithBubbles(!res[3].Exists() || res[3].Bool()),
		dom.WithCancelable(!res[4].Exists() || res[4].Bool()),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidEventLine, err)
	}
	return &replayEvent{selector: sel, event: ev}, nil
}

func (c *runCmd) action(name string) binding.Action {
	fired := c.gs.color(color.FgCyan)
	return binding.Func(func(_ context.Context, ev data.Event) error {
		where := "?"
		if de, ok := ev.(*dom.Event); ok && de.CurrentTarget() != nil {
			where = de.CurrentTarget().String()
		}
		_, err := fired.Fprintf(c.gs.stdout, "  action %s on %s\n", name, where)
		return err
	})
}

func (c *runCmd) openEvents() (io.ReadCloser, error) {
	if c.events == "-" {
		return io.NopCloser(c.gs.stdin), nil
	}
	return c.gs.fs.Open(c.events)
}

func (c *runCmd) run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	f, err := config.Load(c.gs.fs, args[0])
	if err != nil {
		return err
	}
	page, err := c.gs.fs.Open(c.html)
	if err != nil {
		return fmt.Errorf("opening page: %w", err)
	}
	defer func() { _ = page.Close() }()

	e, err := c.gs.engine()
	if err != nil {
		return err
	}
	defer func() { _ = e.Close(ctx) }()

	handler, err := c.gs.logHandler()
	if err != nil {
		return err
	}
	doc, err := dom.ParseHTML(page, dom.WithLogHandler(handler))
	if err != nil {
		return err
	}

	applied, err := e.ApplyConfig(ctx, f, doc, c.action)
	if err != nil {
		return err
	}
	defer applied.Remove()

	events, err := c.openEvents()
	if err != nil {
		return fmt.Errorf("opening events: %w", err)
	}
	defer func() { _ = events.Close() }()

	return c.replay(ctx, doc, events)
}

func (c *runCmd) replay(ctx context.Context, doc *dom.Document, r io.Reader) error {
	dispatched := c.gs.color(color.Bold)
	var errs []error

	scanner := bufio.NewScanner(r)
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		re, err := parseEventLine(line)
		if err != nil {
			return fmt.Errorf("line %d: %w", n, err)
		}

		targets, err := doc.QuerySelectorAll(re.selector)
		if err != nil {
			return fmt.Errorf("line %d: %w", n, err)
		}
		if len(targets) == 0 {
			_, _ = fmt.Fprintf(c.gs.stdout, "%s on %s: no matching element\n", re.event.Type(), re.selector)
			continue
		}

		if _, err := dispatched.Fprintf(c.gs.stdout, "%s on %s\n", re.event.Type(), targets[0]); err != nil {
			return err
		}
		ok, err := targets[0].DispatchEvent(ctx, re.event)
		if err != nil {
			errs = append(errs, fmt.Errorf("line %d: %w", n, err))
		}
		if !ok {
			_, _ = fmt.Fprintln(c.gs.stdout, "  default prevented")
		}
	}
	if err := scanner.Err(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func getCmdRun(gs *globalState) *cobra.Command {
	c := &runCmd{gs: gs}

	cmd := &cobra.Command{
		Use:   "run <config>",
		Short: "Replay events against a page",
		Long: `Load an HTML page, apply the bindings and shortcuts of a config file to it,
then dispatch the events of a JSON lines file in order. Each line names the
target selector, the event type and the event properties:

  {"selector": "#editor", "type": "keydown", "props": {"ctrlKey": true, "code": "KeyS"}}

Every action that fires is printed with the element it was bound to.`,
		Example: `  evmod run app.yaml --html page.html --events events.jsonl
  cat events.jsonl | evmod run app.yaml --html page.html --events -`,
		Args: cobra.ExactArgs(1),
		RunE: c.run,
	}

	cmd.Flags().StringVar(&c.html, "html", "", "HTML page to bind to")
	cmd.Flags().StringVar(&c.events, "events", "-", "JSON lines file of events, or - for stdin")
	_ = cmd.MarkFlagRequired("html")
	return cmd
}
