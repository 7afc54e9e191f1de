package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/bft-labs/carconsole/internal/adapters/ingest"
	"github.com/bft-labs/carconsole/internal/cliconfig"
	"github.com/bft-labs/carconsole/pkg/console"
	"github.com/bft-labs/carconsole/pkg/dispatch"
	"github.com/bft-labs/carconsole/pkg/layout"
	"github.com/bft-labs/carconsole/pkg/log"
)

func newRenderCmd(cfg *cliconfig.Config, cfgPath *string) *cobra.Command {
	var (
		ticks int
		plain bool
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the layout headlessly against simulated telemetry and print it",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd, cfg, *cfgPath); err != nil {
				return err
			}
			if ticks < 1 {
				return fmt.Errorf("ticks must be positive, got %d", ticks)
			}
			return render(cmd.OutOrStdout(), *cfg, ticks, plain)
		},
	}
	cmd.Flags().IntVar(&ticks, "ticks", 30, "number of ticks to run before printing")
	cmd.Flags().BoolVar(&plain, "plain", false, "print plain text instead of ANSI colors")
	return cmd
}

func render(out io.Writer, cfg cliconfig.Config, ticks int, plain bool) error {
	logger := log.NewZerologAdapterWithLogger(cliconfig.Logger(os.Stderr, "warn"))

	cc := cfg.ConsoleConfig()
	cc.Manual = true
	// never touch the interactive session's files
	cc.SnapshotPath = ""
	cc.SaveLayoutOnExit = false

	display := dispatch.NewHeadlessDisplay()
	c, err := console.New(cc, append(builtins(cfg),
		console.WithLogger(logger),
		console.WithDisplay(display),
	)...)
	if err != nil {
		return fmt.Errorf("create console: %w", err)
	}
	if err := c.Start(context.Background()); err != nil {
		return fmt.Errorf("start console: %w", err)
	}
	defer c.Stop()

	sim := ingest.NewSimulator(ingest.DefaultSimulatorConfig())
	var doc *layout.Document
	for i := 0; i < ticks; i++ {
		for _, s := range sim.Step() {
			_ = c.Bus().Ingest(s)
		}
		var inspected <-chan error
		if i == ticks-1 {
			inspected = c.Submit(dispatch.Inspect(func(d *layout.Document) { doc = d.Clone() }))
		}
		rep, err := c.Tick()
		if err != nil {
			return err
		}
		for _, name := range rep.Faults {
			fmt.Fprintf(os.Stderr, "plugin %s faulted on tick %d\n", name, rep.Tick)
		}
		if inspected != nil {
			if err := <-inspected; err != nil {
				return err
			}
		}
	}

	for _, w := range doc.Windows {
		canvas, ok := display.Canvas(w.ID)
		if !ok {
			continue
		}
		width, height := canvas.Size()
		fmt.Fprintf(out, "== %s (%dx%d) ==\n", w.Title, width, height)
		if plain {
			fmt.Fprintln(out, canvas.String())
		} else {
			fmt.Fprintln(out, canvas.ANSI())
		}
	}
	return nil
}
