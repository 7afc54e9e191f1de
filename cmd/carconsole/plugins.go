package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/bft-labs/carconsole/internal/cliconfig"
	"github.com/bft-labs/carconsole/pkg/console"
	"github.com/bft-labs/carconsole/pkg/log"
)

func newPluginsCmd(cfg *cliconfig.Config, cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "Load the configured plugins and list them",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd, cfg, *cfgPath); err != nil {
				return err
			}
			return listPlugins(cmd.OutOrStdout(), *cfg)
		},
	}
}

// loadFailures collects plugin errors reported while starting.
type loadFailures struct {
	console.BaseEventHandler
	errs []console.PluginErrorEvent
}

func (h *loadFailures) OnPluginError(e console.PluginErrorEvent) {
	h.errs = append(h.errs, e)
}

func listPlugins(out io.Writer, cfg cliconfig.Config) error {
	cc := cfg.ConsoleConfig()
	cc.Manual = true
	cc.SnapshotPath = ""
	cc.SaveLayoutOnExit = false

	failures := &loadFailures{}
	c, err := console.New(cc, append(builtins(cfg),
		console.WithLogger(log.NewZerologAdapterWithLogger(cliconfig.Logger(os.Stderr, "error"))),
		console.WithEventHandler(failures),
	)...)
	if err != nil {
		return fmt.Errorf("create console: %w", err)
	}
	if err := c.Start(context.Background()); err != nil {
		return fmt.Errorf("start console: %w", err)
	}
	defer c.Stop()

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tVERSION\tABI\tSIZE\tLOADED\tPATH")
	for _, d := range c.Registry().List() {
		size := "-"
		if fi, err := os.Stat(d.Path); err == nil {
			size = humanize.Bytes(uint64(fi.Size()))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			d.Name, d.Version, d.ABI, size, humanize.Time(d.LoadedAt), d.Path)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, e := range failures.errs {
		fmt.Fprintf(out, "failed: %s: %v\n", e.Path, e.Err)
	}
	if len(failures.errs) > 0 {
		return fmt.Errorf("%d plugin(s) failed to load", len(failures.errs))
	}
	return nil
}
