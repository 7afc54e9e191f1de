package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/carconsole/internal/adapters/ingest"
	"github.com/bft-labs/carconsole/internal/adapters/terminal"
	"github.com/bft-labs/carconsole/internal/cliconfig"
	"github.com/bft-labs/carconsole/pkg/console"
	"github.com/bft-labs/carconsole/pkg/log"
	"github.com/bft-labs/carconsole/plugins/layoutwatch"
	"github.com/bft-labs/carconsole/plugins/pluginwatch"
	"github.com/bft-labs/carconsole/plugins/speedometer"
	"github.com/bft-labs/carconsole/plugins/tachometer"
	"github.com/bft-labs/carconsole/plugins/tripcomputer"
	"github.com/bft-labs/carconsole/plugins/warnings"
)

const helpDescription = `
A terminal dashboard for vehicle telemetry.

Highlights:
  - Panels are plugins: built-in gauges, Lua scripts or Go plugin modules.
  - Layouts are XML or YAML documents; drag split borders with the mouse.
  - Layout and plugin files reload while the dashboard runs.
  - Telemetry comes from an MQTT broker or the built-in simulator.

Keys: Tab cycles windows, q or Esc quits.
`

var exampleUsage = strings.TrimSpace(`
  carconsole --simulate
  carconsole --mqtt-broker tcp://localhost:1883 --layout ~/dash.yaml
  carconsole validate ~/.carconsole/layout.xml
  carconsole render --simulate --ticks 50
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:           "carconsole",
		Short:         "A terminal dashboard for vehicle telemetry",
		Long:          strings.TrimSpace(helpDescription),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd, &cfg, cfgPath); err != nil {
				return err
			}
			return runInteractive(cfg)
		},
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.carconsole/config.toml)")
	root.PersistentFlags().StringVar(&cfg.Home, "home", cfg.Home, "directory holding the layout, plugins and snapshot")
	root.PersistentFlags().StringVar(&cfg.LayoutPath, "layout", cfg.LayoutPath, "layout document (.xml, .yaml) (default: <home>/layout.xml)")
	root.PersistentFlags().StringVar(&cfg.PluginDir, "plugin-dir", cfg.PluginDir, "directory scanned for plugin modules (default: <home>/plugins)")
	root.PersistentFlags().StringSliceVar(&cfg.Plugins, "plugin", cfg.Plugins, "additional plugin module to load (repeatable)")
	root.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (trace, debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&cfg.Metric, "metric", cfg.Metric, "show metric units")
	root.PersistentFlags().Float64Var(&cfg.MaxRPM, "max-rpm", cfg.MaxRPM, "tachometer full scale")

	root.Flags().StringVar(&cfg.SnapshotPath, "snapshot", cfg.SnapshotPath, "telemetry snapshot file (default: <home>/snapshot.json)")
	root.Flags().StringVar(&cfg.LogPath, "log-file", cfg.LogPath, "log file (default: <home>/carconsole.log)")
	root.Flags().IntVar(&cfg.FPS, "fps", cfg.FPS, "frames per second")
	root.Flags().DurationVar(&cfg.Cadence, "cadence", cfg.Cadence, "telemetry sampling period")
	root.Flags().DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "how long to wait for workers on exit")
	root.Flags().StringVar(&cfg.MQTTBroker, "mqtt-broker", cfg.MQTTBroker, "MQTT broker URL, e.g. tcp://localhost:1883")
	root.Flags().StringVar(&cfg.MQTTTopic, "mqtt-topic", cfg.MQTTTopic, "MQTT topic prefix; channels are <prefix>/<channel>")
	root.Flags().StringVar(&cfg.MQTTClientID, "mqtt-client-id", cfg.MQTTClientID, "MQTT client id")
	root.Flags().BoolVar(&cfg.Simulate, "simulate", cfg.Simulate, "feed simulated telemetry")
	root.Flags().BoolVar(&cfg.WatchLayout, "watch-layout", cfg.WatchLayout, "reload the layout when its file changes")
	root.Flags().BoolVar(&cfg.WatchPlugins, "watch-plugins", cfg.WatchPlugins, "reload Lua plugins when their files change")
	root.Flags().BoolVar(&cfg.SaveLayoutOnExit, "save-layout", cfg.SaveLayoutOnExit, "write the edited layout back on exit")

	root.AddCommand(
		newValidateCmd(),
		newRenderCmd(&cfg, &cfgPath),
		newPluginsCmd(&cfg, &cfgPath),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "carconsole:", err)
		os.Exit(1)
	}
}

// loadConfig layers the config file and CARCONSOLE_* environment under
// the flags that were set explicitly, then validates.
func loadConfig(cmd *cobra.Command, cfg *cliconfig.Config, cfgPath string) error {
	cfgFile := cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(cfg, fc, changed); err != nil {
			return err
		}
	}
	if err := cliconfig.ApplyEnvConfig(cfg, changed); err != nil {
		return err
	}
	return cfg.Validate()
}

// builtins links the built-in gauges.
func builtins(cfg cliconfig.Config) []console.Option {
	speed := speedometer.DefaultConfig()
	speed.Metric = cfg.Metric
	tach := tachometer.DefaultConfig()
	tach.MaxRPM = cfg.MaxRPM
	trip := tripcomputer.DefaultConfig()
	trip.Celsius = cfg.Metric
	status := warnings.DefaultConfig()
	status.Bar = cfg.Metric
	return []console.Option{
		speedometer.WithSpeedometer(speed),
		tachometer.WithTachometer(tach),
		tripcomputer.WithTripComputer(trip),
		warnings.WithWarnings(status),
	}
}

func runInteractive(cfg cliconfig.Config) error {
	logFile, err := cliconfig.OpenLogFile(cfg.LogPath)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer logFile.Close()
	zl := cliconfig.Logger(logFile, cfg.LogLevel)
	logger := log.NewZerologAdapterWithLogger(zl)
	zl.Info().Interface("config", cfg).Msg("configuration")

	term, err := terminal.NewScreen(logger)
	if err != nil {
		return fmt.Errorf("open terminal: %w", err)
	}
	defer term.Close()

	opts := append(builtins(cfg),
		console.WithLogger(logger),
		console.WithDisplay(term),
		console.WithEventHandler(&logHandler{log: zl}),
	)
	if cfg.Simulate {
		opts = append(opts, console.WithSource(ingest.NewSimulator(ingest.DefaultSimulatorConfig())))
	}
	if mc, ok := cfg.MQTTConfig(); ok {
		opts = append(opts, console.WithSource(ingest.NewMQTT(mc, log.With(logger, log.String("source", "mqtt")))))
	}
	if !cfg.Simulate && cfg.MQTTBroker == "" {
		zl.Warn().Msg("no telemetry source configured; use --simulate or --mqtt-broker")
	}
	if cfg.WatchLayout {
		opts = append(opts, layoutwatch.WithDefaultLayoutWatch())
	}
	if cfg.WatchPlugins {
		opts = append(opts, pluginwatch.WithDefaultPluginWatch())
	}

	c, err := console.New(cfg.ConsoleConfig(), opts...)
	if err != nil {
		return fmt.Errorf("create console: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	term.Bind(c.Submit, cancel)

	if err := c.Start(ctx); err != nil {
		return fmt.Errorf("start console: %w", err)
	}
	go func() {
		if err := term.Run(ctx); err != nil {
			zl.Error().Err(err).Msg("terminal input")
		}
		cancel()
	}()

	<-ctx.Done()
	zl.Info().Msg("stopping...")
	if err := c.Stop(); err != nil {
		return fmt.Errorf("stop console: %w", err)
	}
	return nil
}

// logHandler records console events in the log.
type logHandler struct {
	console.BaseEventHandler
	log zerolog.Logger
}

func (h *logHandler) OnStateChange(e console.StateChangeEvent) {
	h.log.Debug().Str("from", e.Previous.String()).Str("to", e.Current.String()).Str("reason", e.Reason).Msg("state change")
}

func (h *logHandler) OnPluginLoaded(e console.PluginEvent) {
	h.log.Info().Str("plugin", e.Plugin.Name).Str("version", e.Plugin.Version).Str("path", e.Plugin.Path).Msg("plugin loaded")
}

func (h *logHandler) OnPluginError(e console.PluginErrorEvent) {
	h.log.Error().Err(e.Err).Str("plugin", e.Name).Str("path", e.Path).Bool("fault", e.Fault).Msg("plugin error")
}

func (h *logHandler) OnLayoutChanged(e console.LayoutEvent) {
	if e.Err != nil {
		h.log.Error().Err(e.Err).Str("path", e.Path).Msg("layout reload rejected")
		return
	}
	h.log.Info().Str("path", e.Path).Msg("layout reloaded")
}

func (h *logHandler) OnSourceError(e console.SourceErrorEvent) {
	h.log.Warn().Err(e.Err).Str("source", e.Source).Int("restarts", e.Restarts).Msg("telemetry source error")
}
