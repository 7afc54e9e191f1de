// Package console provides an embeddable vehicle dashboard.
//
// A Console owns a layout tree of windows, splits and panels, a registry of
// dashboard plugins bound to panels by name, a telemetry bus fed by one or
// more sources, and a dispatch loop that updates and renders every bound
// plugin once per tick. It can be run from the carconsole CLI or embedded
// as a library in other Go programs.
//
// # Basic Usage
//
//	cfg := console.DefaultConfig()
//	cfg.LayoutPath = "/etc/carconsole/layout.xml"
//
//	c, err := console.New(cfg,
//	    speedometer.WithSpeedometer(speedometer.DefaultConfig()),
//	    console.WithSource(mySource),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := c.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	// ... run until shutdown signal ...
//
//	if err := c.Stop(); err != nil {
//	    log.Printf("shutdown error: %v", err)
//	}
//
// # Changing the Layout
//
// The layout is owned by the dispatch goroutine. Edits, plugin loads and
// unloads are submitted as [dispatch.Command] values with [Console.Submit]
// or [Console.Do] and applied between ticks, in submission order:
//
//	err := c.Do(ctx, dispatch.Edit(layout.SplitEdit{PanelID: id, Direction: layout.Vertical}))
//
// # Event Handling
//
// Implement [EventHandler] (embedding [BaseEventHandler]) and pass it via
// [WithEventHandler] to be told about state changes, plugin loads and
// faults, layout reloads and source failures.
//
// # Lifecycle States
//
// A Console can be in one of five states: [StateStopped], [StateStarting],
// [StateRunning], [StateStopping], or [StateCrashed]. Use [Console.Status]
// to query the current state.
//
// # Extensions
//
// Services that run next to the console, such as the layout and plugin
// file watchers, implement [Extension]:
//
//	c, err := console.New(cfg,
//	    layoutwatch.WithDefaultLayoutWatch(),
//	    pluginwatch.WithDefaultPluginWatch(),
//	)
package console
