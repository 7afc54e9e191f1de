package console_test

import (
	"context"
	"fmt"

	"github.com/bft-labs/carconsole/pkg/console"
	"github.com/bft-labs/carconsole/pkg/plugin"
	"github.com/bft-labs/carconsole/pkg/surface"
	"github.com/bft-labs/carconsole/pkg/telemetry"
)

// ExampleNew demonstrates how to embed the console in your application.
func ExampleNew() {
	cfg := console.DefaultConfig()
	cfg.LayoutPath = "/path/to/layout.xml"

	c, err := console.New(cfg)
	if err != nil {
		fmt.Printf("failed to create console: %v\n", err)
		return
	}

	// Start ticking (non-blocking)
	if err := c.Start(context.Background()); err != nil {
		fmt.Printf("failed to start: %v\n", err)
		return
	}

	fmt.Printf("Status is valid: %v\n", c.Status() == console.StateRunning)

	_ = c.Stop()
	// Output: Status is valid: true
}

// Example_withBuiltin shows how to link a panel plugin into the binary.
func Example_withBuiltin() {
	manifest := plugin.Manifest{Name: "clock", Version: "1.0.0"}
	c, err := console.New(console.DefaultConfig(),
		console.WithBuiltin(manifest, func() plugin.Plugin { return &clock{} }))
	if err != nil {
		fmt.Printf("failed to create console: %v\n", err)
		return
	}
	fmt.Println(c.Builtins())
	// Output: [clock]
}

type clock struct{ now string }

func (c *clock) Init() error { return nil }

func (c *clock) Update(f telemetry.Frame) { c.now = f.Timestamp().Format("15:04:05") }

func (c *clock) Render(s surface.Surface) { s.Text(0, 0, c.now, surface.Plain) }

// Example_withEventHandler demonstrates how to receive console events.
func Example_withEventHandler() {
	handler := &myEventHandler{}

	c, err := console.New(console.DefaultConfig(), console.WithEventHandler(handler))
	if err != nil {
		fmt.Printf("failed to create console: %v\n", err)
		return
	}

	_ = c
}

// myEventHandler implements console.EventHandler for event notifications.
type myEventHandler struct {
	console.BaseEventHandler // Embed for no-op defaults
}

func (h *myEventHandler) OnStateChange(event console.StateChangeEvent) {
	fmt.Printf("State changed: %s -> %s (reason: %s)\n",
		event.Previous, event.Current, event.Reason)
}

func (h *myEventHandler) OnPluginError(event console.PluginErrorEvent) {
	fmt.Printf("Plugin %s failed: %v\n", event.Name, event.Err)
}
