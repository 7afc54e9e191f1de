// Package dispatch drives the dashboard one tick at a time.
//
// Each Tick applies queued commands, takes the newest telemetry frame,
// updates every plugin that is bound to at least one panel exactly once,
// then walks the layout window by window and renders each panel into its
// own clipped region. A panic inside a plugin is recovered at this
// boundary: the plugin is marked faulted, its panels show an error
// placeholder and the tick carries on with everything else.
//
// The Loop is the only writer of the layout document and the only caller
// into plugins. Other goroutines reach it through Submit, whose commands
// run at the start of the next tick in submission order.
package dispatch
