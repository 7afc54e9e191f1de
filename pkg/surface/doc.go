// Package surface is the drawing abstraction plugins render into.
//
// A Target is a grid of character cells owned by a display. The dispatch
// loop hands each plugin a Region: a Surface clipped to the rectangle the
// layout assigned to the plugin's panel, with its own origin at 0,0.
// Anything drawn outside that rectangle is discarded.
//
// Canvas is the in-memory Target used by the headless display, tests and
// the render command.
package surface
