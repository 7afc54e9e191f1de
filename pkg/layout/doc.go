// Package layout models the dashboard as a forest of window trees.
//
// Every top-level Node is a Window. A Window holds at most one child, a
// Split or a Panel. A Split lays out two or more children along its
// direction, each child sized by its relative Weight. A Panel is a leaf
// that names the plugin it shows; the name is resolved against the plugin
// registry at render time, so a panel can reference a plugin that is not
// loaded yet.
//
// Documents are read from XML or YAML (Parse, ParseFile), written back
// with Marshal, geometrically arranged with Arrange, and edited in place
// by the mutator methods on Document. Every edit is atomic: it either
// produces a valid tree or returns an *EditError and leaves the tree as it
// was.
//
// A Document is not safe for concurrent use. The dispatch loop owns it
// and applies edits between ticks.
package layout
