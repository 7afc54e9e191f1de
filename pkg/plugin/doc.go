// Package plugin defines the capability contract dashboard plugins
// implement and the Registry that loads, tracks and unloads them.
//
// A plugin is produced by a Module, the unit a ModuleLoader opens from a
// path. Modules declare a name, a version and the ABI tag they were built
// against; the Registry refuses modules whose tag is not compatible with
// ABIVersion.
//
// # Lifecycle
//
//	Load -> Init -> (Update, Render)* -> Unload -> Close
//
// Init runs exactly once per loaded instance. Update and Render are only
// ever called from the dispatch goroutine through Invoke, which holds a
// per-plugin gate so Unload can wait for an in-flight call before tearing
// the module down.
//
// # Errors
//
// Load failures are returned as *LoadError and match the sentinels
// ErrOpenFailed, ErrIncompatible, ErrSymbolMissing, ErrInitFailed and
// ErrDuplicateName with errors.Is. A failed load never changes the
// registry.
package plugin
