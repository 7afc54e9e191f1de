// Package loader provides the module loaders behind plugin.Registry.
//
// Three kinds of module are supported:
//
//   - builtin:<name>  plugins compiled into the binary and registered with
//     Builtin.Register
//   - *.lua           Lua scripts run by gopher-lua, one interpreter per module
//   - *.so            Go plugins opened with the standard plugin package
//
// Mux picks the loader from the path, and Discover lists the loadable files
// of a plugin directory.
package loader
