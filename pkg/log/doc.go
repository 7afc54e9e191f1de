// Package log provides the logging port used across carconsole.
//
// Components accept a Logger and never talk to a logging library
// directly. The zerolog adapter is the production implementation; the
// no-op logger is the default for library use and tests.
//
// # Usage
//
//	logger := log.NewZerologAdapter(log.ParseLevel("debug"))
//	pluginLog := logger.With(log.String("plugin", "speedometer"))
//	pluginLog.Info("loaded", log.String("version", "1.2.0"))
//
// # Custom Loggers
//
// Implement the Logger interface to route messages elsewhere:
//
//	type MyLogger struct { ... }
//
//	func (l *MyLogger) Debug(msg string, fields ...log.Field) { ... }
//	func (l *MyLogger) Info(msg string, fields ...log.Field) { ... }
//	func (l *MyLogger) Warn(msg string, fields ...log.Field) { ... }
//	func (l *MyLogger) Error(msg string, fields ...log.Field) { ... }
//
// Loggers that do not implement With are wrapped by the package-level
// With helper, which prepends the context fields to every call.
//
// # Version
//
// Current version: 1.1.0
// Minimum compatible version: 1.0.0
package log
