package cliconfig

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/bft-labs/carconsole/pkg/log"
)

// Logger returns a console-formatted zerolog logger writing to w.
func Logger(w io.Writer, level string) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: w != os.Stderr}).
		Level(log.ParseLevel(level)).
		With().Timestamp().Logger()
}

// OpenLogFile opens path for appending, creating its directory. The
// terminal display owns the screen, so the interactive command logs here.
func OpenLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}
