// Package logging configures the process-wide charmbracelet logger for the
// voiceclock CLI.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
)

// Scope is the application name used for config, cache and log locations.
const Scope = "voiceclock"

const fileName = "voiceclock.log"

// Path returns the location of the log file.
func Path() (string, error) {
	return gap.NewScope(gap.User, Scope).LogPath(fileName)
}

// Setup sends the default logger to the log file at info level and returns
// a function that closes the file.
func Setup() (func() error, error) {
	path, err := Path()
	if err != nil {
		return nil, fmt.Errorf("could not find log directory: %w", err)
	}
	return setup(path)
}

func setup(path string) (func() error, error) {
	log.SetOutput(io.Discard)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:gosec
		return nil, fmt.Errorf("could not create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("could not open log file: %w", err)
	}

	log.SetOutput(f)
	log.SetReportTimestamp(true)
	log.SetTimeFormat(time.RFC3339)
	log.SetLevel(log.InfoLevel)
	return f.Close, nil
}

// Debug switches the default logger to stderr at debug level.
func Debug() {
	log.SetOutput(os.Stderr)
	log.SetReportTimestamp(true)
	log.SetTimeFormat(time.TimeOnly)
	log.SetLevel(log.DebugLevel)
	log.Debug("Debug logging enabled")
}
