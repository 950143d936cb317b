// Package logging builds the logrus loggers used by the CLI, the terminal
// board and the server.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Profile selects output format and destination.
type Profile int

const (
	// ProfileCLI writes text to stderr.
	ProfileCLI Profile = iota
	// ProfileServer writes JSON to stderr.
	ProfileServer
	// ProfileTUI writes text to a file so the alternate screen stays clean.
	ProfileTUI
)

// Environment variables read by New.
const (
	EnvLevel = "TASKBOARD_LOG_LEVEL"
	EnvDebug = "DEBUG"
)

// TUILogFile is the log file name used by ProfileTUI.
const TUILogFile = "tui.log"

// New returns a logger for the profile. dir is only used by ProfileTUI. The
// returned closer releases the log file, if any.
func New(profile Profile, dir string) (*log.Logger, io.Closer, error) {
	logger := log.New()
	logger.SetLevel(levelFromEnv(os.LookupEnv))

	switch profile {
	case ProfileServer:
		logger.SetFormatter(&log.JSONFormatter{})
		logger.SetOutput(os.Stderr)
		return logger, nopCloser{}, nil
	case ProfileTUI:
		f, err := os.OpenFile(filepath.Join(dir, TUILogFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600) //nolint:gosec // trusted dir
		if err != nil {
			return nil, nil, fmt.Errorf("opening tui log: %w", err)
		}
		logger.SetFormatter(&log.TextFormatter{DisableColors: true, FullTimestamp: true})
		logger.SetOutput(f)
		return logger, f, nil
	default:
		logger.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
		logger.SetOutput(os.Stderr)
		return logger, nopCloser{}, nil
	}
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger
}

func levelFromEnv(lookup func(string) (string, bool)) log.Level {
	if raw, ok := lookup(EnvLevel); ok && raw != "" {
		if lvl, err := log.ParseLevel(strings.TrimSpace(raw)); err == nil {
			return lvl
		}
	}
	if raw, ok := lookup(EnvDebug); ok {
		if dbg, err := strconv.ParseBool(raw); err == nil && dbg {
			return log.DebugLevel
		}
	}
	return log.WarnLevel
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
