// Package log provides the relay's structured logger, a thin wrapper over
// log/slog adding cockroachdb/errors stack capture and domain-scoped
// With* helpers, grounded on the teacher's log/slog.go.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/cockroachdb/errors"
)

type RelayLogger struct {
	slog.Logger
}

var relayLogger *RelayLogger

// InitLogger configures the process-wide logger. logLevel is one of DEBUG,
// INFO, WARN, ERROR; format is "text" or "json"; output is "stdout" or
// "stderr".
func InitLogger(logLevel, format, output string) error {
	var writer io.Writer
	switch output {
	case "stdout":
		writer = os.Stdout
	case "stderr":
		writer = os.Stderr
	default:
		return errors.Newf("invalid log output %q", output)
	}
	return InitLoggerWithWriter(logLevel, format, writer)
}

// InitLoggerWithWriter is InitLogger with an explicit writer, used by tests
// to capture and assert on log output.
func InitLoggerWithWriter(logLevel, format string, writer io.Writer) error {
	var level slog.Level
	switch logLevel {
	case "DEBUG":
		level = slog.LevelDebug
	case "INFO":
		level = slog.LevelInfo
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		return errors.Newf("invalid log level %q", logLevel)
	}
	handlerOpts := &slog.HandlerOptions{Level: level, AddSource: true}

	var slogLogger *slog.Logger
	switch format {
	case "text":
		slogLogger = slog.New(slog.NewTextHandler(writer, handlerOpts))
	case "json":
		slogLogger = slog.New(slog.NewJSONHandler(writer, handlerOpts))
	default:
		return errors.Newf("invalid log format %q", format)
	}

	relayLogger = &RelayLogger{*slogLogger}
	slog.SetDefault(slogLogger)
	return nil
}

// GetLogger returns the process-wide logger, or a stderr text logger at
// INFO if InitLogger was never called (used by tests).
func GetLogger() *RelayLogger {
	if relayLogger == nil {
		return &RelayLogger{*slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))}
	}
	return relayLogger
}

// ErrorWithStack logs msg at ERROR with err's message and a captured stack
// trace, for errors that escape a loop's classification.
func (rl *RelayLogger) ErrorWithStack(msg string, err error) {
	cErr := errors.NewWithDepth(1, err.Error())
	rl.Error(msg, "error", cErr, "stack", fmt.Sprintf("%+v", cErr))
}

// WithChain scopes subsequent log lines to a source/target chain pair.
func (rl *RelayLogger) WithChain(sourceChainID, targetChainID string) *RelayLogger {
	return &RelayLogger{*rl.With(
		"source_chain", sourceChainID,
		"target_chain", targetChainID,
	)}
}

// WithLane scopes subsequent log lines to one message lane.
func (rl *RelayLogger) WithLane(laneID string) *RelayLogger {
	return &RelayLogger{*rl.With("lane", laneID)}
}

// WithDirection scopes subsequent log lines to a named race direction
// ("delivery", "confirmation", "finality", "parachains", "equivocation").
func (rl *RelayLogger) WithDirection(direction string) *RelayLogger {
	return &RelayLogger{*rl.With("direction", direction)}
}

// WithModule scopes subsequent log lines to a named subsystem.
func (rl *RelayLogger) WithModule(moduleName string) *RelayLogger {
	return &RelayLogger{*rl.With("module", moduleName)}
}
