// Package logger provides console logging for cukeguard runs.
//
// ConsoleLogger writes timestamped, level-filtered lines and a few
// run-oriented helpers (run start, run result, focus outcome). It is safe for
// concurrent use, since watcher callbacks and the main goroutine may both log.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/harrison/cukeguard/internal/focus"
	"github.com/harrison/cukeguard/internal/models"
	"github.com/mattn/go-isatty"
)

// Log level constants for filtering
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// ConsoleLogger logs to a writer with [HH:MM:SS] timestamps and thread safety.
// Color output is enabled automatically when writing to a terminal.
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
}

// NewConsoleLogger creates a ConsoleLogger that writes to the provided io.Writer.
// If writer is nil, messages are silently discarded.
// Valid levels: trace, debug, info, warn, error (case-insensitive).
// If logLevel is empty or invalid, defaults to "info".
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: isTerminal(writer),
	}
}

// isTerminal reports whether w is a TTY that should receive colors.
// NO_COLOR (via color.NoColor) always wins.
func isTerminal(w io.Writer) bool {
	if w == nil || color.NoColor {
		return false
	}

	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// IsValidLogLevel reports whether level names a known log level.
func IsValidLogLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// normalizeLogLevel lowercases level and falls back to "info" when it is
// empty or unknown.
func normalizeLogLevel(level string) string {
	if !IsValidLogLevel(level) {
		return "info"
	}
	return strings.ToLower(strings.TrimSpace(level))
}

// shouldLog checks if a message at the given level passes the configured level.
func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(cl.logLevel)
}

// logLevelToInt converts a log level string to its numeric value.
func logLevelToInt(level string) int {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "info":
		return levelInfo
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

// LogTrace logs a trace-level message (most verbose).
func (cl *ConsoleLogger) LogTrace(message string) {
	cl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (cl *ConsoleLogger) LogDebug(message string) {
	cl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
// Format: "[HH:MM:SS] [INFO] <message>"
func (cl *ConsoleLogger) LogInfo(message string) {
	cl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (cl *ConsoleLogger) LogWarn(message string) {
	cl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (cl *ConsoleLogger) LogError(message string) {
	cl.logWithLevel("ERROR", message)
}

// logWithLevel writes message if the level passes filtering.
func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if cl.writer == nil {
		return
	}
	if !cl.shouldLog(strings.ToLower(level)) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	var formatted string
	if cl.colorOutput {
		formatted = fmt.Sprintf("[%s] [%s] %s\n", ts, colorLevel(level), message)
	} else {
		formatted = fmt.Sprintf("[%s] [%s] %s\n", ts, level, message)
	}

	cl.writer.Write([]byte(formatted))
}

// colorLevel wraps a level label in its ANSI color.
func colorLevel(level string) string {
	switch level {
	case "TRACE":
		return color.New(color.FgHiBlack).Sprint(level)
	case "DEBUG":
		return color.New(color.FgCyan).Sprint(level)
	case "INFO":
		return color.New(color.FgBlue).Sprint(level)
	case "WARN":
		return color.New(color.FgYellow).Sprint(level)
	case "ERROR":
		return color.New(color.FgRed).Sprint(level)
	default:
		return level
	}
}

// LogRunStart logs the paths a run was triggered with at INFO level.
// Format: "[HH:MM:SS] Running <kind> (<n> paths) [<id>]"
func (cl *ConsoleLogger) LogRunStart(run models.Run) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	kind := string(run.Kind)
	if cl.colorOutput {
		kind = color.New(color.Bold).Sprint(kind)
	}
	fmt.Fprintf(cl.writer, "[%s] Running %s (%d paths) [%s]\n", timestamp(), kind, len(run.Paths), shortID(run.ID))
	for _, p := range run.Paths {
		fmt.Fprintf(cl.writer, "    %s\n", p)
	}
}

// LogFocus logs how the focus tag changed the run at DEBUG level, or INFO
// when the run was narrowed.
func (cl *ConsoleLogger) LogFocus(tag string, result focus.Result) {
	switch result.Outcome {
	case focus.Focused:
		cl.LogInfo(fmt.Sprintf("Focusing on %s: %s", tag, strings.Join(result.Paths, " ")))
	case focus.Unfocused:
		cl.LogDebug(fmt.Sprintf("No %s tag found, running all %d paths", tag, len(result.Paths)))
	default:
		cl.LogDebug("No paths to focus")
	}
}

// LogRunResult logs the outcome of a run at INFO level, or WARN when it failed.
// Format: "[HH:MM:SS] <kind> run passed (<duration>) [<id>]"
func (cl *ConsoleLogger) LogRunResult(result models.RunResult) {
	if cl.writer == nil {
		return
	}

	level := "info"
	if !result.Passed && !result.Skipped {
		level = "warn"
	}
	if !cl.shouldLog(level) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	status := result.Status()
	if cl.colorOutput {
		switch status {
		case "passed":
			status = color.New(color.FgGreen).Sprint(status)
		case "failed":
			status = color.New(color.FgRed).Sprint(status)
		default:
			status = color.New(color.FgYellow).Sprint(status)
		}
	}

	var detail string
	switch {
	case result.Skipped && result.Reason != "":
		detail = result.Reason
	case !result.Skipped:
		detail = formatDuration(result.Duration)
	}

	line := fmt.Sprintf("[%s] %s run %s", timestamp(), result.Run.Kind, status)
	if detail != "" {
		line += " (" + detail + ")"
	}
	if result.Run.ID != "" {
		line += " [" + shortID(result.Run.ID) + "]"
	}
	fmt.Fprintln(cl.writer, line)
}

// shortID trims a uuid to its first block for display.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

// timestamp returns the current time formatted as "15:04:05" (HH:MM:SS).
func timestamp() string {
	return time.Now().Format("15:04:05")
}

// formatDuration converts a time.Duration to a human-readable string.
// Sub-second durations are shown in milliseconds.
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		hours := d / time.Hour
		minutes := (d % time.Hour) / time.Minute
		if minutes == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		return fmt.Sprintf("%dh%dm", hours, minutes)
	case d >= time.Minute:
		minutes := d / time.Minute
		seconds := (d % time.Minute) / time.Second
		if seconds == 0 {
			return fmt.Sprintf("%dm", minutes)
		}
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	case d >= time.Second:
		return fmt.Sprintf("%ds", int64(d.Seconds()))
	default:
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
}

// NoOpLogger discards everything. Useful in tests and quiet modes.
type NoOpLogger struct{}

// NewNoOpLogger creates a logger that drops all messages.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (n *NoOpLogger) LogTrace(message string)                  {}
func (n *NoOpLogger) LogDebug(message string)                  {}
func (n *NoOpLogger) LogInfo(message string)                   {}
func (n *NoOpLogger) LogWarn(message string)                   {}
func (n *NoOpLogger) LogError(message string)                  {}
func (n *NoOpLogger) LogRunStart(run models.Run)               {}
func (n *NoOpLogger) LogFocus(tag string, result focus.Result) {}
func (n *NoOpLogger) LogRunResult(result models.RunResult)     {}
