package debug

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

const defaultLogFile = "debug.log"

// Logger is a debug-only logger. When disabled every call is a no-op.
type Logger struct {
	enabled bool
	logger  *slog.Logger
	file    *os.File
}

// NewLogger opens path (debug.log when empty) for appending and logs to it
// when enabled. If the file cannot be opened output falls back to stderr.
func NewLogger(enabled bool, path string) *Logger {
	if !enabled {
		return &Logger{}
	}
	if path == "" {
		path = defaultLogFile
	}

	var out io.Writer = os.Stderr
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err == nil {
		out = file
	}

	l := NewWriterLogger(out)
	l.file = file
	l.Printf("=== DEBUG MODE ENABLED ===")
	return l
}

// NewWriterLogger returns an enabled logger writing to w.
func NewWriterLogger(w io.Writer) *Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	return &Logger{
		enabled: true,
		logger:  slog.New(handler),
	}
}

func (d *Logger) Enabled() bool {
	return d != nil && d.enabled
}

func (d *Logger) Printf(format string, args ...any) {
	if d.Enabled() {
		d.logger.Debug(fmt.Sprintf(format, args...))
	}
}

func (d *Logger) Println(args ...any) {
	if d.Enabled() {
		d.logger.Debug(fmt.Sprint(args...))
	}
}

// With returns a logger that adds attrs to every record.
func (d *Logger) With(args ...any) *Logger {
	if !d.Enabled() {
		return d
	}
	return &Logger{enabled: true, logger: d.logger.With(args...)}
}

func (d *Logger) Close() error {
	if d == nil || d.file == nil {
		return nil
	}
	return d.file.Close()
}
