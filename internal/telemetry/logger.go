package telemetry

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Logger writes one JSON object per line. The zero value is not usable; use New.
type Logger struct {
	mu     *sync.Mutex // shared with children
	out    io.Writer
	now    func() time.Time
	fields map[string]any
}

// New returns a logger writing to w
func New(w io.Writer) *Logger {
	return &Logger{mu: &sync.Mutex{}, out: w, now: time.Now}
}

// Discard returns a logger that drops everything
func Discard() *Logger {
	return New(io.Discard)
}

var std = New(os.Stderr)

// Default returns the process-wide logger (stderr)
func Default() *Logger {
	return std
}

// With returns a child logger that adds fields to every line
func (l *Logger) With(fields map[string]any) *Logger {
	merged := make(map[string]any, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{mu: l.mu, out: l.out, now: l.now, fields: merged}
}

// Info writes an info-level log line with the given fields.
func (l *Logger) Info(msg string, fields map[string]any) {
	l.write("info", msg, fields)
}

// Warn writes a warn-level log line with the given fields.
func (l *Logger) Warn(msg string, fields map[string]any) {
	l.write("warn", msg, fields)
}

// Error writes an error-level log line with the given fields.
func (l *Logger) Error(msg string, fields map[string]any) {
	l.write("error", msg, fields)
}

// Info logs through the default logger
func Info(msg string, fields map[string]any) { std.Info(msg, fields) }

// Warn logs through the default logger
func Warn(msg string, fields map[string]any) { std.Warn(msg, fields) }

// Error logs through the default logger
func Error(msg string, fields map[string]any) { std.Error(msg, fields) }

func (l *Logger) write(level, msg string, fields map[string]any) {
	if l == nil {
		return
	}
	ts := l.now().UTC().Format(time.RFC3339)

	entry := make(map[string]any, len(l.fields)+len(fields)+3)
	for k, v := range l.fields {
		entry[k] = v
	}
	for k, v := range fields {
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		entry[k] = v
	}
	entry["ts"] = ts
	entry["level"] = level
	entry["msg"] = msg

	data, err := json.Marshal(entry)

	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		fmt.Fprintf(l.out, `{"ts":"%s","level":"error","msg":"logger marshal failed","err":%q}`+"\n", ts, err.Error())
		return
	}
	fmt.Fprintln(l.out, string(data))
}
