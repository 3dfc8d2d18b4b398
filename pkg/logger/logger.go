// Package logger provides component-scoped structured logging.
//
// Every call names the component that produced it ("notifier", "session",
// "discord", ...) and may carry a field map:
//
//	logger.InfoCF("notifier", "Status message sent", map[string]interface{}{
//		"guild_id": guildID,
//	})
package logger

import (
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	clog "github.com/charmbracelet/log"
)

// Level mirrors the supported log levels.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Options configures the process-wide logger.
type Options struct {
	Level  string
	Format string // "text", "json" or "logfmt"
	Output io.Writer
}

var (
	mu   sync.RWMutex
	base = newLogger(Options{})
)

func newLogger(opts Options) *clog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	l := clog.NewWithOptions(out, clog.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Level:           parseLevel(opts.Level),
	})
	switch strings.ToLower(opts.Format) {
	case "json":
		l.SetFormatter(clog.JSONFormatter)
	case "logfmt":
		l.SetFormatter(clog.LogfmtFormatter)
	default:
		l.SetFormatter(clog.TextFormatter)
	}
	return l
}

func parseLevel(level string) clog.Level {
	switch Level(strings.ToLower(level)) {
	case LevelDebug:
		return clog.DebugLevel
	case LevelWarn, "warning":
		return clog.WarnLevel
	case LevelError:
		return clog.ErrorLevel
	default:
		return clog.InfoLevel
	}
}

// Init replaces the process-wide logger.
func Init(opts Options) {
	l := newLogger(opts)
	mu.Lock()
	base = l
	mu.Unlock()
}

// SetLevel changes the level of the current logger.
func SetLevel(level string) {
	mu.RLock()
	defer mu.RUnlock()
	base.SetLevel(parseLevel(level))
}

func current() *clog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

func logf(level clog.Level, component, msg string, fields map[string]interface{}) {
	keyvals := make([]interface{}, 0, 2+len(fields)*2)
	keyvals = append(keyvals, "component", component)

	// Sorted so text output is stable between runs.
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		keyvals = append(keyvals, k, fields[k])
	}
	current().Log(level, msg, keyvals...)
}

func DebugC(component, msg string) { logf(clog.DebugLevel, component, msg, nil) }
func InfoC(component, msg string)  { logf(clog.InfoLevel, component, msg, nil) }
func WarnC(component, msg string)  { logf(clog.WarnLevel, component, msg, nil) }
func ErrorC(component, msg string) { logf(clog.ErrorLevel, component, msg, nil) }

func DebugCF(component, msg string, fields map[string]interface{}) {
	logf(clog.DebugLevel, component, msg, fields)
}

func InfoCF(component, msg string, fields map[string]interface{}) {
	logf(clog.InfoLevel, component, msg, fields)
}

func WarnCF(component, msg string, fields map[string]interface{}) {
	logf(clog.WarnLevel, component, msg, fields)
}

func ErrorCF(component, msg string, fields map[string]interface{}) {
	logf(clog.ErrorLevel, component, msg, fields)
}
