package log

import (
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Options configures the process-wide logger.
type Options struct {
	// Level is one of debug, info, warn, error (case-insensitive).
	// Empty means info.
	Level string
	// Format is "console" (default) or "json".
	Format string
	// Writer defaults to stderr.
	Writer io.Writer
}

var root atomic.Pointer[zerolog.Logger]

// Configure replaces the global logger. Safe to call more than once;
// the last call wins.
func Configure(opt Options) {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var w io.Writer = os.Stderr
	if opt.Writer != nil {
		w = opt.Writer
	}
	if !strings.EqualFold(opt.Format, "json") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	l := zerolog.New(w).Level(parseLevel(opt.Level)).With().Timestamp().Logger()
	root.Store(&l)
}

func get() *zerolog.Logger {
	if l := root.Load(); l != nil {
		return l
	}
	Configure(Options{})
	return root.Load()
}

func SetLevel(l Level) {
	next := get().Level(parseLevel(string(l)))
	root.Store(&next)
}

func Debug(msg string, kv ...any) {
	get().Debug().Fields(kv).Msg(msg)
}

func Info(msg string, kv ...any) {
	get().Info().Fields(kv).Msg(msg)
}

func Warn(msg string, kv ...any) {
	get().Warn().Fields(kv).Msg(msg)
}

func Error(msg string, err error, kv ...any) {
	get().Error().Err(err).Fields(kv).Msg(msg)
}

// parseLevel maps a level name to zerolog, falling back to info.
func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
