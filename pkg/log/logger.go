package log

import (
	"bytes"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// "goroutine 123 [running]:" fits comfortably.
	stackBufSize    = 32
	goroutinePrefix = "goroutine "
	unknownGID      = "unknown"
)

var (
	Logger   zerolog.Logger
	stackBuf = sync.Pool{New: func() any { return make([]byte, stackBufSize) }}
	mu       sync.Mutex
)

// goroutineID reads the current goroutine id from the first stack line.
func goroutineID() string {
	buf, ok := stackBuf.Get().([]byte)
	if !ok {
		return unknownGID
	}
	defer stackBuf.Put(buf) //nolint:staticcheck // buf is a slice, this is the correct usage

	n := runtime.Stack(buf, false)
	line := buf[:n]
	if !bytes.HasPrefix(line, []byte(goroutinePrefix)) {
		return unknownGID
	}
	line = line[len(goroutinePrefix):]

	end := 0
	for end < len(line) && line[end] >= '0' && line[end] <= '9' {
		end++
	}
	if end == 0 {
		return unknownGID
	}
	return string(line[:end])
}

func init() {
	Configure(os.Stderr, zerolog.InfoLevel, false)
}

// Configure rebuilds the package logger. JSON output is meant for running
// under a supervisor; otherwise a colored console writer is used.
func Configure(out io.Writer, level zerolog.Level, jsonOutput bool) {
	mu.Lock()
	defer mu.Unlock()

	out = zerolog.SyncWriter(out)
	if !jsonOutput {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	Logger = zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Logger().
		Hook(zerolog.HookFunc(func(e *zerolog.Event, _ zerolog.Level, _ string) {
			e.Str("goid", goroutineID())
		}))

	log.Logger = Logger
}

// ParseLevel maps a config string to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || parsed == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return parsed
}

// Info logs an info message with goroutine ID.
func Info() *zerolog.Event {
	return Logger.Info()
}

// Error logs an error message with goroutine ID.
func Error() *zerolog.Event {
	return Logger.Error()
}

// Warn logs a warning message with goroutine ID.
func Warn() *zerolog.Event {
	return Logger.Warn()
}

// Debug logs a debug message with goroutine ID.
func Debug() *zerolog.Event {
	return Logger.Debug()
}

// Fatal logs a fatal message with goroutine ID and exits.
func Fatal() *zerolog.Event {
	return Logger.Fatal()
}
