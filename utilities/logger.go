package utilities

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const logFilePermission = 0664

var (
	mu      sync.RWMutex
	logger  = zerolog.New(os.Stdout).With().Timestamp().Logger()
	logFile *os.File
)

// Logger returns the current process logger. SetOutput and SetLevel may run
// while requests are being logged.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func setLogger(l zerolog.Logger) {
	mu.Lock()
	logger = l
	mu.Unlock()
}

// InitLogger configures the process logger. An empty path logs to stdout;
// otherwise lines are appended to the file.
func InitLogger(level, path string) error {
	var w io.Writer = os.Stdout
	if path != "" {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, logFilePermission)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		mu.Lock()
		logFile = f
		mu.Unlock()
		w = zerolog.SyncWriter(f)
	}
	SetOutput(w)
	SetLevel(level)
	return nil
}

// SetOutput swaps the writer, keeping the current level.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger = zerolog.New(w).Level(logger.GetLevel()).With().Timestamp().Logger()
}

// SetLevel accepts zerolog level names; unknown names fall back to info.
func SetLevel(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	mu.Lock()
	defer mu.Unlock()
	logger = logger.Level(lvl)
}

// CloseLogger releases the log file opened by InitLogger, if any.
func CloseLogger() error {
	mu.Lock()
	defer mu.Unlock()
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

// LogRequest records one served HTTP request.
func LogRequest(method, path, remoteAddr string, status int, duration time.Duration) {
	l := Logger()
	l.Info().
		Str("method", method).
		Str("path", path).
		Str("remote", remoteAddr).
		Int("status", status).
		Dur("duration", duration).
		Msg("request")
}

func LogError(err error, context string) {
	l := Logger()
	l.Error().Err(err).Msg(context)
}

func LogDebug(format string, v ...interface{}) {
	l := Logger()
	l.Debug().Msgf(format, v...)
}

func LogInfo(format string, v ...interface{}) {
	l := Logger()
	l.Info().Msgf(format, v...)
}
