package logger

import (
	"errors"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects where and how loggers created by New write.
type Options struct {
	Level string
	// Format is "json" (default) or "console".
	Format string
	// File, when set, receives the logs through a size rotated writer
	// instead of stderr.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

var (
	mu       sync.RWMutex
	output   io.Writer
	outLevel zerolog.Level
)

func configured() (io.Writer, zerolog.Level, bool) {
	mu.RLock()
	defer mu.RUnlock()
	return output, outLevel, output != nil
}

// Setup applies opts to every logger created afterwards. The returned closer
// releases the log file, if any.
func Setup(opts Options) (io.Closer, error) {
	var (
		w      io.Writer = os.Stderr
		closer io.Closer = nopCloser{}
	)
	if opts.File != "" {
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
		}
		w, closer = lj, lj
	}
	switch opts.Format {
	case "", "json":
	case "console":
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: opts.File != ""}
	default:
		return nil, errors.New("log format must be json or console")
	}
	mu.Lock()
	output, outLevel = w, ParseLevel(opts.Level)
	mu.Unlock()
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Reset restores the environment driven defaults of New.
func Reset() {
	mu.Lock()
	output = nil
	mu.Unlock()
}
