// Package utils
package utils

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	logger zerolog.Logger
	once   sync.Once
)

// GetLogger returns the process-wide console logger at info level.
func GetLogger() *zerolog.Logger {
	once.Do(func() {
		logger, _ = NewLogger(os.Stderr, "info", false)
	})
	return &logger
}

// NewLogger builds a logger writing to w. Human-readable console output is
// used unless jsonFormat is set. An empty level means info.
func NewLogger(w io.Writer, level string, jsonFormat bool) (zerolog.Logger, error) {
	lvl := zerolog.InfoLevel
	if level = strings.TrimSpace(level); level != "" {
		var err error
		if lvl, err = zerolog.ParseLevel(strings.ToLower(level)); err != nil {
			return zerolog.Nop(), err
		}
	}

	out := w
	if !jsonFormat {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.DateTime, NoColor: true}
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}
