// Package logger builds the process logger.
package logger

import (
	"io"
	"os"

	"github.com/phuslu/log"
)

// Config selects level and output format.
type Config struct {
	Level  string
	Format string // console or json
}

// New returns a logger writing to w (stderr when nil).
func New(cfg Config, w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	var writer log.Writer = &log.IOWriter{Writer: w}
	if cfg.Format != "json" {
		writer = &log.ConsoleWriter{
			Writer:         w,
			ColorOutput:    isTerminal(w),
			EndWithMessage: true,
		}
	}
	return &log.Logger{
		Level:      log.ParseLevel(cfg.Level),
		TimeFormat: "15:04:05",
		Writer:     writer,
	}
}

// Nop returns a logger that drops everything, for tests.
func Nop() *log.Logger {
	return &log.Logger{Level: log.PanicLevel + 1, Writer: &log.IOWriter{Writer: io.Discard}}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return log.IsTerminal(f.Fd())
}
