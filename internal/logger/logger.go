// Package logger builds the service-wide zerolog logger.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a JSON logger writing to stdout. Development mode lowers the
// level to debug and switches to the human-readable console writer.
func New(appEnv string, loc *time.Location) zerolog.Logger {
	if appEnv == "development" {
		cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		return NewWithWriter(cw, loc).Level(zerolog.DebugLevel)
	}
	return NewWithWriter(os.Stdout, loc).Level(zerolog.InfoLevel)
}

// NewWithWriter returns a logger that stamps every event with a "ts" field
// rendered in loc.
func NewWithWriter(w io.Writer, loc *time.Location) zerolog.Logger {
	if loc == nil {
		loc = time.UTC
	}
	return zerolog.New(w).Hook(tsHook{loc: loc})
}

type tsHook struct {
	loc *time.Location
}

func (h tsHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	e.Str("ts", time.Now().In(h.loc).Format(time.RFC3339Nano))
}
