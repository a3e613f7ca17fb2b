// Package logger configures the process-wide zerolog logger.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options describes logger configuration supplied at startup.
type Options struct {
	Level         string
	HumanReadable bool
	Writer        io.Writer
}

// New builds a logger from Options. An empty level means info.
func New(opts Options) (zerolog.Logger, error) {
	writer := opts.Writer
	if writer == nil {
		writer = os.Stdout
	}

	level := zerolog.InfoLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return zerolog.Logger{}, err
		}
		level = parsed
	}

	var output io.Writer = writer
	if opts.HumanReadable {
		console := zerolog.NewConsoleWriter()
		console.Out = writer
		console.TimeFormat = time.RFC3339
		output = console
	}

	return zerolog.New(output).Level(level).With().Timestamp().Logger(), nil
}

// Setup installs the logger as the global one used through
// github.com/rs/zerolog/log, and as the fallback for zerolog.Ctx.
func Setup(opts Options) error {
	l, err := New(opts)
	if err != nil {
		return err
	}
	log.Logger = l
	zerolog.DefaultContextLogger = &log.Logger
	return nil
}
