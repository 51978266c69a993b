package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

func LevelFromString(level string) zerolog.Level {
	level = strings.ToLower(level)
	switch level {
	case "error":
		return zerolog.ErrorLevel
	case "warn":
		return zerolog.WarnLevel
	case "info":
		return zerolog.InfoLevel
	case "debug":
		return zerolog.DebugLevel
	}
	return zerolog.WarnLevel
}

// Setup points the global logger at stderr and, when file is not empty, also
// at a rotating log file. Close the returned closer on exit.
func Setup(level string, file string) io.Closer {
	var closer io.Closer = nopCloser{}
	var fileOut io.Writer
	if file != "" {
		rotating := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    64, // MB
			MaxBackups: 3,
			MaxAge:     14,
			Compress:   true,
		}
		fileOut, closer = rotating, rotating
	}

	log.Logger = New(zerolog.ConsoleWriter{Out: os.Stderr}, fileOut, level)
	return closer
}

// New builds a timestamped logger writing to console and, if not nil, to file.
func New(console io.Writer, file io.Writer, level string) zerolog.Logger {
	out := console
	if file != nil {
		out = zerolog.MultiLevelWriter(console, file)
	}
	return zerolog.New(out).With().Timestamp().Logger().Level(LevelFromString(level))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
