// Package logging provides structured logging for the agol-shelf CLI.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger wraps zerolog with an optional logfile tee. The audit and fix
// commands keep a plain-text record of every tag change alongside the
// console output, so both writers receive every event.
type Logger struct {
	zlog    zerolog.Logger
	output  io.Writer
	logfile *os.File // nil unless TeeToFile was used
}

// NewLogger creates a console logger. Logs go to stdout; stderr is reserved
// for progress bars.
func NewLogger() *Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "15:04:05",
	}

	logger := zerolog.New(output).
		With().
		Timestamp().
		Logger()

	return &Logger{
		zlog:   logger,
		output: output,
	}
}

// TeeToFile additionally writes every event to the named file, appending if
// it exists. The file receives the same console-formatted lines, matching
// the long-lived tag logs kept from previous runs.
func (l *Logger) TeeToFile(path string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open logfile: %w", err)
	}

	fileWriter := zerolog.ConsoleWriter{
		Out:        f,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	console := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "15:04:05",
	}

	l.logfile = f
	l.output = zerolog.MultiLevelWriter(console, fileWriter)
	l.zlog = zerolog.New(l.output).With().Timestamp().Logger()
	return nil
}

// Close closes the logfile opened by TeeToFile, if any.
func (l *Logger) Close() error {
	if l.logfile == nil {
		return nil
	}
	return l.logfile.Close()
}

// Info returns an info level event.
func (l *Logger) Info() *zerolog.Event {
	return l.zlog.Info()
}

// Error returns an error level event.
func (l *Logger) Error() *zerolog.Event {
	return l.zlog.Error()
}

// Debug returns a debug level event.
func (l *Logger) Debug() *zerolog.Event {
	return l.zlog.Debug()
}

// Warn returns a warn level event.
func (l *Logger) Warn() *zerolog.Event {
	return l.zlog.Warn()
}

// Fatal returns a fatal level event.
func (l *Logger) Fatal() *zerolog.Event {
	return l.zlog.Fatal()
}

// With creates a child logger with additional context.
func (l *Logger) With() zerolog.Context {
	return l.zlog.With()
}

// Output returns the current output writer.
func (l *Logger) Output() io.Writer {
	return l.output
}

// Infof logs an info message with printf-style formatting.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.zlog.Info().Msgf(format, args...)
}

// Errorf logs an error message with printf-style formatting.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.zlog.Error().Msgf(format, args...)
}

// Warnf logs a warning message with printf-style formatting.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.zlog.Warn().Msgf(format, args...)
}

// Debugf logs a debug message with printf-style formatting.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.zlog.Debug().Msgf(format, args...)
}

// SetGlobalLevel sets the global log level.
func SetGlobalLevel(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
}

func init() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	})
}
