package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Interface defines the logging interface used throughout the application
type Interface interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})

	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})

	WithField(key string, value interface{}) Interface
	WithFields(fields map[string]interface{}) Interface
	WithError(err error) Interface
}

// Logger wraps a logrus entry to provide a common interface across the
// application
type Logger struct {
	entry *logrus.Entry
}

// Config contains logging configuration
type Config struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "text"
	Output string `yaml:"output"` // "stdout", "stderr", or file path
}

// New creates a new structured logger with the given configuration
func New(config Config) (*Logger, error) {
	level, err := logrus.ParseLevel(levelOrDefault(config.Level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level '%s': %w", config.Level, err)
	}

	var output io.Writer
	switch config.Output {
	case "stdout", "":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		file, err := os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file '%s': %w", config.Output, err)
		}
		output = file
	}

	var formatter logrus.Formatter
	switch config.Format {
	case "json":
		formatter = &logrus.JSONFormatter{}
	case "text", "":
		formatter = &logrus.TextFormatter{FullTimestamp: true}
	default:
		return nil, fmt.Errorf("unsupported log format '%s'", config.Format)
	}

	l := logrus.New()
	l.SetLevel(level)
	l.SetOutput(output)
	l.SetFormatter(formatter)

	return &Logger{entry: logrus.NewEntry(l)}, nil
}

func levelOrDefault(level string) string {
	if level == "" {
		return "info"
	}
	return level
}

// Default creates a default logger for the application
func Default() *Logger {
	l := logrus.New()
	l.SetLevel(logrus.InfoLevel)
	return &Logger{entry: logrus.NewEntry(l)}
}

// WithField returns a logger with a single field added to all log entries
func (l *Logger) WithField(key string, value interface{}) Interface {
	return &Logger{entry: l.entry.WithField(key, value)}
}

// WithFields returns a logger with the given fields added to all log entries
func (l *Logger) WithFields(fields map[string]interface{}) Interface {
	return &Logger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

// WithError returns a logger with error field added
func (l *Logger) WithError(err error) Interface {
	return &Logger{entry: l.entry.WithError(err)}
}

func (l *Logger) Debug(args ...interface{}) { l.entry.Debug(args...) }
func (l *Logger) Info(args ...interface{})  { l.entry.Info(args...) }
func (l *Logger) Warn(args ...interface{})  { l.entry.Warn(args...) }
func (l *Logger) Error(args ...interface{}) { l.entry.Error(args...) }

func (l *Logger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }
