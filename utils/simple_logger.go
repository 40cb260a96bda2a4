package utils

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level int

// Severity levels.
const (
	Debug Level = iota
	Info
	Warn
	Error
	Fatal
)

func (s Level) zapLevel() zapcore.Level {
	switch s {
	case Debug:
		return zapcore.DebugLevel
	case Info:
		return zapcore.InfoLevel
	case Warn:
		return zapcore.WarnLevel
	case Error:
		return zapcore.ErrorLevel
	default:
		return zapcore.FatalLevel
	}
}

// ParseLevel converts a level name (debug, info, warn, error, fatal) into a
// Level. Unknown names fall back to Info.
func ParseLevel(name string) Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return Debug
	case "warn", "warning":
		return Warn
	case "error":
		return Error
	case "fatal":
		return Fatal
	default:
		return Info
	}
}

// A SimpleLogger writes human readable lines to stderr. Multiple loggers can be
// used simultaneously even if they are using the same writers.
type SimpleLogger struct {
	sugar    *zap.SugaredLogger
	minLevel Level
}

var _ Logger = (*SimpleLogger)(nil)

func NewSimpleLogger(level ...Level) *SimpleLogger {
	minLevel := Debug
	if len(level) > 0 {
		minLevel = level[0]
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.Lock(os.Stderr),
		minLevel.zapLevel(),
	)
	return &SimpleLogger{
		sugar:    zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar(),
		minLevel: minLevel,
	}
}

// Level returns the minimum severity written by this logger.
func (l *SimpleLogger) Level() Level {
	return l.minLevel
}

// Named returns a child logger with the given name segment appended.
func (l *SimpleLogger) Named(name string) *SimpleLogger {
	return &SimpleLogger{sugar: l.sugar.Named(name), minLevel: l.minLevel}
}

// Close flushes any buffered log entries.
func (l *SimpleLogger) Close() {
	_ = l.sugar.Sync()
}

// Debugf logs with the Debug severity.
// Arguments are handled in the manner of fmt.Printf.
func (l *SimpleLogger) Debugf(format string, v ...interface{}) {
	l.sugar.Debugf(format, v...)
}

// Infof logs with the Info severity.
// Arguments are handled in the manner of fmt.Printf.
func (l *SimpleLogger) Infof(format string, v ...interface{}) {
	l.sugar.Infof(format, v...)
}

// Warnf logs with the Warning severity.
// Arguments are handled in the manner of fmt.Printf.
func (l *SimpleLogger) Warnf(format string, v ...interface{}) {
	l.sugar.Warnf(format, v...)
}

// Errorf logs with the Error severity.
// Arguments are handled in the manner of fmt.Printf.
func (l *SimpleLogger) Errorf(format string, v ...interface{}) {
	l.sugar.Errorf(format, v...)
}

// Fatalf logs with the Fatal severity, and ends with os.Exit(1).
// Arguments are handled in the manner of fmt.Printf.
func (l *SimpleLogger) Fatalf(format string, v ...interface{}) {
	l.sugar.Fatalf(format, v...)
}
