package cascade

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogContext map[string]interface{}

// Logger is injected into every step, group, loop and store of a crawler.
type Logger interface {
	Debug(msg string, context ...LogContext)
	Info(msg string, context ...LogContext)
	Warn(msg string, context ...LogContext)
	Error(msg string, context ...LogContext)
}

type DefaultLogger struct {
	internal *zap.Logger
}

func (l *DefaultLogger) Debug(msg string, context ...LogContext) {
	l.internal.Debug(msg, convertToZapFields(getContext(context))...)
}

func (l *DefaultLogger) Info(msg string, context ...LogContext) {
	l.internal.Info(msg, convertToZapFields(getContext(context))...)
}

func (l *DefaultLogger) Warn(msg string, context ...LogContext) {
	l.internal.Warn(msg, convertToZapFields(getContext(context))...)
}

func (l *DefaultLogger) Error(msg string, context ...LogContext) {
	l.internal.Error(msg, convertToZapFields(getContext(context))...)
}

// Sync flushes buffered entries.
func (l *DefaultLogger) Sync() error {
	return l.internal.Sync()
}

func getContext(context []LogContext) LogContext {
	if len(context) > 0 {
		return context[0]
	}

	return nil
}

type LogLevel int8

const (
	DebugLevel LogLevel = iota - 1
	InfoLevel
	WarnLevel
	ErrorLevel
)

func (level LogLevel) toZapLevel() zapcore.Level {
	switch level {
	case DebugLevel:
		return zap.DebugLevel
	case InfoLevel:
		return zap.InfoLevel
	case WarnLevel:
		return zap.WarnLevel
	case ErrorLevel:
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

// ParseLogLevel maps a level name to a LogLevel. "notice" is treated as info.
func ParseLogLevel(name string) (LogLevel, error) {
	switch name {
	case "debug":
		return DebugLevel, nil
	case "", "info", "notice":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	default:
		return InfoLevel, fmt.Errorf("unknown log level %q", name)
	}
}

type loggerOptions struct {
	id           string
	name         string
	consoleLevel LogLevel
	fileLevel    LogLevel
	logDir       string
	fs           FileSystemOperations
}

type LoggerOptionFn func(lo *loggerOptions) error

func WithLoggerID(id string) LoggerOptionFn {
	return func(lo *loggerOptions) error {
		lo.id = id
		return nil
	}
}

func WithLoggerName(name string) LoggerOptionFn {
	return func(lo *loggerOptions) error {
		lo.name = name
		return nil
	}
}

func WithConsoleLevel(level LogLevel) LoggerOptionFn {
	return func(lo *loggerOptions) error {
		lo.consoleLevel = level
		return nil
	}
}

func WithFileLevel(level LogLevel) LoggerOptionFn {
	return func(lo *loggerOptions) error {
		lo.fileLevel = level
		return nil
	}
}

// WithLogDir enables the file core, writing into dir.
func WithLogDir(dir string) LoggerOptionFn {
	return func(lo *loggerOptions) error {
		lo.logDir = dir
		return nil
	}
}

func WithFileSystem(fs FileSystemOperations) LoggerOptionFn {
	return func(lo *loggerOptions) error {
		lo.fs = fs
		return nil
	}
}

// NewLogger builds a zap backed logger writing JSON to stdout and, with WithLogDir, to a file.
func NewLogger(optFns ...LoggerOptionFn) (*DefaultLogger, error) {
	lo := &loggerOptions{
		consoleLevel: InfoLevel,
		fileLevel:    DebugLevel,
		fs:           FileSystem{},
	}
	for _, optFn := range optFns {
		if err := optFn(lo); err != nil {
			return nil, err
		}
	}

	return createLogger(lo)
}

// NewNopLogger returns a logger discarding every entry.
func NewNopLogger() *DefaultLogger {
	return &DefaultLogger{internal: zap.NewNop()}
}

func newConsoleCore(encoderConfig zapcore.EncoderConfig, level zapcore.Level) zapcore.Core {
	return zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.Lock(os.Stdout),
		level,
	)
}

func newFileCore(fs FileSystemOperations, encoderConfig zapcore.EncoderConfig, level zapcore.Level, logDir, fileName string) (zapcore.Core, error) {
	if err := fs.MkdirAll(logDir, os.ModePerm); err != nil {
		return nil, err
	}

	logFilePath := filepath.Join(logDir, fileName)
	file, err := fs.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	return zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(file),
		level,
	), nil
}

func getLogFileName(lo *loggerOptions) string {
	timeFormat := "20060102_150405"
	return fmt.Sprintf("%s_%s_%s.log", lo.id, lo.name, time.Now().Format(timeFormat))
}

func createLogger(lo *loggerOptions) (*DefaultLogger, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	core := newConsoleCore(encoderConfig, lo.consoleLevel.toZapLevel())
	if lo.logDir != "" {
		fileCore, err := newFileCore(lo.fs, encoderConfig, lo.fileLevel.toZapLevel(), lo.logDir, getLogFileName(lo))
		if err != nil {
			return nil, err
		}
		core = zapcore.NewTee(core, fileCore)
	}

	zlogger := zap.New(core)
	if lo.id != "" {
		zlogger = zlogger.With(zap.String("ID", lo.id))
	}
	if lo.name != "" {
		zlogger = zlogger.With(zap.String("Name", lo.name))
	}

	return &DefaultLogger{
		internal: zlogger,
	}, nil
}

func convertToZapFields(context map[string]interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(context))
	for k, v := range context {
		fields = append(fields, zap.Any(k, v))
	}

	return fields
}

// NewLoggerFromZap wraps an existing zap logger.
func NewLoggerFromZap(z *zap.Logger) *DefaultLogger {
	return &DefaultLogger{internal: z}
}
