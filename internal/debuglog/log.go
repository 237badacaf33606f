package debuglog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents the severity level of a log message
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelOff // Disables all logging
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelOff:
		return "OFF"
	default:
		return "UNKNOWN"
	}
}

// ParseLogLevel parses a string into a LogLevel
func ParseLogLevel(s string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "INFO":
		return LevelInfo
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	case "OFF":
		return LevelOff
	default:
		return LevelInfo
	}
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

var (
	currentLevel LogLevel = LevelOff
	atomicLevel           = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	base                  = zap.NewNop()
	sugared               = base.Sugar()
	logFile      *os.File
)

// Setup configures the logging system with the specified level and optional file path.
// If filePath is empty, defaults to ~/.reviewq/reviewq.log. The TUI owns stdout, so
// output always goes to a file.
func Setup(level LogLevel, filePath ...string) error {
	_ = Close()
	SetLevel(level)

	if level == LevelOff {
		return nil
	}

	var logPath string
	if len(filePath) > 0 && filePath[0] != "" {
		logPath = filePath[0]
	} else {
		home, _ := os.UserHomeDir()
		logPath = filepath.Join(home, ".reviewq", "reviewq.log")
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", logPath, err)
	}
	logFile = f

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(f), atomicLevel)
	base = zap.New(core).Named("reviewq")
	sugared = base.Sugar()
	return nil
}

// SetLevel changes the current logging level
func SetLevel(level LogLevel) {
	currentLevel = level
	atomicLevel.SetLevel(level.zapLevel())
}

// GetLevel returns the current logging level
func GetLevel() LogLevel {
	return currentLevel
}

// L returns the structured logger. It is a no-op logger while logging is off.
func L() *zap.Logger {
	if currentLevel == LevelOff {
		return zap.NewNop()
	}
	return base
}

// Close flushes the logger and closes the log file.
func Close() error {
	_ = base.Sync()
	base = zap.NewNop()
	sugared = base.Sugar()

	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

func logf(level LogLevel, format string, args ...any) {
	if level < currentLevel || currentLevel == LevelOff {
		return
	}
	emit(sugared, level, format, args...)
}

func emit(l *zap.SugaredLogger, level LogLevel, format string, args ...any) {
	switch level {
	case LevelDebug:
		l.Debugf(format, args...)
	case LevelInfo:
		l.Infof(format, args...)
	case LevelWarn:
		l.Warnf(format, args...)
	case LevelError:
		l.Errorf(format, args...)
	}
}

func Debugf(format string, args ...any) {
	logf(LevelDebug, format, args...)
}

func Infof(format string, args ...any) {
	logf(LevelInfo, format, args...)
}

func Warnf(format string, args ...any) {
	logf(LevelWarn, format, args...)
}

func Errorf(format string, args ...any) {
	logf(LevelError, format, args...)
}

// FieldLogger attaches structured key/value fields to every message.
type FieldLogger struct {
	kv []any
}

// WithFields returns a new logger with the specified fields. Keys are
// emitted in sorted order.
func WithFields(fields map[string]interface{}) *FieldLogger {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	kv := make([]any, 0, 2*len(keys))
	for _, key := range keys {
		kv = append(kv, key, fields[key])
	}
	return &FieldLogger{kv: kv}
}

func (fl *FieldLogger) logf(level LogLevel, format string, args ...any) {
	if level < currentLevel || currentLevel == LevelOff {
		return
	}
	emit(sugared.With(fl.kv...), level, format, args...)
}

func (fl *FieldLogger) Debugf(format string, args ...any) {
	fl.logf(LevelDebug, format, args...)
}

func (fl *FieldLogger) Infof(format string, args ...any) {
	fl.logf(LevelInfo, format, args...)
}

func (fl *FieldLogger) Warnf(format string, args ...any) {
	fl.logf(LevelWarn, format, args...)
}

func (fl *FieldLogger) Errorf(format string, args ...any) {
	fl.logf(LevelError, format, args...)
}
