// Package logger wraps zap behind a small key/value API so callers do
// not depend on zap types directly.
package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger struct {
	zap *zap.Logger
}

// New builds a JSON logger at the given level ("debug", "info", "warn",
// "error"); unknown levels fall back to info.
func New(level, serviceName string) *Logger {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		MessageKey:     "msg",
		CallerKey:      "caller",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(os.Stdout),
		parseLevel(level),
	)
	zl := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	if serviceName != "" {
		zl = zl.With(zap.String("service", serviceName))
	}
	return &Logger{zap: zl}
}

// Nop returns a logger that discards everything; used in tests.
func Nop() *Logger { return &Logger{zap: zap.NewNop()} }

func (l *Logger) Debug(msg string, fields ...interface{}) { l.zap.Debug(msg, convert(fields...)...) }
func (l *Logger) Info(msg string, fields ...interface{})  { l.zap.Info(msg, convert(fields...)...) }
func (l *Logger) Warn(msg string, fields ...interface{})  { l.zap.Warn(msg, convert(fields...)...) }
func (l *Logger) Error(msg string, fields ...interface{}) { l.zap.Error(msg, convert(fields...)...) }
func (l *Logger) Fatal(msg string, fields ...interface{}) { l.zap.Fatal(msg, convert(fields...)...) }

// With returns a child logger carrying the given key/value pairs.
func (l *Logger) With(fields ...interface{}) *Logger {
	return &Logger{zap: l.zap.With(convert(fields...)...)}
}

// convert turns variadic key/value pairs into zap fields.  Non-string
// keys are stringified rather than dropped.
func convert(keysAndValues ...interface{}) []zap.Field {
	if len(keysAndValues) == 0 {
		return nil
	}
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", keysAndValues[i])
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
