// Package logging builds the zap loggers shared by the shardrisk binaries.
package logging

import (
	"fmt"
	"strings"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects the level and destination of a logger.
type Options struct {
	// Level is "debug", "info", "warn" or "error". Empty means info.
	Level string

	// File, when set, receives the log through a rotating writer instead of stderr.
	File string

	// Fields are attached to every entry, e.g. the component name.
	Fields map[string]interface{}
}

// ParseLevel maps a level name onto a zap level.
func ParseLevel(name string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "info":
		return zap.InfoLevel, nil
	case "debug":
		return zap.DebugLevel, nil
	case "warn", "warning":
		return zap.WarnLevel, nil
	case "error":
		return zap.ErrorLevel, nil
	default:
		return zap.InfoLevel, fmt.Errorf("unknown log level %q", name)
	}
}

// New builds a console logger. Caller and stacktrace annotations are off;
// the binaries only log lifecycle events and request summaries.
func New(opts Options) (*zap.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	if opts.File != "" {
		core := zapcore.NewCore(
			zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
			fileWriter(opts.File),
			zap.NewAtomicLevelAt(level),
		)
		logger := zap.New(core)
		if len(opts.Fields) > 0 {
			logger = logger.With(fieldsOf(opts.Fields)...)
		}
		return logger, nil
	}

	config := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       false,
		DisableCaller:     true,
		DisableStacktrace: true,
		Encoding:          "console",
		EncoderConfig:     zap.NewDevelopmentEncoderConfig(),
		OutputPaths:       []string{"stderr"},
		ErrorOutputPaths:  []string{"stderr"},
		InitialFields:     opts.Fields,
	}
	return config.Build()
}

// fileWriter rotates at 100 MB and keeps ten old files for thirty days.
func fileWriter(path string) zapcore.WriteSyncer {
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    100,
		MaxBackups: 10,
		MaxAge:     30,
	})
}

func fieldsOf(m map[string]interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(m))
	for k, v := range m {
		fields = append(fields, zap.Any(k, v))
	}
	return fields
}
