// Package logging builds the process logger: human-readable console
// output plus an optional JSON file with rotation.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New constructs a zap logger. file may be empty to log to console only;
// development enables debug level.
func New(file string, development bool) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	if development {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderConfig.EncodeDuration = zapcore.StringDurationEncoder

	level := zapcore.InfoLevel
	if development {
		level = zapcore.DebugLevel
	}

	cores := []zapcore.Core{
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig),
			zapcore.AddSync(os.Stderr),
			level,
		),
	}

	if file != "" {
		rotator := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    10, // MB
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderConfig),
			zapcore.AddSync(rotator),
			level,
		))
	}

	return zap.New(zapcore.NewTee(cores...))
}
