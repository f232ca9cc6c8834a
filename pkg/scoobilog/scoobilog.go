// Package scoobilog constructs the logr.Logger every planner and executor
// component is handed at construction time, backed by zap the way the
// teacher's own entrypoint builds its logger — minus the
// controller-runtime zap wrapper the teacher reaches for, since nothing in
// this module runs inside a controller-runtime manager; go.uber.org/zap is
// bridged to logr directly through go-logr/zapr instead.
package scoobilog

import (
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures the root logger.
type Options struct {
	// Development enables human-readable, colourised console output
	// instead of JSON, and makes DPanic-level logs panic.
	Development bool
	// Level is the minimum enabled level; more negative is more verbose,
	// matching zapcore.Level (0 = info, -1 = debug, ...).
	Level int
}

// New builds the root logr.Logger for a scoobi process.
func New(opts Options) logr.Logger {
	encoderCfg := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	if opts.Development {
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(os.Stderr)), zapcore.Level(opts.Level))
	zlog := zap.New(core, zap.AddCaller())
	if opts.Development {
		zlog = zlog.WithOptions(zap.Development())
	}

	return zapr.NewLogger(zlog)
}

// Discard returns a logr.Logger that drops everything, for tests and for
// components that were not handed a logger explicitly.
func Discard() logr.Logger {
	return logr.Discard()
}
