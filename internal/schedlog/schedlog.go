// Package schedlog builds the zap logger the scheduler threads through its
// components via constructor injection, mapping the CLI's 0..3 verbosity
// scale onto zap's levels.
package schedlog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a *zap.SugaredLogger for the given verbosity:
//
//	0: warnings and errors only
//	1: info (default)
//	2: debug
//	3: debug, with caller and stacktrace annotations
func New(verbose int) *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()

	switch {
	case verbose <= 0:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	case verbose == 1:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		logger = zap.NewNop()
	}
	if verbose >= 3 {
		logger = logger.WithOptions(zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	}
	return logger.Sugar()
}
