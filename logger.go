package main

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var combatLogger *zap.Logger

func initLogger(debug bool) error {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return err
	}
	combatLogger = logger.Named("perilous")
	return nil
}

func closeLogger() {
	if combatLogger == nil {
		return
	}
	_ = combatLogger.Sync()
}
