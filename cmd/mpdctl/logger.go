package main

import (
	"go.uber.org/zap"
)

func makeLogger(verbose bool) (*zap.Logger, error) {
	logConfig := zap.NewProductionConfig()
	logConfig.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	logConfig.Encoding = "console"
	logConfig.DisableStacktrace = true

	if verbose {
		logConfig.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		logConfig.Encoding = "json"
	}

	return logConfig.Build()
}
