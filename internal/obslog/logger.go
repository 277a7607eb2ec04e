// Package obslog builds the zap logger used across the runtime, selecting
// an encoder and level from config.LoggingConfig.
package obslog

import (
	"github.com/rtcorbin/ecsrun/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap logger from cfg. Format "json" gets the production JSON
// encoder; anything else gets a colorized console encoder meant for a
// terminal. An unparseable level falls back to info rather than failing
// startup over a typo in a config file.
func New(cfg config.LoggingConfig) (*zap.Logger, error) {
	zapCfg := baseConfig(cfg.Format)
	zapCfg.Level = zap.NewAtomicLevelAt(parseLevel(cfg.Level))
	return zapCfg.Build()
}

// parseLevel falls back to info on anything UnmarshalText rejects, rather
// than failing startup over a typo in a config file.
func parseLevel(raw string) zapcore.Level {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return zapcore.InfoLevel
	}
	return level
}

func baseConfig(format string) zap.Config {
	if format == "json" {
		return zap.NewProductionConfig()
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.DisableCaller = true
	cfg.DisableStacktrace = true
	enc := &cfg.EncoderConfig
	enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	enc.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	enc.ConsoleSeparator = "  "
	return cfg
}
