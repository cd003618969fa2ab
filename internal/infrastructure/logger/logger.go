package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"comanda/internal/config"
)

// New builds the service logger. Format "console" gives human readable
// output for local runs; anything else is JSON. Unknown levels fall back to
// info.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	var zc zap.Config
	if cfg.Format == "console" {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.TimeKey = "timestamp"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		zc.InitialFields = map[string]interface{}{"service": "comanda"}
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)

	return zc.Build()
}
