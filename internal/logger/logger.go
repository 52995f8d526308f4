package logger

import (
	"fmt"
	"os"
	"strings"

	"listing-portal/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap logger from the logging section of the config.
// Encoding "console" gives a colored development logger, anything else JSON.
func New(cfg config.LoggingConfig) *zap.Logger {
	var zapConfig zap.Config
	if strings.EqualFold(cfg.Encoding, "console") {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zapConfig = zap.NewProductionConfig()
		zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	if err := zapConfig.Level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level %q, defaulting to info\n", cfg.Level)
		zapConfig.Level.SetLevel(zapcore.InfoLevel)
	}

	log, err := zapConfig.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v, falling back to production defaults\n", err)
		log, _ = zap.NewProduction()
	}
	return log
}
