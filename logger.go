package goAuthWeb

import (
	"go.uber.org/zap"
)

// NewLogger builds a zap logger from cfg. Development mode selects the
// console encoder and debug-friendly defaults unless Encoding says otherwise.
func NewLogger(cfg LoggingConfig) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}

	if cfg.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		zcfg.Level = level
	}
	if cfg.Encoding != "" {
		zcfg.Encoding = cfg.Encoding
	}

	return zcfg.Build()
}
