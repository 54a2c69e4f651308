package global

import (
	"go.uber.org/zap"
)

// InitLogger builds the process logger and installs it as zap's global, so
// packages can log through zap.L() without threading a logger around.
func InitLogger(env string) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if env == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		logger = zap.NewNop()
	}
	zap.ReplaceGlobals(logger)
	return logger
}
