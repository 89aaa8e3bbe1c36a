package plugin

import (
	"kodicec/internal/config"

	"go.uber.org/zap"
)

// Context carries the shared dependencies handed to plugin factories.
type Context struct {
	Logger *zap.Logger
	Config *config.Config
}
