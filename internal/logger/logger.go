package logger

import "go.uber.org/zap"

// New builds the production logger. The instance is injected into services
// and workers rather than kept as a global.
func New() *zap.Logger {
	return zap.Must(zap.NewProduction())
}
