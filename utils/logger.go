package utils

import (
	"go.uber.org/zap"
)

// Logger is the logging facade used across the module.
type Logger interface {
	Debugf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
}

type zapLogger struct {
	*zap.SugaredLogger
}

var _ Logger = (*zapLogger)(nil)

// NewZapLogger adapts an existing zap logger.
func NewZapLogger(z *zap.Logger) Logger {
	if z == nil {
		z = zap.NewNop()
	}
	return &zapLogger{z.Sugar()}
}

func NewNopLogger() Logger {
	return &zapLogger{zap.NewNop().Sugar()}
}
