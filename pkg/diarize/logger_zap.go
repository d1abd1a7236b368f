package diarize

import "go.uber.org/zap"

// ZapLogger adapts a *zap.SugaredLogger to the Logger interface for
// callers who want structured output instead of the default NoOpLogger.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger wraps logger's sugared form.
func NewZapLogger(logger *zap.Logger) *ZapLogger {
	return &ZapLogger{sugar: logger.Sugar()}
}

func (z *ZapLogger) Debug(msg string, args ...interface{}) { z.sugar.Debugw(msg, args...) }
func (z *ZapLogger) Info(msg string, args ...interface{})  { z.sugar.Infow(msg, args...) }
func (z *ZapLogger) Warn(msg string, args ...interface{})  { z.sugar.Warnw(msg, args...) }
func (z *ZapLogger) Error(msg string, args ...interface{}) { z.sugar.Errorw(msg, args...) }
