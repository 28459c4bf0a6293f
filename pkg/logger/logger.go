package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var Logger *zap.Logger

var level zap.AtomicLevel

func init() {
	lc := zap.NewDevelopmentConfig()
	lc.EncoderConfig.TimeKey = ""
	level = lc.Level
	Logger, _ = lc.Build()
}

//SetLevel adjusts how chatty the shared logger is
func SetLevel(l zapcore.Level) {
	level.SetLevel(l)
}
