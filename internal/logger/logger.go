package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger *zap.Logger
	once   sync.Once
)

// Init builds the global logger. ENV=production selects the JSON production
// config; anything else uses the development console logger.
func Init(env string) {
	once.Do(func() {
		var err error
		if env == "production" {
			logger, err = zap.NewProduction()
		} else {
			logger, err = zap.NewDevelopment()
		}
		if err != nil {
			panic("failed to initialize logger: " + err.Error())
		}
	})
}

// L returns the global logger, initialising it from ENV on first use.
func L() *zap.Logger {
	if logger == nil {
		Init(os.Getenv("ENV"))
	}
	return logger
}

// Sync flushes buffered log entries. Syncing a terminal stderr fails on some
// platforms, so the error is dropped.
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}

func Info(msg string, fields ...zapcore.Field) {
	L().Info(msg, fields...)
}

func Warn(msg string, fields ...zapcore.Field) {
	L().Warn(msg, fields...)
}

func Error(msg string, fields ...zapcore.Field) {
	L().Error(msg, fields...)
}

func Debug(msg string, fields ...zapcore.Field) {
	L().Debug(msg, fields...)
}
