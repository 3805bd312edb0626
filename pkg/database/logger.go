package database

import (
	"time"

	applogger "github.com/Payphone-Digital/socialhub/pkg/logger"
	"gorm.io/gorm/logger"
)

// zapWriter sends gorm's formatted lines to the application logger
type zapWriter struct{}

func (zapWriter) Printf(format string, args ...interface{}) {
	applogger.GetLogger().Named("gorm").Sugar().Infof(format, args...)
}

func gormLogLevel(environment string) logger.LogLevel {
	switch environment {
	case "production", "test":
		return logger.Silent
	case "staging":
		return logger.Warn
	default:
		return logger.Info
	}
}

// newGormLogger logs SQL at the environment's level. Misses are expected on
// every failed login and unknown confirmation id, so they are not logged.
func newGormLogger(environment string) logger.Interface {
	return logger.New(zapWriter{}, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormLogLevel(environment),
		IgnoreRecordNotFoundError: true,
	})
}
