package gorm

import (
	"fmt"
	"strings"
	"time"

	gormlogger "gorm.io/gorm/logger"

	"github.com/proarc/proarc/pkg/proarc/support/util/logger"
)

// NewGormLogger routes GORM output through the ProArc logger.
func NewGormLogger(level string) gormlogger.Interface {
	var l gormlogger.LogLevel
	switch strings.ToUpper(level) {
	case "ERROR":
		l = gormlogger.Error
	case "WARN":
		l = gormlogger.Warn
	case "INFO", "DEBUG":
		l = gormlogger.Info
	default:
		l = gormlogger.Silent
	}
	return gormlogger.New(&GormWriter{}, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  l,
		IgnoreRecordNotFoundError: true,
	})
}

// GormWriter adapts the ProArc logger to gorm's Writer; SQL traces go to DEBUG.
type GormWriter struct{}

func (w *GormWriter) Printf(format string, v ...interface{}) {
	msg := strings.TrimSpace(fmt.Sprintf(format, v...))
	upper := strings.ToUpper(msg)
	if strings.Contains(upper, "SELECT") || strings.Contains(upper, "INSERT") || strings.Contains(upper, "UPDATE") || strings.Contains(upper, "DELETE") {
		logger.Debugf("[GORM] %s", msg)
		return
	}
	logger.Infof("[GORM] %s", msg)
}
