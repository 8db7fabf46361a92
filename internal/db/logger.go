package db

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const slowQuery = 200 * time.Millisecond

// LevelFor 开发和测试环境记录警告，生产只记录错误
func LevelFor(env string) gormlogger.LogLevel {
	switch env {
	case "development", "test":
		return gormlogger.Warn
	default:
		return gormlogger.Error
	}
}

// Logger 把 gorm 日志转到 logrus
type Logger struct {
	log   logrus.FieldLogger
	level gormlogger.LogLevel
}

func NewLogger(log logrus.FieldLogger, level gormlogger.LogLevel) *Logger {
	return &Logger{log: log, level: level}
}

func (l *Logger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	return &Logger{log: l.log, level: level}
}

func (l *Logger) Info(ctx context.Context, s string, args ...interface{}) {
	if l.level >= gormlogger.Info {
		l.log.Infof(s, args...)
	}
}

func (l *Logger) Warn(ctx context.Context, s string, args ...interface{}) {
	if l.level >= gormlogger.Warn {
		l.log.Warnf(s, args...)
	}
}

func (l *Logger) Error(ctx context.Context, s string, args ...interface{}) {
	if l.level >= gormlogger.Error {
		l.log.Errorf(s, args...)
	}
}

func (l *Logger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level == gormlogger.Silent {
		return
	}
	dur := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && !errors.Is(err, gorm.ErrDuplicatedKey) && l.level >= gormlogger.Error:
		sql, rows := fc()
		l.log.WithFields(logrus.Fields{"duration": dur, "rows": rows, "sql": sql, "error": err.Error()}).Error("gorm query error")
	case dur > slowQuery && l.level >= gormlogger.Warn:
		sql, rows := fc()
		l.log.WithFields(logrus.Fields{"duration": dur, "rows": rows, "sql": sql}).Warn("gorm slow query")
	case l.level >= gormlogger.Info:
		sql, rows := fc()
		l.log.WithFields(logrus.Fields{"duration": dur, "rows": rows, "sql": sql}).Debug("gorm query")
	}
}
