package gmorph

import (
	"fmt"
	"os"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type zapLogger struct {
	sugared *zap.SugaredLogger
	rotator *lumberjack.Logger
}

var logger = newConsoleLogger()

// LogConfig holds the log file settings; zeroed fields fall back to
// console-only logging.
type LogConfig struct {
	Logfile string
	MaxSize int `toml:"max_log_size"`
	MaxAge  int `toml:"max_log_age"`
}

func logEncoder() zapcore.Encoder {
	encConfig := zap.NewProductionEncoderConfig()
	encConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(encConfig)
}

func newConsoleLogger() zapLogger {
	core := zapcore.NewCore(logEncoder(), zapcore.Lock(os.Stdout), zapcore.DebugLevel)
	return zapLogger{sugared: zap.New(core).Sugar()}
}

// SetLogger routes log messages to a rotating log file in addition to stdout.
func (c *LogConfig) SetLogger() {
	if c == nil || c.Logfile == "" {
		Infof("Sending log messages to stdout since no log file specified.")
		return
	}
	fmt.Printf("Sending log messages to: %s\n", c.Logfile)
	rotator := &lumberjack.Logger{
		Filename: c.Logfile,
		MaxSize:  c.MaxSize, // megabytes
		MaxAge:   c.MaxAge,  // days
	}
	consoleCore := zapcore.NewCore(logEncoder(), zapcore.Lock(os.Stdout), zapcore.DebugLevel)
	fileCore := zapcore.NewCore(logEncoder(), zapcore.AddSync(rotator), zapcore.DebugLevel)
	core := zapcore.NewTee(consoleCore, fileCore)
	logger = zapLogger{sugared: zap.New(core).Sugar(), rotator: rotator}
}

// --- Logger implementation ----

func (zlog zapLogger) Debugf(format string, args ...interface{}) {
	zlog.sugared.Debugf(format, args...)
}

func (zlog zapLogger) Infof(format string, args ...interface{}) {
	zlog.sugared.Infof(format, args...)
}

func (zlog zapLogger) Warningf(format string, args ...interface{}) {
	zlog.sugared.Warnf(format, args...)
}

func (zlog zapLogger) Errorf(format string, args ...interface{}) {
	zlog.sugared.Errorf(format, args...)
}

// Criticalf logs at the highest non-terminating level zap provides.
func (zlog zapLogger) Criticalf(format string, args ...interface{}) {
	zlog.sugared.DPanicf(format, args...)
}

func (zlog zapLogger) Shutdown() {
	zlog.sugared.Sync()
	if zlog.rotator != nil {
		zlog.rotator.Close()
	}
}
