package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the console and rotating file sinks.
type Options struct {
	Level string
	// File is the log file path; empty disables the file sink.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
	// Quiet drops console output below warn.
	Quiet bool
}

var (
	mu       sync.RWMutex
	console  = newConsole(zapcore.InfoLevel, false)
	fileOnly *zap.SugaredLogger
	rotator  *lumberjack.Logger
)

func newConsole(level zapcore.Level, quiet bool) *zap.SugaredLogger {
	if quiet && level < zapcore.WarnLevel {
		level = zapcore.WarnLevel
	}
	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	enc.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(os.Stderr), zap.NewAtomicLevelAt(level))
	return zap.New(core).Sugar()
}

func parseLevel(s string) zapcore.Level {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(s)))); err != nil {
		return zapcore.InfoLevel
	}
	return l
}

// InitLogger 初始化控制台和文件日志
func InitLogger(opts Options) error {
	level := parseLevel(opts.Level)

	mu.Lock()
	defer mu.Unlock()

	consoleCore := newConsole(level, opts.Quiet).Desugar().Core()
	if opts.File == "" {
		console = zap.New(consoleCore, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
		fileOnly = nil
		if rotator != nil {
			rotator.Close()
			rotator = nil
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}
	rotator = &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    opts.MaxSizeMB, // megabytes
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays, // days
		Compress:   opts.Compress,
	}
	fileEnc := zap.NewProductionEncoderConfig()
	fileEnc.EncodeTime = zapcore.ISO8601TimeEncoder
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(fileEnc), zapcore.AddSync(rotator), zap.NewAtomicLevelAt(level))

	console = zap.New(zapcore.NewTee(consoleCore, fileCore), zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
	fileOnly = zap.New(fileCore, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
	return nil
}

func Close() {
	mu.Lock()
	defer mu.Unlock()
	_ = console.Sync()
	if rotator != nil {
		rotator.Close()
		rotator = nil
	}
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return console
}

// InfoFileOnly writes to the log file without echoing to the console.
func InfoFileOnly(format string, v ...interface{}) {
	mu.RLock()
	l := fileOnly
	mu.RUnlock()
	if l == nil {
		return
	}
	l.Infof(format, v...)
}

func Info(format string, v ...interface{}) { current().Infof(format, v...) }

func Debug(format string, v ...interface{}) { current().Debugf(format, v...) }

func Warn(format string, v ...interface{}) { current().Warnf(format, v...) }

func Error(format string, v ...interface{}) { current().Errorf(format, v...) }

// GetLogWriter returns the rotating file sink, or io.Discard when logging
// to the console only.
func GetLogWriter() io.Writer {
	mu.RLock()
	defer mu.RUnlock()
	if rotator == nil {
		return io.Discard
	}
	return rotator
}
