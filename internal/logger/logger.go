package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Level 日志级别。
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	mu    sync.RWMutex
	out   = log.New(os.Stderr, "", log.LstdFlags)
	level = LevelInfo
)

// Setup 配置日志输出；filePath 非空时同时写入滚动日志文件。
func Setup(levelName, filePath string) {
	mu.Lock()
	defer mu.Unlock()
	level = parseLevel(levelName)
	if filePath == "" {
		return
	}
	rotator := &lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    20, // MB
		MaxBackups: 5,
		MaxAge:     14, // days
		Compress:   true,
	}
	out = log.New(io.MultiWriter(os.Stderr, rotator), "", log.LstdFlags)
}

func parseLevel(name string) Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func logf(l Level, tag, format string, args ...any) {
	mu.RLock()
	enabled := l >= level
	w := out
	mu.RUnlock()
	if !enabled {
		return
	}
	w.Output(3, tag+" "+fmt.Sprintf(format, args...))
}

// Debugf 输出 debug 日志。
func Debugf(format string, args ...any) { logf(LevelDebug, "[DEBUG]", format, args...) }

// Infof 输出 info 日志。
func Infof(format string, args ...any) { logf(LevelInfo, "[INFO]", format, args...) }

// Warnf 输出 warn 日志。
func Warnf(format string, args ...any) { logf(LevelWarn, "[WARN]", format, args...) }

// Errorf 输出 error 日志。
func Errorf(format string, args ...any) { logf(LevelError, "[ERROR]", format, args...) }
