package logging

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/hilthontt/collaby/internal/infrastructure/env"
	"gopkg.in/natefinch/lumberjack.v2"
)

var once sync.Once

type Logger interface {
	Init()

	Debug(cat Category, sub SubCategory, msg string, extra map[ExtraKey]any)
	Info(cat Category, sub SubCategory, msg string, extra map[ExtraKey]any)
	Warn(cat Category, sub SubCategory, msg string, extra map[ExtraKey]any)
	Error(cat Category, sub SubCategory, msg string, extra map[ExtraKey]any)
	Fatal(cat Category, sub SubCategory, msg string, extra map[ExtraKey]any)

	Sync() error
}

type LoggerConfig struct {
	FilePath string
	Encoding string
	Level    string
	Logger   string
	// Quiet drops the stdout sink. Terminal UIs log to the file only.
	Quiet bool
}

func NewDefaultConfig() *LoggerConfig {
	return &LoggerConfig{
		FilePath: env.GetString("LOGGER_FILE_PATH", "./logs/"),
		Encoding: env.GetString("LOGGER_ENCODING", "json"),
		Level:    env.GetString("LOGGER_LEVEL", "debug"),
		Logger:   env.GetString("LOGGER_LOGGER", "zap"),
	}
}

// NewLogger returns an initialised logger. An empty backend name falls back to zap.
func NewLogger(cfg *LoggerConfig) (Logger, error) {
	var l Logger
	switch cfg.Logger {
	case "zap", "":
		l = newZapLogger(cfg)
	case "zerolog":
		l = newZeroLogger(cfg)
	case "nop":
		l = NewNopLogger()
	default:
		return nil, fmt.Errorf("logger %q not supported: supported loggers: [zap, zerolog, nop]", cfg.Logger)
	}

	l.Init()
	return l, nil
}

// rotatingFile returns nil when no file path is configured.
func rotatingFile(cfg *LoggerConfig) *lumberjack.Logger {
	if cfg.FilePath == "" {
		return nil
	}

	fileName := fmt.Sprintf("%s-%s.log", time.Now().Format("2006-01-02"), cfg.Logger)
	return &lumberjack.Logger{
		Filename:   filepath.Join(cfg.FilePath, fileName),
		MaxSize:    1, // megabytes
		MaxAge:     20,
		MaxBackups: 5,
		LocalTime:  true,
		Compress:   true,
	}
}
