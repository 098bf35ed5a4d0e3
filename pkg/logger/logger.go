package logger

import (
	"os"

	"go.uber.org/zap"
)

type Logger interface {
	Info(msg string, values ...any)
	Warn(msg string, values ...any)
	Error(msg string, values ...any)
	Debug(msg string, values ...any)
	Panic(message string, values ...any)
	Fatal(error error, values ...any)
	Printf(format string, args ...interface{})
}

// Config controls the process-wide logger. An empty File logs to stdout only.
type Config struct {
	Env        string
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

func init() {
	_, err := NewLogger(Config{Env: os.Getenv("LOG_ENV"), Level: os.Getenv("LOG_LEVEL")})
	if err != nil {
		panic(err)
	}
}

// Setup replaces the default logger once configuration has been loaded.
func Setup(cfg Config) error {
	_, err := NewLogger(cfg)
	return err
}

// Nop silences logging, used by tests that exercise noisy paths.
func Nop() {
	zapLogger = &ZapLogger{log: zap.NewNop().Sugar()}
}

func Info(msg string, values ...any) {
	GetLogger().Info(msg, values...)
}

func Warn(msg string, values ...any) {
	GetLogger().Warn(msg, values...)
}

func Error(msg string, values ...any) {
	GetLogger().Error(msg, values...)
}

func Debug(msg string, values ...any) {
	GetLogger().Debug(msg, values...)
}

func Panic(msg string, values ...any) {
	GetLogger().Panic(msg, values...)
}

func Fatal(error error, values ...any) {
	GetLogger().Fatal(error, values...)
}

func Sync() {
	_ = GetLogger().log.Sync()
}
