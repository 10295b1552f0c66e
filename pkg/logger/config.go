package logger

import (
	"io"
	"log/slog"
	"strings"
)

type Backend string

const (
	BackendStd Backend = "std" // text, удобно читать локально
	BackendZap Backend = "zap" // JSON через slog-zap
)

type Config struct {
	Service    string
	Version    string
	InstanceID string

	Level   slog.Level
	Env     Env
	Backend Backend // пусто: std для dev, zap для остальных
	Debug   bool

	// Zap sampling: первые SampleInitial записей в секунду, дальше каждая SampleThereafter
	SampleInitial    int
	SampleThereafter int

	AddSource bool

	// Output по умолчанию os.Stdout
	Output io.Writer
}

// ParseLevel переводит строку из конфига в slog.Level, неизвестное значение даёт Info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c Config) level() slog.Level {
	if c.Debug && c.Level == 0 {
		return slog.LevelDebug
	}
	return c.Level
}
