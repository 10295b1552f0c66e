package logger

import (
	"log/slog"
	"os"
	"sync"

	"go.uber.org/zap"
)

var (
	mu  sync.RWMutex
	def *slog.Logger
	zl  *zap.Logger
)

// Init собирает slog.Logger под окружение и делает его логгером по умолчанию.
func Init(cfg Config) *slog.Logger {
	if cfg.Env == "" {
		cfg.Env = DetectEnv()
	}
	if cfg.Service == "" {
		cfg.Service = "chat-service"
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	cfg.InstanceID = ensureInstanceID(cfg.InstanceID)

	if cfg.Backend == "" {
		if cfg.Env == EnvDev {
			cfg.Backend = BackendStd
		} else {
			cfg.Backend = BackendZap
		}
	}

	var (
		h slog.Handler
		z *zap.Logger
	)
	switch cfg.Backend {
	case BackendZap:
		h, z = newZapHandler(cfg)
	default:
		h = newStdHandler(cfg)
	}

	base := slog.New(h.WithAttrs(commonAttrs(cfg)))
	slog.SetDefault(base)

	mu.Lock()
	def, zl = base, z
	mu.Unlock()

	return base
}

func L() *slog.Logger {
	mu.RLock()
	l := def
	mu.RUnlock()
	if l != nil {
		return l
	}

	return Init(Config{})
}

// Sync сбрасывает буферы zap, для std ничего не делает.
func Sync() error {
	mu.RLock()
	z := zl
	mu.RUnlock()
	if z == nil {
		return nil
	}
	return z.Sync()
}
