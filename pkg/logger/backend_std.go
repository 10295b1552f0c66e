package logger

import "log/slog"

func newStdHandler(cfg Config) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:     cfg.level(),
		AddSource: cfg.AddSource,
	}

	// в dev читаем глазами, на стенде отдаём JSON без zap
	if cfg.Env != EnvDev {
		return slog.NewJSONHandler(cfg.Output, opts)
	}
	return slog.NewTextHandler(cfg.Output, opts)
}
