package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/cwrk-planet/chat-service/config"
	"github.com/cwrk-planet/chat-service/internal/auth"
	"github.com/cwrk-planet/chat-service/internal/delivery"
	"github.com/cwrk-planet/chat-service/internal/metrics"
	"github.com/cwrk-planet/chat-service/internal/presence"
	"github.com/cwrk-planet/chat-service/internal/readstate"
	"github.com/cwrk-planet/chat-service/internal/registry"
	"github.com/cwrk-planet/chat-service/internal/service"
	grpcx "github.com/cwrk-planet/chat-service/internal/transport/grpc"
	httpx "github.com/cwrk-planet/chat-service/internal/transport/http"
	"github.com/cwrk-planet/chat-service/internal/transport/ws"
	"github.com/cwrk-planet/chat-service/internal/workerpool"
	"github.com/cwrk-planet/chat-service/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
)

func initLogger(cfg *config.Config) {
	logger.Init(logger.Config{
		Env:       logger.ParseEnv(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		Level:     logger.ParseLevel(cfg.Logging.Level),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
}

func runServe(ctx context.Context, cfg *config.Config) error {
	start := time.Now()

	// --- logger ---
	initLogger(cfg)
	defer func() { _ = logger.Sync() }()
	stopTracing := logger.InitTracing()
	defer func() { _ = stopTracing(context.Background()) }()
	slog.Info("starting chat-service",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version, "storage", cfg.Storage.Driver)

	// --- metrics ---
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// --- storage ---
	b, err := openBackend(ctx, cfg, reg)
	if err != nil {
		return err
	}
	defer b.close()

	// --- realtime core ---
	pool := workerpool.New(cfg.Presence.Workers, cfg.Presence.QueueSize)
	connections := registry.New(m)
	tracker := presence.NewTracker(connections, b.users, pool, m, cfg.Presence.PersistTimeout)
	router := delivery.NewRouter(connections, b.convs)
	engine := readstate.NewEngine(b.convs, b.convs, router, m, cfg.Chat.MaxTextLength)

	// --- services ---
	messageSvc := service.NewMessageService(engine, router, b.convs, b.convs, b.users, service.HistoryLimits{
		Default: cfg.Chat.HistoryDefaultLimit,
		Max:     cfg.Chat.HistoryMaxLimit,
	})
	groupSvc := service.NewGroupService(b.convs, b.users, router)
	userSvc := service.NewUserService(b.users, b.convs, tracker)
	signer := auth.NewSigner(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TokenTTL, cfg.Auth.ClockSkew)

	// --- websocket + HTTP ---
	wsServer := ws.NewServer(ws.Config{
		PingInterval:   cfg.Realtime.PingInterval,
		WriteTimeout:   cfg.Realtime.WriteTimeout,
		ReadLimit:      cfg.Realtime.ReadLimit,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	}, signer, tracker)

	httpSrv := httpx.NewServer(httpx.Config{
		Addr:            cfg.HTTP.Addr,
		ReadTimeout:     cfg.HTTP.ReadTimeout,
		WriteTimeout:    cfg.HTTP.WriteTimeout,
		IdleTimeout:     cfg.HTTP.IdleTimeout,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	}, httpx.NewRouter(httpx.Deps{
		Handler:        httpx.NewHandler(messageSvc, groupSvc, userSvc),
		Tokens:         signer,
		WS:             wsServer,
		Metrics:        promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		RequestTimeout: cfg.HTTP.RequestTimeout,
	}))
	httpSrv.RegisterOnShutdown(wsServer.CloseAll)

	// --- gRPC ---
	var (
		grpcServer *grpc.Server
		grpcLis    net.Listener
	)
	if cfg.GRPC.Addr != "" {
		grpcLis, err = net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		grpcServer = grpc.NewServer(grpc.ChainUnaryInterceptor(
			grpcx.UnaryServerInterceptor(cfg.HTTP.RequestTimeout),
			grpcx.AuthInterceptor(signer),
		))
		grpcx.Register(grpcServer, grpcx.NewChatServer(messageSvc))
	}

	// --- run ---
	errCh := make(chan error, 2)
	go func() { errCh <- httpSrv.Run(ctx) }()
	if grpcServer != nil {
		go func() {
			slog.Info("grpc: listening", "addr", cfg.GRPC.Addr)
			if err := grpcServer.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				errCh <- err
			}
		}()
	}

	// --- graceful shutdown ---
	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
		runErr = <-errCh
	case runErr = <-errCh:
		if runErr != nil {
			slog.Error("server error", "err", runErr)
		}
	}

	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	wsServer.CloseAll()

	shCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := pool.Shutdown(shCtx); err != nil {
		slog.Warn("presence pool shutdown", "err", err)
	}

	slog.Info("stopped", "uptime", time.Since(start).Round(time.Second))
	return runErr
}
