package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"agentdash/pkg/bus"
	"agentdash/pkg/platform"
	"agentdash/pkg/render"
	"agentdash/pkg/telemetry"
	"agentdash/services/audit"
	"agentdash/services/dashboard"
	"agentdash/services/dashboard/internal/config"
)

const auditStream = "AGENTDASH_AUDIT"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	logger, err := telemetry.NewLogger(dashboard.ServiceName, cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		log.Fatal().Err(err).Msg("init logger")
	}
	log.Logger = logger

	cleanup, err := telemetry.Init(ctx, dashboard.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("init otel")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := cleanup(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown otel")
		}
	}()

	client, err := platform.New(cfg.PlatformURL,
		platform.WithTimeout(cfg.PlatformTimeout),
		platform.WithUserAgent(dashboard.ServiceName),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("platform client")
	}

	recorders := audit.Multi{}
	if cfg.AuditDSN != "" {
		store, err := audit.Open(ctx, cfg.AuditDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("open audit store")
		}
		defer func() {
			if err := store.Close(); err != nil {
				log.Error().Err(err).Msg("close audit store")
			}
		}()
		if err := store.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("migrate audit store")
		}
		recorders = append(recorders, store)
	}
	if cfg.NATSURL != "" {
		b, err := bus.New(cfg.NATSURL, nats.Name(dashboard.ServiceName))
		if err != nil {
			log.Fatal().Err(err).Msg("connect nats")
		}
		defer b.Close()
		if err := b.EnsureStream(auditStream, cfg.AuditSubject+".>"); err != nil {
			log.Fatal().Err(err).Msg("ensure audit stream")
		}
		recorders = append(recorders, audit.NewPublisher(b, cfg.AuditSubject))
	}

	engine, err := render.New(render.WithLocation(cfg.Location()))
	if err != nil {
		log.Fatal().Err(err).Msg("parse templates")
	}

	srv, err := dashboard.New(dashboard.Options{
		Platform:        client,
		Engine:          engine,
		Audit:           recorders,
		Logger:          logger,
		Location:        cfg.Location(),
		RefreshInterval: cfg.RefreshInterval,
		AllowedOrigins:  cfg.AllowedOrigins,
		ActionRateLimit: cfg.ActionRateLimit,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("init dashboard")
	}

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	go func() {
		log.Info().Str("addr", cfg.Addr).Str("platform", client.BaseURL()).Msg("starting agentdash")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown server")
	}
}
