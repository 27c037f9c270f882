package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"aki/bff/internal/auth"
	"aki/bff/internal/clients"
	"aki/bff/internal/config"
	internalhttp "aki/bff/internal/http"
	"aki/bff/internal/jobs"
	"aki/bff/internal/logging"
	"aki/bff/internal/operations"
	"aki/bff/internal/session"
)

func main() {
	cfg := config.Load()
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			logging.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable, logout revocation disabled")
			_ = rdb.Close()
			rdb = nil
		}
		cancel()
	}
	if rdb != nil {
		defer rdb.Close()
	}

	c := clients.New(cfg)
	defer c.Close()

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTExpiresIn)
	authenticator := auth.NewAuthenticator(cfg.MockAuthEnabled, cfg.MockTeacherID, tokens, c.Personas)
	if cfg.MockAuthEnabled {
		logging.Warn().Int64("teacher_id", cfg.MockTeacherID).Msg("mock authentication enabled")
	}

	ops := operations.New(operations.Deps{
		Personas:      c.Personas,
		Core:          c.Core,
		Recovery:      c.Password,
		Authenticator: authenticator,
		Tokens:        tokens,
	})

	probe := jobs.NewUpstreamProbe(c.PersonasHTTP, c.CoreHTTP, c.PasswordHTTP)
	jobs.StartUpstreamProbeJob(ctx, cfg, probe)

	server := internalhttp.NewServer(cfg, internalhttp.Deps{
		Operations:    ops,
		Personas:      c.Personas,
		Core:          c.Core,
		Authenticator: authenticator,
		Sessions:      session.New(rdb),
		Health:        probe,
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logging.Info().Str("addr", cfg.HTTPAddr).Msg("bff http listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("shutdown error")
	}
}
