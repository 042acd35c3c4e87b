package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/cmirandac/gatepass/internal/app"
	"github.com/cmirandac/gatepass/internal/clock"
	"github.com/cmirandac/gatepass/internal/config"
	"github.com/cmirandac/gatepass/internal/queue"
	"github.com/cmirandac/gatepass/internal/storage/postgres"
	"github.com/cmirandac/gatepass/internal/token"
	transporthttp "github.com/cmirandac/gatepass/internal/transport/http"
	"github.com/cmirandac/gatepass/migrations"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := log.Default()
	cfg := config.Load()

	keys, err := token.LoadKeys(cfg.EncryptionKeyHex, cfg.MACKeyHex)
	if err != nil {
		log.Fatalf("load cipher keys: %v", err)
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect to db: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		log.Fatalf("db ping: %v", err)
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(startupCtx).Err(); err != nil {
			logger.Printf("WARN: redis unreachable, scan rate limiting disabled: %v", err)
			rdb = nil
		}
	} else {
		logger.Printf("WARN: REDIS_ADDR not set, scan rate limiting disabled")
	}

	var audit app.AuditPublisher
	if cfg.AMQPURL != "" {
		audit = queue.NewPublisher(cfg.AMQPURL, logger)
	} else {
		logger.Printf("WARN: RABBITMQ_URL not set, audit events disabled")
	}

	clk := clock.NewSystem()
	cipher := token.NewCipher(keys, clk)

	ticketRepo := postgres.NewTicketRepository(pool)
	ticketSvc := app.NewTicketService(ticketRepo, cipher, clk, app.WithTokenValidity(cfg.TokenValidity))
	gateRepo := postgres.NewGateRepository(pool)
	gateSvc := app.NewGateService(gateRepo, cipher, clk, audit, logger)
	adminRepo := postgres.NewAdminRepository(pool)
	adminSvc := app.NewAdminService(adminRepo, clk)

	e := echo.New()
	e.HideBanner = true
	transporthttp.RegisterRoutes(e, transporthttp.Services{
		Tickets:     ticketSvc,
		Gate:        gateSvc,
		Admin:       adminSvc,
		Regenerator: ticketSvc,
	}, transporthttp.Options{
		JWTSecret:         cfg.JWTSecret,
		Redis:             rdb,
		ScanRatePerMinute: cfg.ScanRatePerMinute,
	})

	logger.Printf("api listening on :%s (env=%s)", cfg.Port, cfg.Env)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- e.Start(":" + cfg.Port)
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("server error: %v", err)
		}
	case <-stopCtx.Done():
		logger.Printf("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Printf("server shutdown error: %v", err)
	}
	logger.Printf("server stopped")
}
