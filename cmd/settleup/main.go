package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"settleup/internal/amqp"
	"settleup/internal/config"
	"settleup/internal/dispatch"
	"settleup/internal/ledger"
	gsheet "settleup/internal/ledger/google"
	mem "settleup/internal/ledger/memory"
	"settleup/internal/ledger/mirrored"
	"settleup/internal/ledger/sqlite"
	applog "settleup/internal/log"
	"settleup/internal/oracle"
	"settleup/internal/reply"
	"settleup/internal/webhook"
	"settleup/internal/whatsapp"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.Setup("settleup")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	phones, err := cfg.PhoneParties()
	if err != nil {
		logger.Error("Failed to load phone mapping", "error", err)
		os.Exit(1)
	}

	var store ledger.Store
	switch cfg.DataBackend {
	case "sheets":
		cli, err := gsheet.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets backend", "error", err, "backend", cfg.DataBackend)
			os.Exit(1)
		}
		store = cli
		logger.Info("Initialized Google Sheets backend", "backend", cfg.DataBackend)
	case "sqlite":
		db, err := sqlite.New(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite backend", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		defer db.Close()
		store = db
		logger.Info("Initialized SQLite backend", "backend", cfg.DataBackend, "path", cfg.SQLiteDBPath)
	default:
		store = mem.New()
		logger.Info("Initialized memory backend", "backend", cfg.DataBackend)
	}

	// Optional AMQP mirror: every successful mutation is published for the
	// worker to replay against the Google Sheets copy.
	if cfg.AMQPURL != "" && cfg.DataBackend != "sheets" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		store = mirrored.New(store, amqpClient)
		logger.Info("Ledger mirroring enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	}

	extractor := oracle.NewGemini(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.OracleTimeout)
	sender := whatsapp.NewClient(cfg.MetaToken, cfg.MetaPhoneID, cfg.SendTimeout)
	out := reply.NewFormatter(cfg.PartyAName, cfg.PartyBName)
	dispatcher := dispatch.New(store, extractor, out)
	handler := webhook.NewHandler(cfg.VerifyToken, cfg.MetaAppSecret, phones, dispatcher, extractor, sender, out)

	srv := webhook.NewServer(":"+cfg.Port, handler)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	slog.Info("Starting settleup server", "port", cfg.Port, "backend", cfg.DataBackend, "model", cfg.GeminiModel)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
