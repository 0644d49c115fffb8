package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"wa-insights-service/internal/app"
	"wa-insights-service/internal/config"
	"wa-insights-service/internal/pkg/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("[MAIN] No .env file found, relying on system env vars")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[MAIN] %v", err)
	}

	zl, err := logger.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("[MAIN] %v", err)
	}
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.NewServer(cfg, zl).Start(ctx); err != nil {
		zl.Fatal("server exited with error", zap.Error(err))
	}
}
