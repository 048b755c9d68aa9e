package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/macrohuang/invest-log/internal/bootstrap"
	"github.com/macrohuang/invest-log/internal/infrastructure/logx"
)

func init() { _ = godotenv.Load() }

func main() {
	log := logx.L()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	run, cleanup, err := bootstrap.InitWorkerApp(ctx)
	if err != nil {
		log.Fatal("init worker", zap.Error(err))
	}
	defer cleanup()

	if err := run(ctx); err != nil {
		log.Fatal("worker exited", zap.Error(err))
	}
	log.Info("worker stopped")
}
