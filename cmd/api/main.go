package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/macrohuang/invest-log/internal/bootstrap"
	"github.com/macrohuang/invest-log/internal/config"
	infraconfig "github.com/macrohuang/invest-log/internal/infrastructure/config"
	"github.com/macrohuang/invest-log/internal/infrastructure/logx"
)

func init() { _ = godotenv.Load() }

func main() {
	logger := logx.L()
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handler, cleanup, err := bootstrap.InitAPI(ctx)
	if err != nil {
		logger.Fatal("bootstrap api", zap.Error(err))
	}
	defer cleanup()

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: infraconfig.DefaultHTTPReadHeaderTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("server started", zap.String("addr", server.Addr))
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		logger.Fatal("listen", zap.Error(err))
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), infraconfig.DefaultShutdownTimeout)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	logger.Info("server stopped")
}
