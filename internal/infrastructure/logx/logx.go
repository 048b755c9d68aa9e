package logx

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/macrohuang/invest-log/internal/config"
)

var logger = mustBuild(config.Load())

// mustBuild assembles the process logger: console output for local runs,
// JSON elsewhere, level from LOG_LEVEL.
func mustBuild(cfg config.Config) *zap.Logger {
	var zapCfg zap.Config
	if cfg.Env == "local" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
		zapCfg.Sampling = nil
	}
	zapCfg.DisableStacktrace = true
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if lvl, err := zapcore.ParseLevel(strings.ToLower(cfg.LogLevel)); err == nil {
		zapCfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	l, err := zapCfg.Build(zap.AddCaller())
	if err != nil {
		panic(err)
	}
	return l
}

// L returns the process-wide logger.
func L() *zap.Logger { return logger }

type contextKey string

const requestIDKey contextKey = "request_id"

// WithRequestID stores a request ID for WithFields to pick up. The HTTP
// middleware calls this once per request.
func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, requestIDKey, rid)
}

// RequestID returns the request ID stored in ctx, if any.
func RequestID(ctx context.Context) string {
	rid, _ := ctx.Value(requestIDKey).(string)
	return rid
}

// WithFields enriches logs with the request ID from context.
func WithFields(ctx context.Context) *zap.Logger {
	if rid := RequestID(ctx); rid != "" {
		return logger.With(zap.String("request_id", rid))
	}
	return logger
}
