package httpserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/macrohuang/invest-log/internal/infrastructure/logx"
	"github.com/macrohuang/invest-log/internal/infrastructure/metrics"
)

func NewRouter(s *Server) http.Handler {
	r := chi.NewRouter()

	r.Use(requestID, recoverer, accessLog)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("OK"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if s.ready != nil {
			if err := s.ready(r.Context()); err != nil {
				writeError(w, http.StatusServiceUnavailable, "db not ready")
				return
			}
		}
		w.Write([]byte("READY"))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/prices/update", s.updatePrice)
		r.Post("/prices/manual", s.manualUpdatePrice)
		r.Post("/prices/update-all", s.updateAllPrices)
		r.Get("/prices/latest", s.getLatestPrice)
		r.Get("/exchange-rates", s.getExchangeRates)
		r.Put("/exchange-rates", s.setExchangeRate)
		r.Post("/exchange-rates/refresh", s.refreshExchangeRates)
		r.Get("/operation-logs", s.getOperationLogs)
	})

	return r
}

// requestID propagates the caller's X-Request-ID or mints one, echoing it
// back on the response so clients can correlate logs.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get("X-Request-ID")
		if rid == "" {
			rid = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", rid)
		next.ServeHTTP(w, r.WithContext(logx.WithRequestID(r.Context(), rid)))
	})
}

func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logx.L().Error("panic recovered",
					zap.Any("error", rec),
					zap.String("request_id", logx.RequestID(r.Context())),
				)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// statusWriter captures the status code and body size for the access log
// and the request-duration histogram.
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)
		status := sw.status
		if status == 0 {
			status = http.StatusOK
		}
		// Label the histogram with the route pattern, not the raw path,
		// to keep metric cardinality bounded.
		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = r.URL.Path
		}
		elapsed := time.Since(start)
		metrics.HTTPRequestDuration.
			WithLabelValues(r.Method, pattern, strconv.Itoa(status)).
			Observe(elapsed.Seconds())
		logx.L().Info("http_request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Int("bytes", sw.bytes),
			zap.String("request_id", logx.RequestID(r.Context())),
			zap.Duration("duration", elapsed),
		)
	})
}
