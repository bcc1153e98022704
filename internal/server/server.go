package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/evanofslack/cf-ddns/internal/config"
	"github.com/evanofslack/cf-ddns/internal/credential"
	"github.com/evanofslack/cf-ddns/internal/metrics"
	"github.com/evanofslack/cf-ddns/internal/provider"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-Id"
	loggerKey       = "logger"
)

type Server struct {
	cfg     *config.Config
	store   credential.Store
	zone    provider.Zone
	metrics *metrics.Metrics
	router  *gin.Engine
}

func New(cfg *config.Config, store credential.Store, zone provider.Zone, metrics *metrics.Metrics) *Server {
	s := &Server{
		cfg:     cfg,
		store:   store,
		zone:    zone,
		metrics: metrics,
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.GET("/update", s.handleUpdate)
	r.GET("/nic/update", s.handleUpdate)
	s.router = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// requestLogger tags each request with an id and logs its completion.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := uuid.New().String()
		c.Header(requestIDHeader, id)
		logger := slog.With("request_id", id)
		c.Set(loggerKey, logger)

		c.Next()

		logger.Info("Handled request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"client", c.ClientIP(),
			"duration", time.Since(start))
	}
}

func loggerFrom(c *gin.Context) *slog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if l, ok := v.(*slog.Logger); ok {
			return l
		}
	}
	return slog.Default()
}

// NewMetricsServer serves /metrics and /health on their own listener.
func NewMetricsServer(addr string, metrics *metrics.Metrics) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
