// Package server exposes the smartspend operations over HTTP with gin.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ArionMiles/smartspend/pkg/analytics"
	"github.com/ArionMiles/smartspend/pkg/auth"
	"github.com/ArionMiles/smartspend/pkg/service"
)

// MaxUploadBytes bounds the multipart form kept in memory per request.
const MaxUploadBytes = 32 << 20

const shutdownTimeout = 30 * time.Second

// Server routes requests to the service and auth layers.
type Server struct {
	svc    *service.Service
	auth   *auth.Service
	engine *gin.Engine
	logger *slog.Logger
}

// New builds the router.
func New(svc *service.Service, users *auth.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		svc:    svc,
		auth:   users,
		engine: gin.New(),
		logger: logger.With("component", "http"),
	}
	s.engine.MaxMultipartMemory = MaxUploadBytes
	s.engine.Use(gin.Recovery(), s.requestLogger())
	s.engine.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:   []string{"Content-Length"},
		MaxAge:          12 * time.Hour,
	}))
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.engine
	r.GET("/", s.root)
	r.GET("/ping", s.ping)
	r.GET("/health", s.health)

	r.POST("/register", s.register)
	r.POST("/login", s.login)

	r.POST("/upload/csv/", s.uploadCSV)
	r.POST("/upload/receipt/", s.uploadReceipt)
	r.POST("/sync-csv", s.syncCSV)

	r.POST("/expenses", s.addExpense)
	r.GET("/expenses", s.listExpenses)
	r.PUT("/expenses/:id", s.updateExpense)
	r.DELETE("/expenses/:id", s.deleteExpense)

	a := r.Group("/analytics")
	a.GET("/category-breakdown", s.view(func(v analytics.Snapshot) any { return v.Breakdown }))
	a.GET("/weekday-vs-weekend", s.view(func(v analytics.Snapshot) any { return v.Split }))
	a.GET("/predictions", s.view(func(v analytics.Snapshot) any { return v.Predictions }))
	a.GET("/weekly-trend", s.view(func(v analytics.Snapshot) any { return v.Weekly }))
	a.GET("/biggest-category", s.biggestCategory)
	a.GET("/spending-spike", s.spendingSpike)
	a.GET("/summary", s.summary)

	r.GET("/profile/summary", s.profileSummary)
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
