// Package http exposes the claim services over a JSON API.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/expense-approval/internal/application/service"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxUploadBytes int64
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:           "0.0.0.0",
		Port:           8080,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   60 * time.Second,
		MaxUploadBytes: 10 << 20,
	}
}

// Services groups the application services the API serves
type Services struct {
	Claims  service.ClaimService
	Rules   service.RuleService
	Reports service.ReportService
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	handlers   *Handlers
	logger     Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(config ServerConfig, services Services, logger Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = DefaultServerConfig().MaxUploadBytes
	}

	server := &Server{
		config:   config,
		router:   gin.New(),
		handlers: NewHandlers(services, config.MaxUploadBytes, logger),
		logger:   logger,
	}

	server.router.Use(gin.Recovery())
	server.router.Use(server.loggingMiddleware())
	server.setupRoutes()

	return server
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		)
	}
}

func (s *Server) setupRoutes() {
	h := s.handlers

	s.router.GET("/health", h.HealthCheck)

	api := s.router.Group("/api", h.RequireUser)
	{
		api.POST("/claims", h.SubmitClaim)
		api.GET("/claims", h.ListClaims)
		api.GET("/claims/mine", h.ListMyClaims)
		api.GET("/claims/team", h.ListTeamClaims)
		api.GET("/claims/pending", h.ListPendingClaims)
		api.GET("/claims/export", h.ExportClaims)
		api.GET("/claims/:id", h.GetClaim)
		api.PUT("/claims/:id/decision", h.DecideClaim)
		api.POST("/claims/:id/assign", h.AssignApprover)

		api.POST("/receipts/extract", h.ExtractReceipt)

		api.GET("/companies/:id/approval-rule", h.GetApprovalRule)
		api.PUT("/companies/:id/approval-rule", h.ConfigureApprovalRule)
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
