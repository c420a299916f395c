package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/banking/activity-graph-service/internal/config"
	"github.com/banking/activity-graph-service/internal/pkg/logger"
	"github.com/banking/activity-graph-service/internal/service"
)

// Server wraps the echo instance and the route handlers
type Server struct {
	echo *echo.Echo
	cfg  config.ServerConfig
	log  *logger.Logger
}

// New builds the HTTP server with middleware and routes registered
func New(engine *service.Engine, cfg *config.Config, log *logger.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.Secure())
	e.Use(middleware.BodyLimit(fmt.Sprintf("%d", cfg.Server.MaxRequestSize)))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Security.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
	}))

	h := &Handler{engine: engine, log: log.Named("http")}

	e.GET("/health", h.Health)

	api := e.Group("/api")
	api.POST("/entities", h.AddEntity)
	api.POST("/transactions", h.AddTransaction)
	api.POST("/sars", h.AddSAR)
	api.GET("/patterns/detect/:entity_id", h.DetectPatterns)
	api.GET("/risk-analysis/:entity_id", h.RiskAnalysis)
	api.GET("/graph/:entity_id", h.GraphView)
	api.GET("/sars/similar/:sar_id", h.SimilarSARs)
	api.GET("/stats", h.Stats)

	return &Server{echo: e, cfg: cfg.Server, log: log.Named("server")}
}

// Start runs the server until it fails or is shut down
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.log.Info("server starting", logger.StringField("addr", addr))

	s.echo.Server.ReadTimeout = s.cfg.ReadTimeout
	s.echo.Server.WriteTimeout = s.cfg.WriteTimeout
	s.echo.Server.IdleTimeout = s.cfg.IdleTimeout
	return s.echo.Start(addr)
}

// Shutdown drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
