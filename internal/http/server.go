// Package http provides the HTTP API for workspaced.
//
// The protocol layer of the host delivers folder change events through
// POST /api/v1/folders/changed; everything else is a read surface over
// the folder registry plus health and metrics endpoints.
package http

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/workspaced/internal/folders"
	"github.com/fyrsmithlabs/workspaced/internal/walker"
)

// Server provides HTTP endpoints for workspaced.
type Server struct {
	echo       *echo.Echo
	manager    *folders.Manager
	classifier *walker.Classifier
	logger     *zap.Logger
	config     *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
}

// NewServer creates the HTTP server.
func NewServer(manager *folders.Manager, classifier *walker.Classifier, logger *zap.Logger, cfg *Config) (*Server, error) {
	if manager == nil {
		return nil, fmt.Errorf("manager cannot be nil")
	}
	if classifier == nil {
		return nil, fmt.Errorf("classifier cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host:            "localhost",
			Port:            9640,
			ShutdownTimeout: 10 * time.Second,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	})

	s := &Server{
		echo:       e,
		manager:    manager,
		classifier: classifier,
		logger:     logger,
		config:     cfg,
	}
	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.GET("/folders", s.handleListFolders)
	v1.GET("/folders/resolve", s.handleResolve)
	v1.GET("/folders/files", s.handleListFiles)
	v1.POST("/folders/changed", s.handleFoldersChanged)
	v1.GET("/modules", s.handleListModules)
	v1.GET("/readiness", s.handleGetReadiness)
	v1.POST("/readiness", s.handleUpdateReadiness)
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// FolderResponse describes one registered folder.
type FolderResponse struct {
	URI     string    `json:"uri"`
	Name    string    `json:"name"`
	AddedAt time.Time `json:"added_at"`
}

// ReadinessResponse is the response body for GET /api/v1/readiness.
type ReadinessResponse struct {
	Scope string `json:"scope"`
	Ready bool   `json:"ready"`
}

// ReadinessUpdateRequest is the request body for POST /api/v1/readiness.
type ReadinessUpdateRequest struct {
	ScopeIDs []string `json:"scope_ids"`
	Ready    bool     `json:"ready"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleListFolders(c echo.Context) error {
	all := s.manager.GetAll()
	resp := make([]FolderResponse, 0, len(all))
	for _, f := range all {
		resp = append(resp, FolderResponse{
			URI:     f.URI.String(),
			Name:    f.Name,
			AddedAt: f.AddedAt,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleResolve(c echo.Context) error {
	raw := c.QueryParam("uri")
	if raw == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing uri parameter")
	}
	fileURI, err := url.Parse(raw)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid uri parameter")
	}

	folder, err := s.manager.FindFolderForFile(fileURI)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if folder == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no workspace folder contains this file")
	}
	return c.JSON(http.StatusOK, FolderResponse{
		URI:     folder.URI.String(),
		Name:    folder.Name,
		AddedAt: folder.AddedAt,
	})
}

// FileResponse describes one file enumerated under a folder.
type FileResponse struct {
	Path     string `json:"path"`
	RelPath  string `json:"rel_path"`
	Language string `json:"language"`
	Test     bool   `json:"test"`
}

func (s *Server) handleListFiles(c echo.Context) error {
	raw := c.QueryParam("uri")
	if raw == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing uri parameter")
	}
	language := c.QueryParam("language")
	if language == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing language parameter")
	}
	typ := walker.Source
	switch c.QueryParam("type") {
	case "", "source":
	case "test":
		typ = walker.Test
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "type must be source or test")
	}

	folderURI, err := url.Parse(raw)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid uri parameter")
	}
	folder := s.manager.GetFolder(folderURI)
	if folder == nil {
		return echo.NewHTTPError(http.StatusNotFound, "folder is not registered")
	}
	baseDir, ok := folder.LocalPath()
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "folder is not on the local filesystem")
	}

	files := []FileResponse{}
	w := walker.New(baseDir, s.classifier, s.logger)
	err = w.Walk(c.Request().Context(), language, typ, func(f walker.InputFile) {
		files = append(files, FileResponse{
			Path:     f.Path,
			RelPath:  f.RelPath,
			Language: f.Language,
			Test:     f.Type == walker.Test,
		})
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, files)
}

func (s *Server) handleFoldersChanged(c echo.Context) error {
	var event folders.ChangeEvent
	if err := c.Bind(&event); err != nil {
		s.logger.Warn("invalid folder change request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	s.manager.DidChangeWorkspaceFolders(c.Request().Context(), event)
	return c.NoContent(http.StatusAccepted)
}

func (s *Server) handleListModules(c echo.Context) error {
	modules := s.manager.Modules()
	if modules == nil {
		modules = []folders.Module{}
	}
	return c.JSON(http.StatusOK, modules)
}

func (s *Server) handleGetReadiness(c echo.Context) error {
	scope := c.QueryParam("scope")
	if scope == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing scope parameter")
	}
	return c.JSON(http.StatusOK, ReadinessResponse{
		Scope: scope,
		Ready: s.manager.IsReadyForAnalysis(scope),
	})
}

func (s *Server) handleUpdateReadiness(c echo.Context) error {
	var req ReadinessUpdateRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid readiness update request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.ScopeIDs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "scope_ids cannot be empty")
	}

	s.manager.UpdateAnalysisReadiness(req.ScopeIDs, req.Ready)
	return c.NoContent(http.StatusNoContent)
}

// Start starts the HTTP server and blocks until ctx is cancelled, then
// shuts down gracefully within the configured timeout.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return http.ErrServerClosed
}
