// Package httpserver exposes the investigation API over HTTP with gin.
package httpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	zlog "github.com/rs/zerolog/log"

	"github.com/nexumobscura/nexum/internal/duckdb"
	"github.com/nexumobscura/nexum/internal/ingest"
	"github.com/nexumobscura/nexum/internal/metrics"
	"github.com/nexumobscura/nexum/internal/model"
	"github.com/nexumobscura/nexum/internal/store"
	"github.com/nexumobscura/nexum/internal/views"
)

// ArchiveSummarizer reports on the durable archive.
type ArchiveSummarizer interface {
	Summary(ctx context.Context) (duckdb.Summary, error)
}

// Config wires a Server.
type Config struct {
	Addr             string
	UploadDir        string
	MaxUploadSize    int64
	MaxUploadEntries int
	ViewCacheSize    int
	Tables           *views.Tables
	Clock            model.Clock
	Metrics          *metrics.Metrics  // nil disables /metrics and request metrics
	Archive          ArchiveSummarizer // nil reports the archive as disabled
}

// Server serves the API.
type Server struct {
	cfg       Config
	svc       *ingest.Service
	store     *store.Store
	tables    *views.Tables
	cache     *viewCache
	clock     model.Clock
	router    *gin.Engine
	server    *http.Server
	listener  net.Listener
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
}

// NewServer builds the router. It does not listen until Start.
func NewServer(cfg Config, svc *ingest.Service) (*Server, error) {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:5000"
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = filepath.Join(os.TempDir(), "nexum-uploads")
	}
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = model.DefaultMaxUploadSize
	}
	if cfg.MaxUploadEntries <= 0 {
		cfg.MaxUploadEntries = model.DefaultMaxUploadEntries
	}
	if cfg.Tables == nil {
		cfg.Tables = views.DefaultTables()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	cache, err := newViewCache(cfg.ViewCacheSize)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:       cfg,
		svc:       svc,
		store:     svc.Store(),
		tables:    cfg.Tables,
		cache:     cache,
		clock:     cfg.Clock,
		ctx:       ctx,
		cancel:    cancel,
		startTime: cfg.Clock(),
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = 8 << 20
	r.Use(gin.Recovery(), s.observe())

	api := r.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/dashboard", s.handleDashboard)
	api.POST("/upload", s.handleUpload)
	api.GET("/upload/status", s.handleUploadStatus)
	api.GET("/logs", s.handleLogs)
	api.GET("/files", s.handleFiles)
	api.DELETE("/files/:filename", s.handleDeleteFile)
	api.GET("/analysis", s.handleAnalysis)
	api.GET("/network", s.handleNetwork)
	api.GET("/alerts", s.handleAlerts)
	api.GET("/reports", s.handleReports)
	api.GET("/export/:type", s.handleExport)
	api.GET("/traffic-flow", s.handleTrafficFlow)
	api.GET("/protocol-analysis", s.handleProtocolAnalysis)
	api.GET("/geographic-data", s.handleGeographic)
	api.GET("/archive", s.handleArchive)

	if s.cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(s.cfg.Metrics.Handler()))
	}
	return r
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	s.server = &http.Server{
		Handler:           s.router,
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
	}

	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.listener = listener
	s.startTime = s.clock()

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			zlog.Error().Err(err).Msg("http server stopped")
		}
	}()
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.cfg.Addr
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	s.cancel()
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// observe records request metrics and a debug access line.
func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		if s.cfg.Metrics != nil {
			s.cfg.Metrics.ObserveRequest(route, c.Request.Method, c.Writer.Status(), elapsed)
		}
		zlog.Debug().
			Str("method", c.Request.Method).
			Str("route", route).
			Int("status", c.Writer.Status()).
			Dur("elapsed", elapsed).
			Msg("request")
	}
}
