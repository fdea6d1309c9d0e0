// Package api is the control plane: it starts crawl runs in the background
// and serves their progress, outputs and metrics.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/IshaanNene/Shelfie/internal/config"
	"github.com/IshaanNene/Shelfie/internal/dashboard"
	"github.com/IshaanNene/Shelfie/internal/engine"
	"github.com/IshaanNene/Shelfie/internal/fetcher"
	"github.com/IshaanNene/Shelfie/internal/observability"
	"github.com/IshaanNene/Shelfie/internal/sites"
	"github.com/IshaanNene/Shelfie/internal/storage"
	"github.com/IshaanNene/Shelfie/internal/types"
)

// RunRequest is the body of POST /api/runs.
type RunRequest struct {
	Site string `json:"site" binding:"required"`
	// URLs are category pages; more than one makes a multi-category run.
	URLs     []string `json:"urls"`
	MaxPages *int     `json:"max_pages"`
	Formats  []string `json:"formats"`
}

// SiteInfo describes a profile for GET /api/sites.
type SiteInfo struct {
	Slug       string `json:"slug"`
	Name       string `json:"name"`
	DefaultURL string `json:"default_url"`
}

// Server runs at most one crawl at a time. The crawl goroutine owns its
// session and writes progress into the RunState; handlers only read
// snapshots.
type Server struct {
	cfg     *config.Config
	state   *dashboard.RunState
	dash    *dashboard.Dashboard
	opener  fetcher.Opener
	metrics *observability.Metrics
	sleep   engine.Sleeper
	started time.Time
	logger  *slog.Logger

	mu           sync.RWMutex
	lastProducts []*types.Product
	lastSite     string

	runs sync.WaitGroup
}

// NewServer creates a control-plane server.
func NewServer(cfg *config.Config, state *dashboard.RunState, opener fetcher.Opener, metrics *observability.Metrics, logger *slog.Logger) *Server {
	return &Server{
		cfg:     cfg,
		state:   state,
		dash:    dashboard.New(state, logger),
		opener:  opener,
		metrics: metrics,
		started: time.Now(),
		logger:  logger.With("component", "api_server"),
	}
}

// SetSleeper replaces the sleep used by crawl runs.
func (s *Server) SetSleeper(sl engine.Sleeper) {
	s.sleep = sl
}

// Router builds the gin engine. ctx bounds the rate limiter's cleanup and
// every run started through it.
func (s *Server) Router(ctx context.Context) *gin.Engine {
	gin.SetMode(s.cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(s.logger))

	r.GET("/", gin.WrapH(s.dash))
	r.GET("/api/health", s.handleHealth)
	r.GET("/api/status", gin.WrapF(s.dash.ServeStatus))
	r.GET("/api/sites", s.handleSites)
	r.POST("/api/runs", rateLimit(ctx, s.cfg.Server.StartRate, s.cfg.Server.StartBurst), s.handleStartRun(ctx))
	r.POST("/api/logs/clear", s.handleClearLogs)
	r.GET("/api/download/:file", s.handleDownload)
	r.GET("/api/download.csv", s.handleDownloadCSV)

	if s.cfg.Metrics.Enabled && s.metrics != nil {
		r.GET(s.cfg.Metrics.Path, gin.WrapH(s.metrics))
	}
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down and waits
// for the active run to stop.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Router(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("control plane listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("control plane: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Wait()
	s.logger.Info("control plane stopped")
	return err
}

// Wait blocks until the background run, if any, has finished.
func (s *Server) Wait() {
	s.runs.Wait()
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": config.Version,
		"uptime":  time.Since(s.started).Round(time.Second).String(),
		"running": s.state.Running(),
	})
}

func (s *Server) handleSites(c *gin.Context) {
	all := sites.All()
	out := make([]SiteInfo, 0, len(all))
	for _, p := range all {
		out = append(out, SiteInfo{Slug: p.Slug, Name: p.Name, DefaultURL: p.DefaultURL})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleClearLogs(c *gin.Context) {
	s.state.ClearLogs()
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

func (s *Server) handleStartRun(ctx context.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RunRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
			return
		}

		profile, err := sites.Lookup(req.Site)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		runCfg, err := s.runConfig(req)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		runID := uuid.New().String()
		if err := s.state.Begin(runID, profile.Slug); err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}

		s.runs.Add(1)
		go func() {
			defer s.runs.Done()
			s.execute(ctx, runID, runCfg, profile, req)
		}()

		c.JSON(http.StatusAccepted, gin.H{
			"run_id": runID,
			"site":   profile.Slug,
			"status": "started",
		})
	}
}

// runConfig validates a request and returns the config its run uses.
func (s *Server) runConfig(req RunRequest) (*config.Config, error) {
	for _, u := range req.URLs {
		if err := config.ValidateURL(u); err != nil {
			return nil, err
		}
	}
	if req.MaxPages != nil && *req.MaxPages < 0 {
		return nil, fmt.Errorf("max_pages must be >= 0")
	}

	runCfg := *s.cfg
	if len(req.Formats) > 0 {
		runCfg.Export.Formats = req.Formats
	}
	if req.MaxPages != nil {
		runCfg.Crawl.MaxPages = *req.MaxPages
	}
	if err := config.Validate(&runCfg); err != nil {
		return nil, err
	}
	return &runCfg, nil
}

func (s *Server) execute(ctx context.Context, runID string, cfg *config.Config, profile *sites.Profile, req RunRequest) {
	logger := s.logger.With("run_id", runID, "site", profile.Slug)
	logger.Info("run started", "categories", max(len(req.URLs), 1), "max_pages", cfg.Crawl.MaxPages)

	batch := engine.NewBatch(cfg, profile, req.URLs, s.opener, logger)
	batch.SetObserver(s.state)
	batch.SetMetrics(s.metrics)
	batch.SetSleeper(s.sleep)

	res, runErr := batch.Run(ctx)

	var (
		files    []string
		products []*types.Product
	)
	if res != nil {
		products = res.Products
	}
	if len(products) > 0 {
		var err error
		files, err = storage.Write(cfg, storage.Export{
			Site:          profile.Slug,
			MultiCategory: len(req.URLs) > 1,
			DedupeByName:  profile.DedupeOutputByName,
		}, products, s.metrics, logger)
		if err != nil {
			runErr = errors.Join(runErr, err)
		}

		s.mu.Lock()
		s.lastProducts = products
		s.lastSite = profile.Slug
		s.mu.Unlock()
	} else if runErr == nil {
		runErr = types.ErrNoProducts
	}

	if runErr != nil {
		logger.Error("run finished with errors", "products", len(products), "error", runErr)
	} else {
		logger.Info("run finished", "products", len(products), "files", files)
	}
	s.state.Finish(len(products), files, runErr)
}

// handleDownload serves a file from the export directory. Only bare file
// names are accepted.
func (s *Server) handleDownload(c *gin.Context) {
	name := c.Param("file")
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file name"})
		return
	}

	path := filepath.Join(s.cfg.Export.OutputDir, name)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return
	}
	c.FileAttachment(path, name)
}

func (s *Server) handleDownloadCSV(c *gin.Context) {
	s.mu.RLock()
	products := s.lastProducts
	site := s.lastSite
	s.mu.RUnlock()

	if len(products) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no completed run to download"})
		return
	}

	name := storage.FileName(s.cfg.Export.Prefix, site, storage.KindProducts, time.Now(), "csv")
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Status(http.StatusOK)
	if err := storage.WriteCSV(c.Writer, products); err != nil {
		s.logger.Error("csv download failed", "error", err)
	}
}
