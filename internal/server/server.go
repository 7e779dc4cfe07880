// Package server exposes probing, fetching, artifact download and cookie
// administration over HTTP using gin.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/ytget/yt-web/internal/artifact"
	"github.com/ytget/yt-web/internal/download"
	"github.com/ytget/yt-web/internal/logging"
	"github.com/ytget/yt-web/internal/model"
)

// HTTP server timeouts
const (
	ReadHeaderTimeout = 10 * time.Second
	IdleTimeout       = 120 * time.Second
	ShutdownTimeout   = 15 * time.Second
)

//go:embed templates/*.html
var templatesFS embed.FS

// Prober lists selectable formats for a URL
type Prober interface {
	Probe(ctx context.Context, url string, cookies model.CookieMaterial) (*model.ProbeResult, error)
}

// Artifacts hands out single-use readers for fetched files
type Artifacts interface {
	Open(token model.ArtifactToken) (*artifact.Reader, error)
	ContentType() string
}

// PlaylistParser lists the entries of a playlist URL
type PlaylistParser interface {
	ParsePlaylist(ctx context.Context, url string) (*model.Playlist, error)
}

// CookieStore persists opaque cookie blobs
type CookieStore interface {
	Append(blob string) error
	List() ([]string, error)
	Delete(index int) error
}

// Config holds the HTTP-facing settings
type Config struct {
	ListenAddr    string
	AdminPassword string  // empty disables the cookie admin endpoints
	RateLimit     float64 // POST requests per second, zero disables limiting
	RateBurst     int
}

// Deps are the components the handlers delegate to
type Deps struct {
	Prober    Prober
	Fetches   download.Orchestrator
	Artifacts Artifacts
	Playlists PlaylistParser
	Cookies   CookieStore
	Logger    *slog.Logger
}

// Server is the HTTP front-end
type Server struct {
	cfg     Config
	deps    Deps
	logger  *slog.Logger
	limiter *rate.Limiter
	engine  *gin.Engine
}

// New wires the router. It does not start listening.
func New(cfg Config, deps Deps) *Server {
	s := &Server{
		cfg:    cfg,
		deps:   deps,
		logger: logging.Ensure(deps.Logger).With("component", "server"),
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	s.engine = s.setupRoutes()
	return s
}

// Handler returns the router
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) setupRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.loggingMiddleware())
	router.SetHTMLTemplate(template.Must(template.ParseFS(templatesFS, "templates/*.html")))

	router.GET("/", s.handleIndex)
	router.GET("/healthz", s.handleHealth)
	router.GET("/status/:id", s.handleStatus)
	router.DELETE("/status/:id", s.handleDeleteTask)
	router.GET("/download_file/:video_id", s.handleDownloadFile)
	router.GET("/cookies_admin/:password", s.handleCookiesAdmin)

	limited := router.Group("/", s.rateLimitMiddleware())
	limited.POST("/formats", s.handleFormats)
	limited.POST("/download_wait", s.handleDownloadWait)
	limited.POST("/download", s.handleDownload)
	limited.POST("/playlist", s.handlePlaylist)
	limited.POST("/save_cookies", s.handleSaveCookies)
	limited.POST("/cookies", s.handleListCookies)
	limited.POST("/delete_cookie", s.handleDeleteCookie)

	return router
}

// Run listens until ctx is done, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: ReadHeaderTimeout,
		WriteTimeout:      0, // downloads stream for as long as they need
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen on %s: %w", s.cfg.ListenAddr, err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
