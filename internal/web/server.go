package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"
	"github.com/raine/ecg-analyzer/internal/capture"
	"github.com/raine/ecg-analyzer/internal/session"
	"github.com/rs/zerolog/log"
)

// shutdownTimeout bounds graceful shutdown of the HTTP server.
const shutdownTimeout = 10 * time.Second

// Options configures the web server.
type Options struct {
	// MaxUploadBytes limits uploaded image size. Zero means capture.DefaultMaxImageSize.
	MaxUploadBytes int64
	// CORSOrigins are the origins allowed to call /api. Empty disables CORS.
	CORSOrigins []string
	// SessionSecret signs session cookies. Empty means a random per-process key.
	SessionSecret string
	Debug         bool
}

// Server renders the analyzer UI and exposes the JSON API.
type Server struct {
	store   *session.Store
	cookies *cookieSigner
	opts    Options
	engine  *gin.Engine
}

// NewServer builds the gin engine with all routes.
func NewServer(store *session.Store, opts Options) (*Server, error) {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = capture.DefaultMaxImageSize
	}
	cookies, err := newCookieSigner(opts.SessionSecret)
	if err != nil {
		return nil, err
	}
	tmpl, err := loadTemplates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	assets, err := newAssetFileSystem()
	if err != nil {
		return nil, fmt.Errorf("failed to load assets: %w", err)
	}

	if opts.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger())
	engine.SetHTMLTemplate(tmpl)
	engine.MaxMultipartMemory = opts.MaxUploadBytes + 1<<20

	s := &Server{
		store:   store,
		cookies: cookies,
		opts:    opts,
		engine:  engine,
	}

	engine.Use(static.Serve("/static", assets))
	engine.GET("/healthz", s.handleHealth)

	api := engine.Group("/api")
	if len(opts.CORSOrigins) > 0 {
		api.Use(cors.New(cors.Config{
			AllowOrigins:  opts.CORSOrigins,
			AllowMethods:  []string{"POST", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders: []string{"Content-Length"},
			MaxAge:        12 * time.Hour,
		}))
		api.OPTIONS("/analyze", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	}
	api.POST("/analyze", s.handleAPIAnalyze)

	ui := engine.Group("/", s.sessionMiddleware())
	ui.GET("/", s.handleIndex)
	ui.GET("/state", s.handleState)
	ui.GET("/preview/:handle", s.handlePreview)
	ui.POST("/image", s.handleSelectImage)
	ui.POST("/analyze", s.handleAnalyze)
	ui.POST("/reset", s.handleReset)

	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	log.Info().Msg("shutting down http server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	return nil
}
