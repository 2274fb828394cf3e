package admin

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/corvus-proxy/corvus/internal/clusterslot"
	"github.com/corvus-proxy/corvus/internal/config"
	"github.com/corvus-proxy/corvus/internal/server"
)

// Server is the admin HTTP surface: a thin gin server exposing health,
// stats, and topology endpoints. It holds no mutable state of its own,
// only references to the core's shared Stats and Router.
type Server struct {
	httpServer  *http.Server
	logger      *slog.Logger
	statsSource *server.Stats
	router      *clusterslot.Router
	startedAt   time.Time
}

// NewServer builds the gin engine and wraps it in an *http.Server bound
// to cfg.Admin.Host:Port. Call Run to start serving.
func NewServer(cfg config.AdminConfig, stats *server.Stats, router *clusterslot.Router, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		logger:      logger,
		statsSource: stats,
		router:      router,
		startedAt:   time.Now(),
	}

	engine.GET("/healthz", s.health)
	engine.GET("/stats", s.stats)
	engine.GET("/topology", s.topology)

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: engine,
	}
	return s
}

// Run starts the HTTP server and blocks until ctx is cancelled, at
// which point it shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
