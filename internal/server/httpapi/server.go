// Package httpapi is the HTTP routing and validation layer. It translates
// wire requests into store operations and store errors into status codes;
// all invariants live in the stores underneath.
package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dstepanenko/dreamhouse/internal/logging"
	"github.com/dstepanenko/dreamhouse/internal/server/auth"
	"github.com/dstepanenko/dreamhouse/internal/server/config"
	"github.com/dstepanenko/dreamhouse/internal/server/projects"
	"github.com/dstepanenko/dreamhouse/internal/server/versions"
)

type Server struct {
	config   *config.Config
	engine   *gin.Engine
	auth     *auth.Store
	projects *projects.Service
	versions *versions.Service
	logger   logging.Logger
}

func NewServer(cfg *config.Config, as *auth.Store, ps *projects.Service,
	vs *versions.Service, l logging.Logger) *Server {

	s := &Server{
		config:   cfg,
		auth:     as,
		projects: ps,
		versions: vs,
		logger:   l.With("module", "http_server"),
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.corsMiddleware())

	r.GET("/", s.root)
	r.POST("/register", s.register)
	r.POST("/login", s.login)
	r.POST("/logout", s.requireAuth(), s.logout)
	r.POST("/design", s.design)

	r.GET("/projects", s.optionalAuth(), s.listProjects)
	r.GET("/projects/:id", s.getProject)
	r.GET("/projects/:id/thumbnail", s.getThumbnail)
	r.GET("/projects/:id/versions", s.listVersions)
	r.GET("/projects/:id/versions/:vid", s.getVersion)
	r.GET("/projects/:id/versions/:vid/thumbnail", s.getVersionThumbnail)

	authed := r.Group("", s.requireAuth())
	authed.POST("/save-project", s.saveProject)
	authed.PUT("/projects/:id", s.updateProject)
	authed.DELETE("/projects/:id", s.deleteProject)
	authed.POST("/projects/:id/duplicate", s.duplicateProject)
	authed.POST("/projects/:id/versions/:vid/revert", s.revertVersion)
	authed.DELETE("/projects/:id/versions/:vid", s.deleteVersion)

	s.engine = r
	return s
}

// Handler exposes the routing engine, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is canceled, then shuts down gracefully within the
// configured timeout.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.config.Addr, Handler: s.engine}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "shutdown error", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.config.Addr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Backend is running"})
}
