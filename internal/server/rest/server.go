package rest

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/gin-gonic/gin"
)

// Options tune the HTTP surface.
type Options struct {
	// Production marks cookies Secure and hides the debug listing.
	Production bool
	// Metrics is served at /metrics when set.
	Metrics http.Handler
	// Ping reports storage reachability for /api/health when set.
	Ping   func(ctx context.Context) error
	Logger logging.Logger
}

type Server struct {
	engine     *gin.Engine
	auth       AuthService
	links      LinkService
	accounts   AccountService
	sessions   SessionVerifier
	challenges ChallengeLister
	production bool
	ping       func(ctx context.Context) error
	logger     logging.Logger
}

func NewServer(svc Services, opts Options) *Server {
	registerValidations()

	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	s := &Server{
		engine:     gin.New(),
		auth:       svc.Auth,
		links:      svc.Links,
		accounts:   svc.Accounts,
		sessions:   svc.Sessions,
		challenges: svc.Challenges,
		production: opts.Production,
		ping:       opts.Ping,
		logger:     logger.With("module", "rest"),
	}

	// client IPs come from the socket, never from forwarded headers
	_ = s.engine.SetTrustedProxies(nil)
	s.engine.Use(s.recovery(), s.requestLogger())
	s.routes(opts.Metrics)
	return s
}

// Handler returns the root handler for http.Server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes(metrics http.Handler) {
	api := s.engine.Group("/api")
	api.GET("/health", s.health)
	api.GET("/_debug/pending", s.debugPending)

	authGroup := api.Group("/auth")
	authGroup.POST("/register/init", s.registerInit)
	authGroup.POST("/register/complete", s.registerComplete)
	authGroup.POST("/login/init", s.loginInit)
	authGroup.POST("/login/complete", s.loginComplete)
	authGroup.POST("/logout", s.logout)

	link := api.Group("/link")
	link.GET("/info/:token", s.linkInfo)
	link.POST("/complete", s.linkComplete)
	link.POST("/init", s.requireSession(), s.linkInit)
	link.GET("/status/:linkId", s.requireSession(), s.linkStatus)
	link.POST("/approve", s.requireSession(), s.linkApprove)

	me := api.Group("/me", s.requireSession())
	me.GET("", s.me)
	me.DELETE("", s.deleteAccount)
	me.GET("/devices", s.devices)
	me.DELETE("/devices/:id", s.revokeDevice)

	if metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(metrics))
	}
}

func (s *Server) health(c *gin.Context) {
	if s.ping != nil {
		if err := s.ping(c.Request.Context()); err != nil {
			s.logger.Warn(c.Request.Context(), "health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "service": common.ServiceName})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "service": common.ServiceName})
}

func (s *Server) debugPending(c *gin.Context) {
	if s.production {
		s.abortWithError(c, common.ErrForbidden)
		return
	}
	pending, err := s.challenges.ListAll(c.Request.Context())
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pending": pending})
}
