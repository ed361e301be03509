package httpserver

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"webcontext/internal/infrastructure/config"
	"webcontext/internal/interfaces/httpserver/middlewares"
	"webcontext/internal/interfaces/httpserver/routes/mcp"
	v1 "webcontext/internal/interfaces/httpserver/routes/v1"
)

type HTTPServer struct {
	router   *gin.Engine
	config   *config.Config
	mcpRoute *mcp.MCPRoute
	v1Route  *v1.Route
}

func NewHTTPServer(
	cfg *config.Config,
	mcpRoute *mcp.MCPRoute,
	v1Route *v1.Route,
) *HTTPServer {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middlewares.RequestLogger())
	router.Use(middlewares.CORS())
	router.Use(middlewares.MetricsRecorder())

	return &HTTPServer{
		router:   router,
		config:   cfg,
		mcpRoute: mcpRoute,
		v1Route:  v1Route,
	}
}

func (s *HTTPServer) setupRoutes() {
	// Health check endpoints
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "service": "webcontext"})
	})

	s.router.GET("/readyz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ready", "service": "webcontext"})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	group := s.router.Group("/v1")
	s.mcpRoute.RegisterRouter(group)
	s.v1Route.RegisterRouter(group)
}

func (s *HTTPServer) Run() error {
	s.setupRoutes()
	addr := fmt.Sprintf(":%s", s.config.HTTPPort)
	return s.router.Run(addr)
}
