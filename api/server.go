// Package api serves the sticker metadata codec over HTTP for clients that
// convert their own stickers and only need pack metadata written or read.
package api

import (
	"net/http"
	"time"

	"github.com/deven96/stickermeta/metadata"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// Server represents the API server
type Server struct {
	router   *gin.Engine
	addr     string
	defaults metadata.Metadata
	maxBody  int64
	requests *prometheus.CounterVec
	registry *prometheus.Registry
}

// NewServer creates a server that fills absent metadata from defaults
func NewServer(addr string, defaults metadata.Metadata, maxBody int64) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(requestLogger())
	router.Use(gin.Recovery())

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "Whatsticker",
		Subsystem: "API",
		Name:      "MetadataRequests",
		Help:      "Metadata API requests by operation and result",
	}, []string{"operation", "result"})
	registry := prometheus.NewRegistry()
	registry.MustRegister(requests)

	s := &Server{
		router:   router,
		addr:     addr,
		defaults: defaults,
		maxBody:  maxBody,
		requests: requests,
		registry: registry,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/metadata", s.EmbedHandler)
		v1.POST("/metadata/extract", s.ExtractHandler)
		v1.POST("/metadata/strip", s.StripHandler)
	}
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
}

// Handler returns the router, used by tests and by Run
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run blocks serving on the configured address
func (s *Server) Run() error {
	log.Infof("metadata API listening on %s", s.addr)
	return s.router.Run(s.addr)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start),
		}).Debug("api request")
	}
}
