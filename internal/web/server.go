// Package web provides an HTTP status server for the button-sensor daemon.
package web

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/inconshreveable/log15"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sweeney/button-sensor/internal/status"
)

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	log        log.Logger
}

// New creates a Server that reads state from the given tracker and exposes
// the collectors in gatherer on /metrics.
func New(addr string, tracker *status.Tracker, gatherer prometheus.Gatherer, logger log.Logger) *Server {
	s := &Server{tracker: tracker, log: logger}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog)

	r.GET("/", s.handleIndex)
	r.GET("/index.html", s.handleIndex)
	r.GET("/index.json", s.handleJSON)
	r.GET("/inputs/:name", s.handleInput)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the router. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) requestLog(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.log.Debug("http request",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", c.Writer.Status(),
		"took", time.Since(start))
}

func (s *Server) handleIndex(c *gin.Context) {
	snap := s.tracker.Snapshot()
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := renderHTML(c.Writer, snap); err != nil {
		s.log.Error("render index", "err", err)
	}
}

func (s *Server) handleJSON(c *gin.Context) {
	snap := s.tracker.Snapshot()
	c.Data(http.StatusOK, "application/json", status.FormatJSON(snap))
}

func (s *Server) handleInput(c *gin.Context) {
	snap := s.tracker.Snapshot()
	doc := status.Build(snap)
	name := c.Param("name")
	for _, in := range doc.Status.Inputs {
		if in.Name == name {
			c.JSON(http.StatusOK, in)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "unknown input", "name": name})
}
