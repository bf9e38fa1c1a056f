package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"pico-monitor/internal/logger"
)

const indexPage = `<html>
<head><title>Pico Monitor</title></head>
<body>
<h1>Pico Monitor</h1>
<ul>
<li><a href="/health">Health Check</a></li>
<li><a href="/metrics">Metrics</a></li>
</ul>
</body>
</html>`

// NewRouter routes /health, /metrics and the index page
func NewRouter(healthHandler, metricsHandler http.Handler) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/health", healthHandler).Methods(http.MethodGet)
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler).Methods(http.MethodGet)
	}
	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, indexPage)
	}).Methods(http.MethodGet)
	return r
}

// Server is the health/metrics listener
type Server struct {
	srv *http.Server
}

// NewServer creates a server on port with secure timeout settings
func NewServer(port int, handler http.Handler) *Server {
	return &Server{srv: &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}}
}

// Start binds the listener and serves in the background
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.srv.Addr, err)
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.LogError("❌ HTTP server stopped: %v", err)
		}
	}()
	logger.LogInfo("🌐 Health and metrics on %s", ln.Addr())
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
