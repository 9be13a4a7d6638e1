package export

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/psantana5/encbench/pkg/logging"
)

// Server serves the exporter's /metrics endpoint while a batch runs.
// It lives exactly as long as one batch: started before the first job,
// shut down after the table is written.
type Server struct {
	srv *http.Server
	log *logging.Logger
}

// NewServer creates a metrics server bound to addr
func NewServer(addr string, exporter *Exporter, log *logging.Logger) *Server {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(exporter.registry, promhttp.HandlerOpts{}))

	return &Server{
		srv: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		log: log,
	}
}

// Start begins serving in the background
func (s *Server) Start() {
	go func() {
		s.log.Info("metrics listener started", map[string]interface{}{"addr": s.srv.Addr})
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("metrics listener failed", map[string]interface{}{"error": err.Error()})
		}
	}()
}

// Stop shuts the listener down, waiting briefly for in-flight scrapes
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		s.log.Warn("metrics listener shutdown", map[string]interface{}{"error": err.Error()})
	}
}
