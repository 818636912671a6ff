package metrics

import (
	"context"
	"net"
	"net/http"

	"example.com/naborly/internal/logger"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var logg = logger.New()

// HTTPServer serves /metrics and /health on a side listener, separate
// from the application port.
type HTTPServer struct {
	srv *http.Server
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// NewHTTPServer starts the metrics listener immediately and returns a
// handle for shutdown.
func NewHTTPServer(addr string) (*HTTPServer, error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{Addr: addr, Handler: mux}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			logg.Error("metrics", "Metrics server stopped unexpectedly", err)
		}
	}()

	logg.Info("metrics", "Metrics server listening on "+addr)
	return &HTTPServer{srv: srv}, nil
}
