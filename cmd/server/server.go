package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"example.com/naborly/internal/auth"
	"example.com/naborly/internal/feed"
	"example.com/naborly/internal/interactions"
	"example.com/naborly/internal/logger"
	"example.com/naborly/internal/metrics"
	"example.com/naborly/internal/middleware"
)

// Server is the HTTP boundary for the excluded UI layer: every handler
// is a thin adapter over the in-process service calls.
type Server struct {
	auth         *auth.Service
	feed         *feed.Service
	interactions *interactions.Service
}

var logg = logger.New()

// Run starts the HTTP server with session-protected routes and graceful shutdown.
func Run(ctx context.Context, authSvc *auth.Service, feedSvc *feed.Service, interSvc *interactions.Service, addr string) {
	s := &Server{
		auth:         authSvc,
		feed:         feedSvc,
		interactions: interSvc,
	}

	srv := &http.Server{
		Addr:         addr,
		Handler:      s.routes(),
		ReadTimeout:  10 * time.Second, // prevent slowloris attacks
		WriteTimeout: 10 * time.Second,
	}

	// --- Start server in a goroutine ---
	go func() {
		logg.Info("server", "Starting HTTP server on "+addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.Error("server", "Server stopped unexpectedly", err)
		}
	}()

	// --- Graceful shutdown ---
	<-ctx.Done()
	logg.Info("server", "Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Error("server", "Error during server shutdown", err)
	} else {
		logg.Info("server", "Server stopped gracefully")
	}
}

// routes wires every boundary operation. Register and login are public;
// everything else sits behind the session middleware.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/register", instrument("/register", http.HandlerFunc(s.registerHandler)))
	mux.Handle("/login", instrument("/login", http.HandlerFunc(s.loginHandler)))

	protected := map[string]http.Handler{
		"/logout":             http.HandlerFunc(s.logoutHandler),
		"/feed":               http.HandlerFunc(s.feedHandler),
		"/posts":              http.HandlerFunc(s.postsHandler),
		"/react":              http.HandlerFunc(s.reactHandler),
		"/comments":           http.HandlerFunc(s.commentsHandler),
		"/follow":             http.HandlerFunc(s.followHandler),
		"/profile":            http.HandlerFunc(s.profileHandler),
		"/notifications":      http.HandlerFunc(s.notificationsHandler),
		"/notifications/read": http.HandlerFunc(s.notificationsReadHandler),
	}
	for route, handler := range protected {
		mux.Handle(route, instrument(route, middleware.SessionAuth(s.auth, handler)))
	}

	return mux
}

// instrument counts requests per route and status code.
func instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
