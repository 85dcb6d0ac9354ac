// Package server exposes the diagnose pipeline and the keyword responder
// over HTTP.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/straja-ai/arrhythmia/internal/auth"
	"github.com/straja-ai/arrhythmia/internal/chatbot"
	"github.com/straja-ai/arrhythmia/internal/config"
	"github.com/straja-ai/arrhythmia/internal/console"
	"github.com/straja-ai/arrhythmia/internal/redact"
	"github.com/straja-ai/arrhythmia/internal/service"
)

// Server wraps the HTTP routes and their shared state.
type Server struct {
	mux      *http.ServeMux
	cfg      *config.Config
	auth     *auth.Auth
	svc      *service.Service
	chat     *chatbot.Responder
	requests *requestStore
	inFlight chan struct{}

	httpServer *http.Server
}

// New registers every route. chat may be nil, in which case the built-in
// rule table is used.
func New(cfg *config.Config, authz *auth.Auth, svc *service.Service, chat *chatbot.Responder) *Server {
	if chat == nil {
		chat = chatbot.New()
	}
	s := &Server{
		mux:      http.NewServeMux(),
		cfg:      cfg,
		auth:     authz,
		svc:      svc,
		chat:     chat,
		requests: newRequestStore(cfg.Server.RequestStatusTTL),
	}
	if n := cfg.Server.MaxInFlightRequests; n > 0 {
		s.inFlight = make(chan struct{}, n)
	}

	s.mux.HandleFunc("GET /{$}", s.handleHealth)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.Handle("POST /v1/diagnose", s.guard(s.handleDiagnose))
	s.mux.Handle("POST /predict", s.guard(s.handleDiagnose))
	s.mux.Handle("POST /v1/chat", s.guard(s.handleChat))
	s.mux.Handle("GET /v1/requests/{id}", s.guard(s.handleRequestStatus))
	if cfg.Server.Console {
		s.mux.Handle("GET /console", console.Handler())
	}

	s.httpServer = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}
	return s
}

// Handler returns the root handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start listens on addr and blocks until the server stops. A clean Shutdown
// returns nil.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln.
func (s *Server) Serve(ln net.Listener) error {
	redact.Logf("arrhythmia service listening on %s (model loaded: %v)", ln.Addr(), s.svc.Pipeline.Ready())
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

type projectKey struct{}

// guard applies the in-flight limit and API-key auth.
func (s *Server) guard(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.inFlight != nil {
			select {
			case s.inFlight <- struct{}{}:
				defer func() { <-s.inFlight }()
			default:
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "too many requests in flight", "rate_limited")
				return
			}
		}

		projectID := ""
		if s.auth.Required() {
			key, ok := auth.ParseBearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeError(w, http.StatusUnauthorized, "missing or malformed API key", "unauthorized")
				return
			}
			project, ok := s.auth.Lookup(key)
			if !ok {
				writeError(w, http.StatusUnauthorized, "invalid API key", "unauthorized")
				return
			}
			projectID = project.ID
		}
		next(w, r.WithContext(context.WithValue(r.Context(), projectKey{}, projectID)))
	})
}

func projectFrom(ctx context.Context) string {
	id, _ := ctx.Value(projectKey{}).(string)
	return id
}

func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	timeout := s.cfg.Server.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return context.WithTimeout(r.Context(), timeout)
}
