// Package server provides the HTTP REST API for the résumé typesetter.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/httprate"
	"github.com/google/uuid"

	"github.com/jonathan/resume-typesetter/internal/config"
	"github.com/jonathan/resume-typesetter/internal/library"
	"github.com/jonathan/resume-typesetter/internal/metrics"
	"github.com/jonathan/resume-typesetter/internal/rendering"
	"github.com/jonathan/resume-typesetter/internal/resume"
	"github.com/jonathan/resume-typesetter/internal/server/middleware"
	"github.com/jonathan/resume-typesetter/internal/storage"
	"github.com/jonathan/resume-typesetter/internal/types"
)

// FragmentLibrary is the fragment persistence used by the handlers.
// *library.Service implements it.
type FragmentLibrary interface {
	SaveSubmission(ctx context.Context, userID uuid.UUID, sub *types.Submission) (library.SaveReport, error)
	CreateFragment(ctx context.Context, userID uuid.UUID, rec library.Record) (*library.Record, error)
	GetFragment(ctx context.Context, userID uuid.UUID, kind library.Kind, id uuid.UUID) (*library.Record, error)
	ListFragments(ctx context.Context, userID uuid.UUID, kind library.Kind) ([]library.Record, error)
	Library(ctx context.Context, userID uuid.UUID) (map[library.Kind][]library.Record, error)
	UpdateFragment(ctx context.Context, userID uuid.UUID, id uuid.UUID, rec library.Record) (*library.Record, error)
	DeleteFragment(ctx context.Context, userID uuid.UUID, kind library.Kind, id uuid.UUID) error
}

// Renderer compiles an assembled document. *rendering.Compiler implements it.
type Renderer interface {
	Compile(ctx context.Context, doc *rendering.Document) ([]byte, error)
}

// Archiver keeps a copy of rendered PDFs. *storage.Archive implements it.
type Archiver interface {
	Store(ctx context.Context, userID uuid.UUID, pdf []byte) (string, error)
	List(ctx context.Context, userID uuid.UUID, limit int) ([]storage.Object, error)
	DeleteUser(ctx context.Context, userID uuid.UUID) error
}

// Pinger reports storage health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of a Server. Archive and Pinger are optional.
type Deps struct {
	Users     DBClient
	Library   FragmentLibrary
	Assembler *resume.Assembler
	Renderer  Renderer
	Archive   Archiver
	Pinger    Pinger
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	cfg         *config.Config
	logger      *slog.Logger
	deps        Deps
	userService *UserService
	jwtService  *JWTService
	authHandler *AuthHandler
	closers     []func()
}

// New wires the handlers and middleware over deps.
func New(cfg *config.Config, deps Deps, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Users == nil || deps.Library == nil || deps.Assembler == nil || deps.Renderer == nil {
		return nil, errors.New("server: users, library, assembler and renderer are required")
	}

	jwtConfig, err := cfg.JWT()
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT config: %w", err)
	}

	s := &Server{
		cfg:    cfg,
		logger: logger,
		deps:   deps,
	}
	s.userService = NewUserService(deps.Users, cfg.Password())
	s.jwtService = NewJWTService(jwtConfig)
	s.authHandler = NewAuthHandler(s.userService, s.jwtService)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.Render.Timeout + 30*time.Second,
		IdleTimeout:       60 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}
	return s, nil
}

// OnShutdown registers fn to run after the HTTP server has stopped.
func (s *Server) OnShutdown(fn func()) {
	s.closers = append(s.closers, fn)
}

// Handler returns the full middleware and route stack.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	auth := middleware.AuthMiddleware(s.jwtService.AsTokenValidator())
	protect := func(h http.HandlerFunc) http.Handler { return auth(h) }

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /templates", s.handleListTemplates)

	mux.HandleFunc("POST /auth/register", s.authHandler.Register)
	mux.HandleFunc("POST /auth/login", s.authHandler.Login)

	mux.Handle("GET /me", protect(s.handleGetProfile))
	mux.Handle("PUT /me", protect(s.handleUpdateProfile))
	mux.Handle("DELETE /me", protect(s.handleDeleteProfile))
	mux.Handle("PUT /me/password", protect(s.handleUpdatePassword))
	mux.Handle("GET /me/library", protect(s.handleGetLibrary))
	mux.Handle("GET /me/archive", protect(s.handleListArchive))

	mux.Handle("POST /generate-pdf", s.renderLimit(protect(s.handleGeneratePDF)))
	mux.Handle("POST /resumes/save", protect(s.handleSaveResume))
	mux.Handle("POST /save-json", protect(s.handleSaveJSON))

	mux.Handle("GET /fragments/{kind}", protect(s.handleListFragments))
	mux.Handle("POST /fragments/{kind}", protect(s.handleCreateFragment))
	mux.Handle("GET /fragments/{kind}/{id}", protect(s.handleGetFragment))
	mux.Handle("PUT /fragments/{kind}/{id}", protect(s.handleUpdateFragment))
	mux.Handle("DELETE /fragments/{kind}/{id}", protect(s.handleDeleteFragment))

	return middleware.RequestLogger(s.logger)(
		middleware.Recoverer(
			s.withCORS(
				s.withRateLimit(
					metrics.Middleware(mux)))))
}

// Start listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.logger.Info("server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	origin := s.cfg.Server.CORSOrigin
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Template-Name, "+middleware.CorrelationHeader)
			w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, "+middleware.CorrelationHeader)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit applies the per-client request limit to every route
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	limit := s.cfg.RateLimit.RequestsPerMinute
	if limit <= 0 {
		return next
	}
	return httprate.Limit(limit, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(s.rateLimitResponse),
	)(next)
}

// renderLimit applies the stricter per-client limit of the render endpoint
func (s *Server) renderLimit(next http.Handler) http.Handler {
	limit := s.cfg.RateLimit.RendersPerMinute
	if limit <= 0 {
		return next
	}
	return httprate.Limit(limit, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP, httprate.KeyByEndpoint),
		httprate.WithLimitHandler(s.rateLimitResponse),
	)(next)
}

// rateLimitResponse writes a 429 Too Many Requests response.
func (s *Server) rateLimitResponse(w http.ResponseWriter, r *http.Request) {
	middleware.LoggerFrom(r.Context()).WarnContext(r.Context(), "rate limit exceeded",
		"remote_addr", r.RemoteAddr,
		"limit", w.Header().Get("X-RateLimit-Limit"),
	)
	jsonResponse(w, http.StatusTooManyRequests, map[string]any{
		"error":   "rate_limit_exceeded",
		"message": "Rate limit exceeded. Please try again later.",
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Pinger.Ping(ctx); err != nil {
			middleware.LoggerFrom(ctx).ErrorContext(ctx, "health check failed", "error", err)
			jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}
