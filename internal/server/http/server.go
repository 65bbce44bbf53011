// Package httpserver provides the HTTP REST API server for the lab manager service.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/helixir/labmanager-service/internal/database"
	"github.com/helixir/labmanager-service/internal/domain"
	"github.com/helixir/labmanager-service/internal/export"
	"github.com/helixir/labmanager-service/internal/observability"
	"github.com/helixir/labmanager-service/internal/repository"
)

// PersonService is the person API used by the handlers.
type PersonService interface {
	GetAllPersons(ctx context.Context) ([]*domain.Person, error)
	GetPerson(ctx context.Context, id int) (*domain.Person, error)
	CreatePerson(ctx context.Context, firstName, lastName, email string) (int, error)
	UpdatePerson(ctx context.Context, id int, firstName, lastName, email string) error
	RemovePerson(ctx context.Context, id int) error
	FindIDByName(ctx context.Context, firstName, lastName string) (int, error)
	FindBySimilarName(ctx context.Context, firstName, lastName string) (*domain.Person, error)
	ExtractPersonsFrom(ctx context.Context, authorText string) ([]*domain.Person, error)
	ComputeDuplicateClusters(ctx context.Context) ([]domain.SimilarityCluster, error)
}

// PublicationService is the publication API used by the handlers.
type PublicationService interface {
	ListPublications(ctx context.Context, filter repository.PublicationFilter) ([]*domain.Publication, int64, error)
	GetPublication(ctx context.Context, id int) (*domain.Publication, error)
	RemovePublication(ctx context.Context, id int) error
	ImportPublications(ctx context.Context, bibtex string) ([]int, error)
	ExportBibTeX(ctx context.Context, ids []int) ([]byte, error)
	ExportHTML(ctx context.Context, ids []int, cfg export.Config) ([]byte, error)
	ExportODT(ctx context.Context, ids []int, cfg export.Config) ([]byte, error)
}

// AuthorshipService is the authorship API used by the handlers.
type AuthorshipService interface {
	AddAuthorship(ctx context.Context, personID, pubID int) (*domain.Authorship, error)
	GetAuthorsFor(ctx context.Context, pubID int) ([]*domain.Person, error)
}

// HealthChecker reports database health. *database.DB implements it.
type HealthChecker interface {
	Health(ctx context.Context) database.HealthStatus
}

var _ HealthChecker = (*database.DB)(nil)

// Services groups the services exposed over HTTP.
type Services struct {
	Persons      PersonService
	Publications PublicationService
	Authorships  AuthorshipService
}

// Server is the HTTP REST API server.
type Server struct {
	router        chi.Router
	httpServer    *http.Server
	services      Services
	health        HealthChecker
	validate      *validator.Validate
	importLimiter *rate.Limiter
	maxImportSize int64
	exportConfig  export.Config
	metrics       *observability.Metrics
	logger        zerolog.Logger
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// ImportRateLimit is the number of imports allowed per second.
	ImportRateLimit float64
	// ImportBurst is the number of imports allowed in a burst.
	ImportBurst int
	// MaxImportBytes caps the size of an uploaded BibTeX document.
	MaxImportBytes int64

	// Export holds the document defaults applied to HTML and ODT exports.
	Export export.Config
}

// NewServer creates a new HTTP server with all dependencies.
func NewServer(
	cfg Config,
	services Services,
	health HealthChecker,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Server {
	if cfg.ImportRateLimit <= 0 {
		cfg.ImportRateLimit = 1
	}
	if cfg.ImportBurst <= 0 {
		cfg.ImportBurst = 1
	}
	if cfg.MaxImportBytes <= 0 {
		cfg.MaxImportBytes = defaultMaxImportBytes
	}

	s := &Server{
		services:      services,
		health:        health,
		validate:      newValidator(),
		importLimiter: rate.NewLimiter(rate.Limit(cfg.ImportRateLimit), cfg.ImportBurst),
		maxImportSize: cfg.MaxImportBytes,
		exportConfig:  cfg.Export,
		metrics:       metrics,
		logger:        logger.With().Str("component", "http-server").Logger(),
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(correlationIDMiddleware)
	r.Use(s.accessLogMiddleware)

	// Health endpoints
	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/persons", func(r chi.Router) {
			r.Get("/", s.listPersons)
			r.Post("/", s.createPerson)
			r.Get("/duplicates", s.getDuplicateClusters)
			r.Get("/lookup", s.lookupPerson)
			r.Post("/extract", s.extractPersons)
			r.Get("/{personID}", s.getPerson)
			r.Put("/{personID}", s.updatePerson)
			r.Delete("/{personID}", s.removePerson)
		})

		r.Route("/publications", func(r chi.Router) {
			r.Get("/", s.listPublications)
			r.With(s.importRateLimitMiddleware).Post("/import", s.importPublications)
			r.Post("/export/{format}", s.exportPublications)
			r.Get("/{publicationID}", s.getPublication)
			r.Delete("/{publicationID}", s.removePublication)
			r.Get("/{publicationID}/authors", s.getPublicationAuthors)
			r.Post("/{publicationID}/authors", s.addPublicationAuthor)
		})
	})

	return r
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readinessHandler reports ready only when the database is healthy.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	health := s.health.Health(r.Context())
	if health.Status != database.StatusHealthy {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "not_ready",
			"database": health.Status,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ready",
		"database": database.StatusHealthy,
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Best-effort log; headers already sent.
		_ = err
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
