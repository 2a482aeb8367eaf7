package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/monkeyscms/monkeys/internal/database"
)

// TypeHandler is the route surface of a type-registry handler. Both the
// content-type and block-type registries expose the same operations.
type TypeHandler interface {
	List(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Create(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
	AttachField(w http.ResponseWriter, r *http.Request)
	DetachField(w http.ResponseWriter, r *http.Request)
}

// EntryHandler is the route surface of the content entry handler.
type EntryHandler interface {
	List(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Create(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
}

// AuthHandler defines the authentication HTTP handlers, allowing the router
// to be decoupled from the concrete auth implementation.
type AuthHandler interface {
	Login(w http.ResponseWriter, r *http.Request)
	Me(w http.ResponseWriter, r *http.Request)
}

// AuditHandler serves read access to the audit log.
type AuditHandler interface {
	List(w http.ResponseWriter, r *http.Request)
}

// Dependencies holds all injectable dependencies used by route handlers.
type Dependencies struct {
	DB             *database.DB
	DevMode        bool
	AuthHandler    AuthHandler
	AuthMiddleware func(http.Handler) http.Handler
	ContentTypes   TypeHandler
	BlockTypes     TypeHandler
	Entries        EntryHandler
	Audit          AuditHandler
}

// NewRouter builds the chi router with the full route tree and middleware
// stack.
func NewRouter(deps Dependencies) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware(deps.DevMode))

	r.Get("/health", healthHandler(deps))

	// --- Admin API ---
	r.Route("/admin/api", func(r chi.Router) {
		r.Use(requireJSON)

		// Public auth routes (no auth middleware required).
		r.Post("/auth/login", deps.AuthHandler.Login)

		// Protected routes - require valid JWT.
		r.Group(func(r chi.Router) {
			if deps.AuthMiddleware != nil {
				r.Use(deps.AuthMiddleware)
			}

			r.Get("/auth/me", deps.AuthHandler.Me)

			// Type registries: content types and block types share the same
			// route shape.
			mountTypeRoutes(r, "/content-types", deps.ContentTypes)
			mountTypeRoutes(r, "/block-types", deps.BlockTypes)

			// Content entry CRUD.
			r.Route("/content/{type}", func(r chi.Router) {
				r.Get("/", deps.Entries.List)
				r.Post("/", deps.Entries.Create)
				r.Get("/{id}", deps.Entries.Get)
				r.Patch("/{id}", deps.Entries.Update)
				r.Delete("/{id}", deps.Entries.Delete)
			})

			// Audit log.
			r.Get("/audit-log", deps.Audit.List)
		})
	})

	r.NotFound(notFoundHandler)

	return r
}

// mountTypeRoutes mounts the shared type-registry route tree at prefix.
func mountTypeRoutes(r chi.Router, prefix string, h TypeHandler) {
	r.Route(prefix, func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{name}", h.Get)
		r.Patch("/{name}", h.Update)
		r.Delete("/{name}", h.Delete)
		r.Post("/{name}/fields", h.AttachField)
		r.Delete("/{name}/fields/{identifier}", h.DetachField)
	})
}

// corsMiddleware returns a CORS middleware configured for the application.
// In dev mode the usual local frontend origins are allowed; in production
// only same-origin requests are permitted.
func corsMiddleware(devMode bool) func(http.Handler) http.Handler {
	var allowedOrigins []string
	if devMode {
		allowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}

// healthHandler reports the health status of the application, including a
// database connectivity check.
func healthHandler(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.DB.Health(r.Context()); err != nil {
			Error(w, http.StatusServiceUnavailable, "DB_UNHEALTHY", "database health check failed", nil)
			return
		}
		JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// notFoundHandler returns a JSON 404 so unmatched paths never get the
// default plain-text body.
func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	Error(w, http.StatusNotFound, "NOT_FOUND", "The requested endpoint does not exist", nil)
}
