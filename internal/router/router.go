// Package router sets up the HTTP routes and middleware chain of the
// sebencms API. Every API route is served both at the root and under /api.
package router

import (
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"sebencms/internal/cache"
	"sebencms/internal/handlers"
	"sebencms/internal/metrics"
	"sebencms/internal/middleware"
)

// Handlers groups the handler sets the router dispatches to.
type Handlers struct {
	Taxonomy *handlers.Taxonomy
	Posts    *handlers.Posts
	Chatbot  *handlers.Chatbot
}

// Options configure the optional parts of the router.
type Options struct {
	CORSAllowedOrigins []string

	// Cache serves repeated listings from Valkey; nil disables it.
	Cache *cache.ResponseCache

	// LeadLimiter throttles chatbot submissions per client; nil disables it.
	LeadLimiter *middleware.RateLimiter

	// UploadDir is served under UploadURLPrefix when images are stored on
	// local disk. Leave empty when images live in object storage.
	UploadDir       string
	UploadURLPrefix string
}

// New creates the chi router with all middleware and routes wired up.
func New(h Handlers, opts Options) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(chimw.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.SecureHeaders)
	r.Use(metrics.Middleware)
	r.Use(corsHandler(opts.CORSAllowedOrigins))
	r.Use(chimw.Heartbeat("/ping"))

	r.Get("/health", healthHandler)
	r.Handle("/metrics", metrics.Handler())

	if opts.UploadDir != "" {
		prefix := "/" + strings.Trim(opts.UploadURLPrefix, "/")
		r.Handle(prefix+"/*", http.StripPrefix(prefix, http.FileServer(http.Dir(opts.UploadDir))))
	}

	routes := apiRoutes(h, opts)
	r.Group(routes)
	r.Route("/api", routes)

	return r
}

// corsHandler allows the configured origins with credentials. A "*" entry
// echoes back whatever origin the request carries.
func corsHandler(origins []string) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Cache", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if slices.Contains(origins, "*") {
		opts.AllowedOrigins = nil
		opts.AllowOriginFunc = func(*http.Request, string) bool { return true }
	}
	return cors.Handler(opts)
}

// apiRoutes registers the JSON API. Listings go through the response cache;
// writes through it clear the cache. Post detail by slug counts views, so
// it is never cached.
func apiRoutes(h Handlers, opts Options) func(r chi.Router) {
	cached := opts.Cache.Middleware

	return func(r chi.Router) {
		r.Route("/categories", func(r chi.Router) {
			r.With(cached).Get("/", h.Taxonomy.CategoryIndex)
			r.With(cached).Post("/", h.Taxonomy.CategoryStore)
		})

		r.Route("/tags", func(r chi.Router) {
			r.With(cached).Get("/", h.Taxonomy.TagIndex)
			r.With(cached).Post("/", h.Taxonomy.TagStore)
		})

		r.Route("/posts", func(r chi.Router) {
			r.With(cached).Get("/", h.Posts.Index)
			r.With(cached).Post("/", h.Posts.Store)
			r.Get("/by-id/{id}", h.Posts.ShowByID)
			r.Get("/{slug}", h.Posts.ShowBySlug)
			r.With(cached).Get("/{slug}/related", h.Posts.Related)
			r.With(cached).Put("/{id}", h.Posts.Update)
			r.With(cached).Delete("/{id}", h.Posts.Destroy)
		})

		r.Route("/chatbot", func(r chi.Router) {
			r.Get("/flow", h.Chatbot.Flow)
			if opts.LeadLimiter != nil {
				r.With(opts.LeadLimiter.Middleware).Post("/leads", h.Chatbot.SaveLead)
			} else {
				r.Post("/leads", h.Chatbot.SaveLead)
			}
			r.Get("/leads", h.Chatbot.Leads)
			r.Get("/leads/{id}", h.Chatbot.ShowLead)
		})
	}
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
