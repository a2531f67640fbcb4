package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/goteo-dev/goteo/backend/internal/setup"
	mw "github.com/goteo-dev/goteo/shared/middleware"
	"github.com/goteo-dev/goteo/shared/middleware/metrics"
	rl "github.com/goteo-dev/goteo/shared/middleware/ratelimiter"
)

// New creates the chi router with all the routes.
func New(deps *setup.Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.RequestId)
	r.Use(chimw.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(chimw.Compress(5))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.Public.CorsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", mw.RequestIdHeader},
		ExposedHeaders:   []string{mw.RequestIdHeader},
		AllowCredentials: true,
	}))
	r.Use(mw.SecurityHeaders(deps.Config.Public.Https))

	h := deps.Handler
	authMw := deps.AuthMiddleware

	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		// Readable by anyone; a valid token widens what private messages show.
		r.Group(func(r chi.Router) {
			r.Use(authMw.OptionalAuth())
			r.Use(mw.RateLimit(rl.PerMinute(600), mw.ViewerIdentity))

			r.Get("/matchers/{matcher}", h.GetMatcher)
			r.Get("/matchers/{matcher}/users", h.GetMatcherUsers)
			r.Get("/matchers/{matcher}/projects", h.GetMatcherProjects)

			r.Get("/projects/{project}/matchers", h.GetProjectMatchers)
			r.Get("/projects/{project}/threads", h.ListThreads)
			r.Get("/projects/{project}/messengers", h.GetMessengers)
			r.Get("/users/{user}/messaged", h.GetMessaged)

			r.Get("/messages/{message}", h.GetMessage)
			r.Get("/messages/{message}/responses", h.GetResponses)
		})

		r.Group(func(r chi.Router) {
			r.Use(authMw.NeedAuth())
			r.Use(mw.RateLimit(rl.PerMinute(20), mw.ViewerIdentity))

			r.Post("/messages", h.CreateMessage)
			r.Get("/messages/{message}/recipients", h.GetRecipients)
			r.Put("/messages/{message}/recipients", h.SetRecipients)
			r.Get("/me/threads", h.GetMyThreads)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(authMw.AdminOnly())

			r.Put("/messages/{message}/translations/{lang}", h.SaveTranslation)
			r.Delete("/messages/{message}", h.DeleteMessage)

			r.Put("/matchers/{matcher}", h.SaveMatcher)
			r.Post("/matchers/{matcher}/users", h.AddMatcherUsers)
			r.Delete("/matchers/{matcher}/users", h.RemoveMatcherUsers)
			r.Put("/matchers/{matcher}/users/{user}/pool", h.SetMatcherUserPool)
			r.Post("/matchers/{matcher}/projects", h.AddMatcherProjects)
			r.Delete("/matchers/{matcher}/projects", h.RemoveMatcherProjects)
			r.Put("/matchers/{matcher}/projects/{project}/status", h.SetMatcherProjectStatus)
		})
	})

	return r
}
