package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/scidatahub/platform/internal/api/handlers"
	"github.com/scidatahub/platform/internal/auth"
	"github.com/scidatahub/platform/internal/config"
	"github.com/scidatahub/platform/internal/metrics"
	"github.com/scidatahub/platform/internal/middleware"
	"github.com/scidatahub/platform/internal/models"
	"github.com/scidatahub/platform/internal/services"
)

type RouterDeps struct {
	Cfg       config.Config
	Tokens    *auth.TokenManager
	UserSvc   *services.UserService
	SubSvc    *services.SubmissionService
	ReviewSvc *services.ReviewService
}

func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.RateLimit(deps.Cfg.RateRPS), middleware.HTTPMetrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	// health & metrics
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", metrics.Handler())

	authH := handlers.NewAuthHandler(deps.UserSvc)
	dataH := handlers.NewDataHandler(deps.SubSvc)
	reviewH := handlers.NewReviewHandler(deps.ReviewSvc)
	authMW := middleware.NewAuthMiddleware(deps.Tokens)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authH.Register)
			r.Post("/login", authH.Login)
			r.Post("/verify", authH.Verify)

			r.Group(func(r chi.Router) {
				r.Use(authMW.Auth)
				r.Get("/profile/{userId}", authH.Profile)
				r.Put("/profile/{userId}", authH.UpdateProfile)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequirePermission(models.PermManageUsers))
					r.Get("/users", authH.ListUsers)
					r.Put("/users/{id}/deactivate", authH.Deactivate)
				})
			})
		})

		r.Route("/data", func(r chi.Router) {
			r.Post("/submit", dataH.Submit)
			r.Get("/submissions", dataH.List)
			r.Get("/submissions/{id}", dataH.Get)
			r.Get("/stats", dataH.Stats)
			r.Get("/export", dataH.Export)

			r.Group(func(r chi.Router) {
				r.Use(authMW.Auth)
				r.Put("/submissions/{id}", dataH.Update)
				r.Delete("/submissions/{id}", dataH.Delete)
			})
		})

		r.Route("/review", func(r chi.Router) {
			r.Use(authMW.Auth, middleware.RequirePermission(models.PermReviewSubmission))
			r.Get("/pending", reviewH.Pending)
			r.Post("/assign/{submissionId}", reviewH.Assign)
			r.Post("/submit/{submissionId}", reviewH.Submit)
			r.Post("/release/{submissionId}", reviewH.Release)
			r.Post("/batch", reviewH.Batch)
			r.Get("/reviewed/{reviewerId}", reviewH.Reviewed)
			r.Get("/stats", reviewH.Stats)
			r.Get("/submission/{submissionId}", reviewH.Detail)
		})
	})

	return r
}
