package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/upb/ep-records/app"
	"github.com/upb/ep-records/middleware"
	"github.com/upb/ep-records/models"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware. SocketAddr must see RemoteAddr before RealIP rewrites it.
	r.Use(chimw.RequestID)
	r.Use(middleware.SocketAddr)
	if deps.Config.Auth.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(deps.Config.Server.RequestTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", deps.Config.Auth.TokenHeader},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", deps.HealthHandler.HandleHealth)
	r.Get("/readyz", deps.HealthHandler.HandleReadiness)

	staff := deps.Gateway.RequireRoles(models.StaffRoles...)
	everyone := deps.Gateway.RequireRoles(models.AllRoles...)
	apprenticeReaders := deps.Gateway.RequireRoles(append(append([]models.Role(nil), models.StaffRoles...), models.RoleInstructorOwner)...)

	principals := deps.PrincipalHandler

	r.Route("/api/v1", func(r chi.Router) {
		r.With(everyone).Get("/me", deps.AuthHandler.HandleMe)

		r.Route("/users", func(r chi.Router) {
			r.Post("/login", deps.AuthHandler.HandleStaffLogin)
			r.Group(func(r chi.Router) {
				r.Use(staff)
				r.Get("/", principals.HandleList(models.KindStaffUser))
				r.Put("/{id}/activate", principals.HandleSetStatus(models.KindStaffUser, models.StatusActive))
				r.Put("/{id}/deactivate", principals.HandleSetStatus(models.KindStaffUser, models.StatusInactive))
			})
		})

		r.Route("/instructors", func(r chi.Router) {
			r.Post("/login", deps.AuthHandler.HandleInstructorLogin)
			r.Group(func(r chi.Router) {
				r.Use(staff)
				r.Get("/", principals.HandleList(models.KindInstructor))
				r.Put("/{id}/activate", principals.HandleSetStatus(models.KindInstructor, models.StatusActive))
				r.Put("/{id}/deactivate", principals.HandleSetStatus(models.KindInstructor, models.StatusInactive))
			})
		})

		r.Route("/apprentices", func(r chi.Router) {
			r.Post("/login", deps.AuthHandler.HandleApprenticeLogin)
			r.With(apprenticeReaders).Get("/", principals.HandleList(models.KindApprentice))
			r.Group(func(r chi.Router) {
				r.Use(staff)
				r.Put("/{id}/activate", principals.HandleSetStatus(models.KindApprentice, models.StatusActive))
				r.Put("/{id}/deactivate", principals.HandleSetStatus(models.KindApprentice, models.StatusInactive))
			})
		})

		r.Route("/logs", func(r chi.Router) {
			r.Use(staff)
			r.Get("/", deps.AuditLogHandler.HandleList)
			r.Get("/filter", deps.AuditLogHandler.HandleFilter)
			r.Get("/{id}", deps.AuditLogHandler.HandleGet)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not_found","message":"endpoint not found"}`))
	})

	return r
}
