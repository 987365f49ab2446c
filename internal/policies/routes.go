package policies

import (
	"net/http"

	"github.com/covidamp/amp-backend/internal/middleware"
	"github.com/go-chi/chi/v5"
)

func SetupRoutes(adminKeyHash string) http.Handler {
	r := chi.NewRouter()

	// Public routes - read-only access to the policy dataset
	r.Get("/", ListPoliciesHandler)
	r.Post("/status/{geo_res}", PolicyStatusCountsHandler)
	r.Get("/status/{geo_res}/map", PolicyStatusMapHandler)

	// Admin routes - require the admin API key
	r.Group(func(r chi.Router) {
		r.Use(middleware.AdminKeyMiddleware(adminKeyHash))

		r.Post("/admin/cache/flush", FlushCacheHandler)
	})

	return r
}
