package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Routes groups the handlers mounted by NewRouter
type Routes struct {
	Health  *HealthHandler
	OemRefs *OemRefHandler
	Admin   *AdminHandler
	Metrics http.Handler
}

func NewRouter(h Routes) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors)

	r.Get("/health", h.Health.Check)
	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics)
	}

	r.Route("/api/v1/oem-refs", func(r chi.Router) {
		r.Post("/filter", h.OemRefs.Filter)
		r.Post("/filter-by-prefixes", h.OemRefs.FilterByPrefixes)
		r.Get("/{typeId}/{gammeId}", h.OemRefs.ForVehicle)
	})

	r.Route("/admin/oem-cache", func(r chi.Router) {
		r.Get("/", h.Admin.CacheStats)
		r.Delete("/", h.Admin.ClearCache)
	})

	return r
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
