package api

import (
	"net/http"
	"vanisher/api/router/handlers"
	"vanisher/core"
	"vanisher/logger"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates and configures the API router. All registered paths
// are relative to the /api base path.
func NewRouter(v *core.Vanisher, lister core.ExclusionLister) http.Handler {
	router := chi.NewRouter()

	handlers.RegisterHealthRoutes(router)
	handlers.RegisterRuleRoutes(router, v, lister)
	handlers.RegisterIgnoreRoutes(router, v)
	handlers.RegisterTrafficRoutes(router)

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		logger.Error("API SUB-ROUTER CATCH-ALL: Unhandled route relative to /api: %s %s", r.Method, r.URL.Path)
		http.NotFound(w, r)
	})

	return router
}
