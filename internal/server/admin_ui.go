package server

import "net/http"

// RegisterAdminRoutes exposes the route index for tooling. There is no
// HTML admin surface; clients render everything.
func RegisterAdminRoutes(mux *http.ServeMux, rr *RouteRegistry) {
	mux.HandleFunc("GET /_/admin/routes.json", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, rr.List())
	})
}
