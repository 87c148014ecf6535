package handler

import (
	"net/http"
)

// ----- Handler: GET /admin/health -----

func (handler *AdminHTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	handler.jsonResponse(r.Context(), w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "admin-board",
	})
}
