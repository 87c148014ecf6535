package handler

import (
	"context"
	"net/http"
	"time"
)

// --- Handler: GET /admin/sessions?page=X&page_size=Y ---

func (handler *AdminHTTPHandler) handleLiveSessions(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	query := r.URL.Query()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	sessions, err := handler.svc.GetLiveSessions(ctxWithTimeout, query.Get("page"), query.Get("page_size"))
	if err != nil {
		handler.httpError(ctxWithTimeout, w, http.StatusInternalServerError, "failed to list sessions", err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, sessions)
}
