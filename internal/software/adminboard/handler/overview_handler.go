package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// --- Handler: GET /admin/overview ---

func (handler *AdminHTTPHandler) handleOverview(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	overview, err := handler.svc.GetSystemOverview(ctxWithTimeout)
	if err != nil {
		// distinguish DB failures from the rest
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			handler.httpError(ctxWithTimeout, w, http.StatusBadGateway, "database error", err)
			return
		}
		handler.httpError(ctxWithTimeout, w, http.StatusBadGateway, "failed to fetch system overview", err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, overview)
}
