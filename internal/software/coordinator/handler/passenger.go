package handler

import (
	"net/http"
	"strings"

	"ride-coordinator/internal/domain/geo"
)

type rideRequest struct {
	Pickup  geo.Place `json:"pickup"`
	Dropoff geo.Place `json:"dropoff"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (handler *CoordinatorHTTPHandler) handleRequestRide(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := handler.withReqID(r)
	defer cancel()

	_, c, ok := handler.session(ctx, w, r)
	if !ok {
		return
	}
	var req rideRequest
	if !handler.decodeJSON(ctx, w, r, &req) {
		return
	}

	created, err := c.RequestRide(ctx, req.Pickup, req.Dropoff)
	if err != nil {
		handler.opError(ctx, w, err)
		return
	}
	handler.jsonResponse(ctx, w, http.StatusCreated, created)
}

func (handler *CoordinatorHTTPHandler) handleCancelRide(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := handler.withReqID(r)
	defer cancel()

	orderID := strings.TrimSpace(r.PathValue("order_id"))
	ctx = handler.logger.WithOrderID(ctx, orderID)

	_, c, ok := handler.session(ctx, w, r)
	if !ok {
		return
	}
	var req cancelRequest
	if r.ContentLength != 0 && !handler.decodeJSON(ctx, w, r, &req) {
		return
	}

	cancelled, err := c.CancelRide(ctx, orderID, req.Reason)
	if err != nil {
		handler.opError(ctx, w, err)
		return
	}
	handler.jsonResponse(ctx, w, http.StatusOK, cancelled)
}
