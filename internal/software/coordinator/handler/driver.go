package handler

import (
	"net/http"
	"strings"

	"ride-coordinator/internal/domain/driver"
	"ride-coordinator/internal/domain/earnings"
	"ride-coordinator/internal/domain/order"
)

type statusRequest struct {
	Status string `json:"status"`
}

type locationRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type orderStatusRequest struct {
	// From is the status the client last saw. Empty advances from the
	// cached status.
	From string `json:"from,omitempty"`
}

type withdrawalRequest struct {
	Amount        int    `json:"amount"`
	BankAccount   string `json:"bank_account"`
	AccountHolder string `json:"account_holder"`
}

func (handler *CoordinatorHTTPHandler) handleDriverStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := handler.withReqID(r)
	defer cancel()

	_, c, ok := handler.session(ctx, w, r)
	if !ok {
		return
	}
	var req statusRequest
	if !handler.decodeJSON(ctx, w, r, &req) {
		return
	}
	next, err := driver.ParseStatus(req.Status)
	if err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "status must be offline or online", err)
		return
	}

	if err := c.UpdateDriverStatus(ctx, next); err != nil {
		handler.opError(ctx, w, err)
		return
	}
	handler.jsonResponse(ctx, w, http.StatusOK, c.Snapshot().Driver)
}

func (handler *CoordinatorHTTPHandler) handleLocation(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := handler.withReqID(r)
	defer cancel()

	_, c, ok := handler.session(ctx, w, r)
	if !ok {
		return
	}
	var req locationRequest
	if !handler.decodeJSON(ctx, w, r, &req) {
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "latitude and longitude are required", nil)
		return
	}

	if err := c.ReportLocation(ctx, *req.Latitude, *req.Longitude); err != nil {
		handler.opError(ctx, w, err)
		return
	}
	handler.jsonResponse(ctx, w, http.StatusOK, c.Snapshot().Driver)
}

// handleAvailable refreshes the available list and the current order.
func (handler *CoordinatorHTTPHandler) handleAvailable(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := handler.withReqID(r)
	defer cancel()

	_, c, ok := handler.session(ctx, w, r)
	if !ok {
		return
	}
	available, err := c.Refresh(ctx)
	if err != nil {
		handler.opError(ctx, w, err)
		return
	}
	if available == nil {
		available = []*order.Order{}
	}
	handler.jsonResponse(ctx, w, http.StatusOK, map[string]any{
		"orders": available,
		"driver": c.Snapshot().Driver,
	})
}

func (handler *CoordinatorHTTPHandler) handleAccept(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := handler.withReqID(r)
	defer cancel()

	orderID := strings.TrimSpace(r.PathValue("order_id"))
	ctx = handler.logger.WithOrderID(ctx, orderID)

	_, c, ok := handler.session(ctx, w, r)
	if !ok {
		return
	}
	accepted, err := c.AcceptOrder(ctx, orderID)
	if err != nil {
		handler.opError(ctx, w, err)
		return
	}
	handler.jsonResponse(ctx, w, http.StatusOK, accepted)
}

func (handler *CoordinatorHTTPHandler) handleOrderStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := handler.withReqID(r)
	defer cancel()

	orderID := strings.TrimSpace(r.PathValue("order_id"))
	ctx = handler.logger.WithOrderID(ctx, orderID)

	_, c, ok := handler.session(ctx, w, r)
	if !ok {
		return
	}
	var req orderStatusRequest
	if r.ContentLength != 0 && !handler.decodeJSON(ctx, w, r, &req) {
		return
	}

	var (
		advanced *order.Order
		err      error
	)
	if strings.TrimSpace(req.From) == "" {
		advanced, err = c.Advance(ctx, orderID)
	} else {
		from, perr := order.ParseStatus(req.From)
		if perr != nil {
			handler.httpError(ctx, w, http.StatusBadRequest, "unknown order status", perr)
			return
		}
		advanced, err = c.UpdateOrderStatus(ctx, orderID, from)
	}
	if err != nil {
		handler.opError(ctx, w, err)
		return
	}
	handler.jsonResponse(ctx, w, http.StatusOK, advanced)
}

func (handler *CoordinatorHTTPHandler) handleDriverOrders(w http.ResponseWriter, r *http.Request) {
	handler.listOrders(w, r)
}

func (handler *CoordinatorHTTPHandler) handlePassengerRides(w http.ResponseWriter, r *http.Request) {
	handler.listOrders(w, r)
}

// listOrders serves the order history of either role, filtered by ?status=.
func (handler *CoordinatorHTTPHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := handler.withReqID(r)
	defer cancel()

	_, c, ok := handler.session(ctx, w, r)
	if !ok {
		return
	}
	var filter order.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, err := order.ParseStatus(raw)
		if err != nil {
			handler.httpError(ctx, w, http.StatusBadRequest, "unknown order status", err)
			return
		}
		filter = parsed
	}

	orders, err := c.LoadOrders(ctx, filter)
	if err != nil {
		handler.opError(ctx, w, err)
		return
	}
	if orders == nil {
		orders = []*order.Order{}
	}
	handler.jsonResponse(ctx, w, http.StatusOK, map[string]any{"orders": orders})
}

func (handler *CoordinatorHTTPHandler) handleEarnings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := handler.withReqID(r)
	defer cancel()

	_, c, ok := handler.session(ctx, w, r)
	if !ok {
		return
	}
	period, err := earnings.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "period must be today, week or month", err)
		return
	}

	snapshot, err := c.LoadEarnings(ctx, period)
	if err != nil {
		handler.opError(ctx, w, err)
		return
	}
	handler.jsonResponse(ctx, w, http.StatusOK, snapshot)
}

func (handler *CoordinatorHTTPHandler) handleWithdrawal(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := handler.withReqID(r)
	defer cancel()

	_, c, ok := handler.session(ctx, w, r)
	if !ok {
		return
	}
	var req withdrawalRequest
	if !handler.decodeJSON(ctx, w, r, &req) {
		return
	}

	withdrawal, err := c.RequestWithdrawal(ctx, req.Amount, req.BankAccount, req.AccountHolder)
	if err != nil {
		handler.opError(ctx, w, err)
		return
	}
	handler.jsonResponse(ctx, w, http.StatusCreated, withdrawal)
}
