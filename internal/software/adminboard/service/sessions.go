package service

import (
	"context"
	"strconv"

	"ride-coordinator/internal/ports"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// GetLiveSessions returns a page of signed-in accounts.
func (service *adminService) GetLiveSessions(ctx context.Context, page, pageSize string) (ports.LiveSessionsResult, error) {
	// convert page and pageSize to integers with fallback defaults
	pageInt, err := strconv.Atoi(page)
	if err != nil || pageInt < 1 {
		pageInt = 1
	}
	sizeInt, err := strconv.Atoi(pageSize)
	if err != nil || sizeInt < 1 {
		sizeInt = defaultPageSize
	}
	sizeInt = min(sizeInt, maxPageSize)

	if err := ctx.Err(); err != nil {
		return ports.LiveSessionsResult{}, err
	}

	all := service.sessions.Sessions()
	res := ports.LiveSessionsResult{
		Sessions:   []ports.LiveSession{},
		TotalCount: len(all),
		Page:       pageInt,
		PageSize:   sizeInt,
	}

	offset := (pageInt - 1) * sizeInt
	if offset >= len(all) {
		return res, nil
	}
	for _, c := range all[offset:min(offset+sizeInt, len(all))] {
		state := c.Snapshot()
		if state.Account == nil {
			continue
		}
		row := ports.LiveSession{
			AccountID: state.Account.ID,
			Name:      state.Account.Name,
			Role:      state.Account.Role.String(),
			Demo:      state.Demo,
			Version:   c.Version(),
		}
		if state.Account.Role.IsDriver() {
			row.DriverStatus = state.Driver.Status.String()
			if cur := state.Driver.CurrentOrder; cur != nil {
				row.CurrentOrderID = cur.ID
				row.OrderStatus = cur.Status.String()
			}
		}
		res.Sessions = append(res.Sessions, row)
	}
	return res, nil
}
