package service

import (
	"time"

	"ride-coordinator/internal/coordinator"
	"ride-coordinator/internal/general/logger"
	"ride-coordinator/internal/ports"
)

// LiveSessions is the slice of the session registry the admin board reads.
type LiveSessions interface {
	Len() int
	Sessions() []*coordinator.Coordinator
}

// adminService combines stored aggregates with the in-memory session view.
type adminService struct {
	backend  ports.AdminBackend
	sessions LiveSessions
	log      *logger.Logger
	now      func() time.Time
}

// NewAdminService creates a new instance of the AdminService with the provided dependencies.
func NewAdminService(backend ports.AdminBackend, sessions LiveSessions, log *logger.Logger) ports.AdminService {
	return &adminService{
		backend:  backend,
		sessions: sessions,
		log:      log,
		now:      time.Now,
	}
}
