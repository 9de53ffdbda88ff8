package repository

import (
	"context"

	"github.com/iliyamo/match-session-planner/internal/model"
)

// Store is the persistence contract used by the session service.
// LoadAll returns the current sessions and attendances; SaveAll replaces
// both collections in one atomic step.  Implementations must give
// read-after-write consistency within a single process.
type Store interface {
	LoadAll(ctx context.Context) (model.Snapshot, error)
	SaveAll(ctx context.Context, snap model.Snapshot) error
}

// normalize replaces nil collections with empty ones so encoded
// snapshots always carry both arrays.
func normalize(snap model.Snapshot) model.Snapshot {
	if snap.Sessions == nil {
		snap.Sessions = []model.Session{}
	}
	if snap.Attendances == nil {
		snap.Attendances = []model.Attendance{}
	}
	return snap
}
