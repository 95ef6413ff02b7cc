package sim

import (
	"time"

	"arena/server/internal/attrs"
	"arena/server/internal/entity"
)

// EntityState is the outward view of one synced entity.
type EntityState struct {
	ID    string
	Attrs attrs.Values
}

// Created announces a player spawned for a session.
type Created struct {
	Session string
	State   EntityState
}

// Frame is everything the transport needs after one tick.
type Frame struct {
	Tick    uint64
	Now     time.Time
	Created []Created
	Removed []string
	// Changes lists entities whose attributes changed this tick. x, y and
	// image are always present for a listed entity.
	Changes []EntityState
	// Full is the complete world state, non-nil exactly when requested.
	Full []EntityState
}

// alwaysSynced are carried in every incremental entry.
var alwaysSynced = []string{entity.AttrX, entity.AttrY, entity.AttrImage}

func incrementalState(e *entity.Entity, changed attrs.Values) EntityState {
	values := make(attrs.Values, len(changed)+len(alwaysSynced))
	for name, value := range changed {
		values[name] = value
	}
	for _, name := range alwaysSynced {
		if value, ok := e.Attrs.Get(name); ok {
			values[name] = value
		}
	}
	return EntityState{ID: e.ID(), Attrs: values}
}

func fullState(e *entity.Entity) EntityState {
	return EntityState{ID: e.ID(), Attrs: e.Attrs.Snapshot()}
}
