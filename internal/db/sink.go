package db

import (
	"context"

	"github.com/banshee-data/presence.report/internal/ble"
)

// PresenceRecorder is a ble.PresenceSink that appends every update to
// the presence_events table.
type PresenceRecorder struct {
	db *DB
}

// NewPresenceRecorder returns a recorder writing to db.
func NewPresenceRecorder(db *DB) *PresenceRecorder {
	return &PresenceRecorder{db: db}
}

// See implements ble.PresenceSink.
func (r *PresenceRecorder) See(_ context.Context, u ble.PresenceUpdate) error {
	return r.db.RecordPresenceEvent(PresenceEvent{
		TickID:   u.TickID,
		DeviceID: u.DeviceID,
		HostName: u.HostName,
		Zone:     string(u.Zone),
		Address:  u.Address,
		AreaID:   u.AreaID,
		Distance: u.Distance,
	})
}
