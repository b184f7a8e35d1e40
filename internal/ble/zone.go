package ble

import (
	"context"
	"time"

	"github.com/banshee-data/presence.report/internal/monitoring"
)

// Zone is the coarse binary presence classification. The downstream
// presence system only understands home/not_home, so that is all we
// classify; finer placement lives in the area fields.
type Zone string

const (
	ZoneUnknown Zone = ""
	ZoneHome    Zone = "home"
	ZoneNotHome Zone = "not_home"
)

// classifyZone returns home when the device was seen strictly less than
// timeout ago. The boundary is exclusive: a device last seen exactly at
// the timeout is not_home. A zero lastSeen (no stamped sighting yet) is
// maximally stale and always classifies as not_home.
func classifyZone(lastSeen, now time.Time, timeout time.Duration) Zone {
	if now.Sub(lastSeen) < timeout {
		return ZoneHome
	}
	return ZoneNotHome
}

// PresenceUpdate is one notification to the presence sink.
type PresenceUpdate struct {
	// DeviceID is the synthetic stable identifier (see TrackerID), not
	// the bare hardware address.
	DeviceID string `json:"dev_id"`

	// HostName is the device's preferred display name.
	HostName string `json:"host_name"`

	Zone Zone `json:"location_name"`

	// Diagnostics beyond what the original notification carried.
	Address  string   `json:"address"`
	AreaID   string   `json:"area_id,omitempty"`
	Distance *float64 `json:"distance_m,omitempty"`
	TickID   string   `json:"tick_id,omitempty"`
}

// PresenceSink receives presence updates for tracked devices. The sink
// may do asynchronous I/O; it is one of the two suspension points of a
// tick (the other is the snapshot fetch).
type PresenceSink interface {
	See(ctx context.Context, update PresenceUpdate) error
}

// SinkFunc adapts a function to the PresenceSink interface.
type SinkFunc func(ctx context.Context, update PresenceUpdate) error

// See implements PresenceSink.
func (f SinkFunc) See(ctx context.Context, update PresenceUpdate) error {
	return f(ctx, update)
}

// LogSink is a PresenceSink that writes updates to the package logger.
type LogSink struct{}

// See implements PresenceSink.
func (LogSink) See(_ context.Context, u PresenceUpdate) error {
	monitoring.Logf("presence: %s (%s) is %s", u.DeviceID, u.HostName, u.Zone)
	return nil
}

// MultiSink fans one update out to several sinks. A failing sink does
// not stop delivery to the others; the first error is returned.
type MultiSink []PresenceSink

// See implements PresenceSink.
func (m MultiSink) See(ctx context.Context, u PresenceUpdate) error {
	var firstErr error
	for _, s := range m {
		if err := s.See(ctx, u); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
