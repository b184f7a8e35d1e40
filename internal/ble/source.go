package ble

import (
	"context"
	"time"
)

// Sighting is one scanner's report of a device within the current
// snapshot: which receiver saw it, how loud, and when.
type Sighting struct {
	ScannerAddress string

	// Adapter is the receiving radio on the scanner (hci0 and the
	// like); Source is the bridge's own identifier for the reporting
	// path. Either may be empty.
	Adapter string
	Source  string

	RSSI float64
	TxPower        *float64
	ServiceData    map[string][]byte

	// Stamp is when the scanner saw the advertisement; zero when the
	// reporting path keeps no timestamps.
	Stamp time.Time
}

// Advertisement is one device's record in a snapshot: identity fields
// learned from its advertisements plus the per-scanner sightings.
type Advertisement struct {
	Address      string
	Name         string
	LocalName    string
	Manufacturer string
	Connectable  bool
	Sightings    []Sighting
}

// Source supplies the per-tick snapshot of currently-seen devices. A
// Snapshot error fails the whole tick before any registry mutation, so
// the registry keeps its last good state.
type Source interface {
	Snapshot(ctx context.Context) ([]Advertisement, error)
}
