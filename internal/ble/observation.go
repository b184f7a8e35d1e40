package ble

import "time"

// Observation records one scanner's most recent sighting of one device.
// A device holds at most one Observation per scanner; a newer sighting
// from the same scanner replaces the old one wholesale. Observations are
// never aged out: they persist until overwritten.
type Observation struct {
	// ScannerAddress is the canonical address of the scanner that made
	// the sighting. It is a key back to the scanner's own Device record,
	// not ownership of it.
	ScannerAddress string

	// ScannerName, Adapter and Source describe the reporting receiver
	// as known at construction time.
	ScannerName string
	Adapter     string
	Source      string

	// AreaID is snapshotted from the scanner's Device when the
	// observation is built. If the scanner later moves to a different
	// area, existing observations keep the old id.
	AreaID string

	RSSI    float64  // dBm
	TxPower *float64 // dBm, nil when the advertisement carried none

	// Distance is the estimated range in metres derived from RSSI.
	Distance float64

	// Stamp is when the scanner saw the advertisement. The zero value
	// means the timestamp is unknown (some local adapters keep no
	// history); it is treated as maximally stale, which is distinct
	// from "seen at process start".
	Stamp time.Time

	// ServiceData carries the advertisement's service data payloads
	// keyed by UUID, passed through unmodified for diagnostics.
	ServiceData map[string][]byte
}
