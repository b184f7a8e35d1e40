package ble

import (
	"sort"
	"time"
)

// Device is the aggregate record for a single bluetooth address known to
// the tracker. "Device" covers both transmitters we locate (beacons,
// watches, thermometers) and the fixed receivers that report sightings:
// a scanner gets a Device record of its own, flagged with IsScanner.
//
// Records are created on first reference and live for the life of the
// process unless the optional eviction horizon removes them.
type Device struct {
	// Address is the canonical (normalized) address and the registry key.
	Address string

	// Display names. Name and LocalName are learned from advertisements
	// on a first-non-empty-wins basis; for scanners, Name comes from the
	// topology directory. PrefName is the derived preferred display name.
	Name         string
	LocalName    string
	Manufacturer string
	PrefName     string

	Connectable bool

	// IsScanner marks fixed receivers identified via the topology
	// directory. Scanner devices are excluded from area resolution.
	IsScanner bool

	// Area placement derived by the area resolver. Unset (empty/nil)
	// unless some scanner currently estimates the device inside the
	// configured radius.
	AreaID       string
	AreaName     AreaNames
	AreaDistance *float64 // metres to the winning scanner

	// Zone is the coarse presence classification, derived for tracked
	// devices each tick.
	Zone Zone

	// Tracked marks allow-list membership: whether this device
	// participates in presence notification.
	Tracked bool

	// LastSeen is the maximum observation stamp across all current
	// scanner observations. Zero when no stamped sighting exists.
	LastSeen time.Time

	// Scanners maps scanner address to that scanner's current
	// observation of this device.
	Scanners map[string]*Observation
}

func newDevice(address string) *Device {
	return &Device{
		Address:  address,
		Scanners: make(map[string]*Observation),
	}
}

// SetObservation stores obs under its scanner address, replacing any
// previous observation from that scanner, and advances LastSeen if the
// new stamp is later.
func (d *Device) SetObservation(obs *Observation) {
	d.Scanners[obs.ScannerAddress] = obs
	if obs.Stamp.After(d.LastSeen) {
		d.LastSeen = obs.Stamp
	}
}

// ScannerAddresses returns the addresses of scanners with a current
// observation of this device in sorted order. This is the documented
// iteration order for area resolution, making distance ties
// deterministic.
func (d *Device) ScannerAddresses() []string {
	addrs := make([]string, 0, len(d.Scanners))
	for addr := range d.Scanners {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)
	return addrs
}

// clearArea resets the derived area placement to unset.
func (d *Device) clearArea() {
	d.AreaID = ""
	d.AreaName = AreaNames{}
	d.AreaDistance = nil
}
