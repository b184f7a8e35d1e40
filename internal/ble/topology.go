package ble

// ScannerInfo describes a fixed receiver's installation: which area it
// lives in and its display name.
type ScannerInfo struct {
	AreaID string
	Name   string
}

// Topology is the external directory binding scanner addresses to their
// installation details. A sighting from a scanner the directory does not
// know is skipped (logged, non-fatal): without an area id the
// observation would be useless for placement.
type Topology interface {
	// Scanner returns the installation details for a scanner address.
	// The bool reports whether the directory knows the address.
	Scanner(address string) (ScannerInfo, bool)
}

// StaticTopology is a Topology backed by a fixed map, typically loaded
// from the config file's scanners section.
type StaticTopology struct {
	scanners map[string]ScannerInfo
}

// NewStaticTopology builds a StaticTopology, normalizing the map keys so
// lookups with any address style succeed.
func NewStaticTopology(scanners map[string]ScannerInfo) *StaticTopology {
	normalized := make(map[string]ScannerInfo, len(scanners))
	for addr, info := range scanners {
		normalized[NormalizeAddress(addr)] = info
	}
	return &StaticTopology{scanners: normalized}
}

// Scanner implements Topology.
func (t *StaticTopology) Scanner(address string) (ScannerInfo, bool) {
	info, ok := t.scanners[NormalizeAddress(address)]
	return info, ok
}
