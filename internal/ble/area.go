package ble

import "encoding/json"

// AreaNames is the result of resolving an area id to human names. The
// mapping is usually one-to-one but some directories yield several names
// for one id; rather than failing, the raw multi-value result is kept.
type AreaNames struct {
	Names []string
}

// Single returns the name when the resolution was unambiguous.
func (a AreaNames) Single() (string, bool) {
	if len(a.Names) == 1 {
		return a.Names[0], true
	}
	return "", false
}

// IsZero reports whether no name was resolved.
func (a AreaNames) IsZero() bool { return len(a.Names) == 0 }

// MarshalJSON emits null for unset, a bare string for the unambiguous
// case, and an array otherwise, matching the diagnostic dump format.
func (a AreaNames) MarshalJSON() ([]byte, error) {
	switch len(a.Names) {
	case 0:
		return []byte("null"), nil
	case 1:
		return json.Marshal(a.Names[0])
	default:
		return json.Marshal(a.Names)
	}
}

// UnmarshalJSON accepts the same three shapes MarshalJSON produces.
func (a *AreaNames) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		a.Names = nil
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		a.Names = []string{single}
		return nil
	}
	return json.Unmarshal(data, &a.Names)
}

// AreaNamer resolves an area id to display names.
type AreaNamer interface {
	AreaNames(areaID string) AreaNames
}

// StaticAreas is an AreaNamer backed by a fixed id→names map, typically
// from the config file's areas section.
type StaticAreas map[string][]string

// AreaNames implements AreaNamer.
func (s StaticAreas) AreaNames(areaID string) AreaNames {
	return AreaNames{Names: s[areaID]}
}

// resolveArea assigns device's area from its closest scanner inside
// maxRadius metres (strict less-than). Scanners are visited in the
// device's sorted-address order, and on equal distances the first one
// visited wins. With no qualifying scanner the area fields are cleared.
func resolveArea(device *Device, maxRadius float64, namer AreaNamer) {
	var closest *Observation
	for _, addr := range device.ScannerAddresses() {
		obs := device.Scanners[addr]
		if obs.Distance >= maxRadius {
			continue
		}
		if closest == nil || obs.Distance < closest.Distance {
			closest = obs
		}
	}

	if closest == nil {
		device.clearArea()
		return
	}

	device.AreaID = closest.AreaID
	device.AreaName = namer.AreaNames(closest.AreaID)
	dist := closest.Distance
	device.AreaDistance = &dist
}
