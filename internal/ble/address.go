// Package ble implements the device registry, distance estimation and
// area/zone resolution for BLE presence tracking. Fixed receivers
// ("scanners") report sightings of advertising devices; from those
// per-scanner signal strengths we estimate distances, place each device
// in the area of its nearest qualifying scanner, and classify a coarse
// home/not_home zone from sighting recency.
package ble

import "strings"

// Namespace prefixes generated device names and the synthetic ids sent
// to the presence sink, keeping them distinct from the sink's own
// MAC-derived identifiers.
const Namespace = "presence"

// NormalizeAddress returns the canonical form of a device address:
// uppercase hex octets separated by colons. Any mix of case and of
// colon/dash/dot separators maps to the same key, and normalizing an
// already-canonical address is a no-op. Inputs that are not plain
// MAC-48 addresses (e.g. iBeacon UUIDs from some bridges) are uppercased
// verbatim so they still key consistently.
func NormalizeAddress(address string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ':', '-', '.', ' ':
			return -1
		}
		return r
	}, strings.TrimSpace(address))

	if len(cleaned) != 12 || !isHex(cleaned) {
		return strings.ToUpper(strings.TrimSpace(address))
	}

	var b strings.Builder
	b.Grow(17)
	for i := 0; i < 12; i += 2 {
		if i > 0 {
			b.WriteByte(':')
		}
		b.WriteString(strings.ToUpper(cleaned[i : i+2]))
	}
	return b.String()
}

func isHex(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

// Slug converts an address (or any identifier) to a lowercase
// underscore-separated token suitable for generated names and ids.
func Slug(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastUnderscore := false
	for _, r := range strings.ToLower(s) {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if isAlnum {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore && b.Len() > 0 {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// TrackerID derives the stable synthetic identifier used when notifying
// the presence sink about a device. It is deliberately prefixed rather
// than the bare MAC so it cannot collide with identifiers the sink
// derives from hardware addresses itself.
func TrackerID(address string) string {
	return Namespace + "_" + Slug(NormalizeAddress(address))
}
