package ble

import "sync"

// Registry is the address-keyed store of all known devices. Lookups
// normalize the address first, so any casing or separator style of the
// same hardware address resolves to one record.
//
// The registry guards only its own map. Mutation of the Device records
// themselves is serialized by the tracker's per-tick lock: one tick owns
// exclusive write access, and the diagnostic dump takes the same lock.
type Registry struct {
	mu      sync.RWMutex
	devices map[string]*Device
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{devices: make(map[string]*Device)}
}

// Get looks up a device without creating it. The second return reports
// whether the address is known.
func (r *Registry) Get(address string) (*Device, bool) {
	key := NormalizeAddress(address)
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[key]
	return d, ok
}

// GetOrCreate returns the device record for address, creating a
// zero-initialized one on first reference. Repeated calls with
// equivalent addresses return the identical record with no side effect.
func (r *Registry) GetOrCreate(address string) *Device {
	key := NormalizeAddress(address)
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.devices[key]; ok {
		return d
	}
	d := newDevice(key)
	r.devices[key] = d
	return d
}

// Devices returns a snapshot slice of all known devices.
func (r *Registry) Devices() []*Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, d)
	}
	return out
}

// Len reports the number of known devices.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// Remove drops the record for address, if present. Used by the eviction
// pass; the tracker never removes scanners or tracked devices.
func (r *Registry) Remove(address string) {
	key := NormalizeAddress(address)
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.devices, key)
}
