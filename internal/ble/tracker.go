package ble

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/presence.report/internal/monitoring"
	"github.com/banshee-data/presence.report/internal/timeutil"
)

// TrackerConfig holds the tunables for the per-tick update cycle.
type TrackerConfig struct {
	MaxAreaRadius    float64       // metres; strict upper bound for area assignment
	PresenceTimeout  time.Duration // staleness horizon for home/not_home
	RefPower         float64       // dBm at 1m, distance calibration
	Attenuation      float64       // path-loss attenuation factor
	TrackedAddresses []string      // allow-list for presence notification
	DeviceEvictAfter time.Duration // 0 = keep devices forever
}

// DefaultTrackerConfig returns the stock tunables.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		MaxAreaRadius:   3.0,
		PresenceTimeout: 60 * time.Second,
		RefPower:        DefaultRefPowerDbm,
		Attenuation:     DefaultAttenuationFactor,
	}
}

// TickStats summarizes one completed update cycle.
type TickStats struct {
	TickID       string
	Devices      int // devices in the snapshot
	Scanners     int // scanners known after the tick
	Observations int // observations stored this tick
	Skipped      int // sightings skipped (unknown scanner)
	Emitted      int // presence updates sent
	Duration     time.Duration
}

// Tracker owns the device registry and runs the update cycle: ingest a
// snapshot, refresh the scanner roster lazily, rebuild observations,
// resolve areas, classify zones and notify the presence sink.
//
// Ticks are serialized: a single mutex guards each tick and the
// diagnostic dump, per the single-writer model. Between the two
// suspension points (snapshot fetch, sink emission) all registry
// mutation is synchronous, so no reader can observe a half-updated
// device.
type Tracker struct {
	mu sync.Mutex

	cfg       TrackerConfig
	estimator Estimator
	registry  *Registry
	topology  Topology
	areas     AreaNamer
	sink      PresenceSink
	clock     timeutil.Clock

	tracked map[string]bool // normalized allow-list

	lastTick TickStats
}

// NewTracker wires a Tracker. sink may be nil when presence
// notification is disabled; clock defaults to the real clock.
func NewTracker(cfg TrackerConfig, topology Topology, areas AreaNamer, sink PresenceSink, clock timeutil.Clock) *Tracker {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	tracked := make(map[string]bool, len(cfg.TrackedAddresses))
	for _, addr := range cfg.TrackedAddresses {
		tracked[NormalizeAddress(addr)] = true
	}
	return &Tracker{
		cfg:       cfg,
		estimator: NewEstimator(cfg.RefPower, cfg.Attenuation),
		registry:  NewRegistry(),
		topology:  topology,
		areas:     areas,
		sink:      sink,
		clock:     clock,
		tracked:   tracked,
	}
}

// Registry exposes the underlying device store (read paths only; tests
// and the eviction pass use it).
func (t *Tracker) Registry() *Registry { return t.registry }

// Config returns the tracker's effective configuration.
func (t *Tracker) Config() TrackerConfig { return t.cfg }

// LastTick returns statistics for the most recent completed tick.
func (t *Tracker) LastTick() TickStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastTick
}

// Update runs one tick against the given source. A snapshot failure
// aborts the whole tick with the registry untouched; faults while
// processing an individual device are logged and skipped so the rest of
// the snapshot still lands.
func (t *Tracker) Update(ctx context.Context, source Source) error {
	// Suspension point one: fetch outside any registry mutation.
	ads, err := source.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("advertisement snapshot failed: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	start := t.clock.Now()
	stats := TickStats{
		TickID:  uuid.NewString(),
		Devices: len(ads),
	}

	for _, ad := range ads {
		t.updateDevice(ctx, ad, &stats)
	}

	// Areas resolve after all devices were processed, over every
	// non-scanner record (including ones absent from this snapshot,
	// whose old observations may no longer qualify).
	for _, device := range t.registry.Devices() {
		if device.IsScanner {
			stats.Scanners++
			continue
		}
		resolveArea(device, t.cfg.MaxAreaRadius, t.areas)
	}

	if t.cfg.DeviceEvictAfter > 0 {
		t.evictStale()
	}

	stats.Duration = t.clock.Since(start)
	t.lastTick = stats
	return nil
}

// updateDevice ingests one advertisement record. It never returns an
// error: per-device faults must not abort the tick.
func (t *Tracker) updateDevice(ctx context.Context, ad Advertisement, stats *TickStats) {
	device := t.registry.GetOrCreate(ad.Address)

	// Names are first-non-empty-wins: once learned, never overwritten
	// by a later (possibly emptier) advertisement.
	if device.Name == "" {
		device.Name = ad.Name
	}
	if device.LocalName == "" {
		device.LocalName = ad.LocalName
	}
	if device.Manufacturer == "" {
		device.Manufacturer = ad.Manufacturer
	}
	device.Connectable = ad.Connectable

	// Recompute the preferred name while it is unset or still a
	// generated placeholder, so a real name claims the slot as soon as
	// one is learned.
	if device.PrefName == "" || hasGeneratedName(device) {
		device.PrefName = firstNonEmpty(
			device.Name,
			device.LocalName,
			Namespace+"_"+Slug(device.Address),
		)
	}

	for _, sighting := range ad.Sightings {
		scanner, ok := t.ensureScanner(sighting.ScannerAddress)
		if !ok {
			stats.Skipped++
			continue
		}
		device.SetObservation(&Observation{
			ScannerAddress: scanner.Address,
			ScannerName:    scanner.Name,
			Adapter:        sighting.Adapter,
			Source:         sighting.Source,
			AreaID:         scanner.AreaID,
			RSSI:           sighting.RSSI,
			TxPower:        sighting.TxPower,
			Distance:       t.estimator.EstimateDistance(sighting.RSSI),
			Stamp:          sighting.Stamp,
			ServiceData:    sighting.ServiceData,
		})
		stats.Observations++
	}

	if t.tracked[device.Address] {
		device.Tracked = true
	}

	if device.Tracked {
		t.emitPresence(ctx, device, stats)
	}
}

// ensureScanner returns the scanner's device record, creating and
// binding it from the topology directory on first reference. Sightings
// from scanners the directory does not know are skipped by the caller.
func (t *Tracker) ensureScanner(address string) (*Device, bool) {
	if device, ok := t.registry.Get(address); ok && device.IsScanner {
		return device, true
	}

	info, ok := t.topology.Scanner(address)
	if !ok {
		monitoring.Logf("no topology entry for scanner %s; skipping observation", NormalizeAddress(address))
		return nil, false
	}

	device := t.registry.GetOrCreate(address)
	device.IsScanner = true
	device.AreaID = info.AreaID
	if info.Name != "" {
		// The installer-assigned name beats anything learned from
		// advertisements.
		device.Name = info.Name
		device.PrefName = info.Name
	}
	return device, true
}

// emitPresence classifies the device's zone and notifies the sink.
// Sink failures are logged, not propagated: one unreachable sink must
// not poison the tick.
func (t *Tracker) emitPresence(ctx context.Context, device *Device, stats *TickStats) {
	device.Zone = classifyZone(device.LastSeen, t.clock.Now(), t.cfg.PresenceTimeout)

	if t.sink == nil {
		return
	}
	update := PresenceUpdate{
		DeviceID: TrackerID(device.Address),
		HostName: device.PrefName,
		Zone:     device.Zone,
		Address:  device.Address,
		AreaID:   device.AreaID,
		Distance: device.AreaDistance,
		TickID:   stats.TickID,
	}
	if err := t.sink.See(ctx, update); err != nil {
		monitoring.Logf("presence sink rejected update for %s: %v", device.Address, err)
		return
	}
	stats.Emitted++
}

// evictStale removes devices unseen beyond the configured horizon.
// Scanners and tracked devices are exempt: losing a scanner record would
// orphan its area binding, and tracked devices must keep reporting
// not_home forever.
func (t *Tracker) evictStale() {
	now := t.clock.Now()
	for _, device := range t.registry.Devices() {
		if device.IsScanner || device.Tracked {
			continue
		}
		if now.Sub(device.LastSeen) > t.cfg.DeviceEvictAfter {
			t.registry.Remove(device.Address)
		}
	}
}

func hasGeneratedName(d *Device) bool {
	return len(d.PrefName) > len(Namespace) && d.PrefName[:len(Namespace)+1] == Namespace+"_"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
