package scanfeed

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/banshee-data/presence.report/internal/ble"
	"github.com/banshee-data/presence.report/internal/monitoring"
)

// Accumulator folds the feed's report stream into the per-tick snapshot
// of currently-seen devices. It keeps the latest sighting per
// (device, scanner) pair, matching the downstream replace-wholesale
// observation semantics. Devices are never dropped from the snapshot;
// the tracker decides what is stale.
type Accumulator struct {
	mu      sync.Mutex
	pending map[string]*pendingDevice
	err     error // set when the feed terminates
}

type pendingDevice struct {
	address      string
	name         string
	localName    string
	manufacturer string
	connectable  bool
	sightings    map[string]ble.Sighting // keyed by scanner address
}

// NewAccumulator returns an empty Accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{pending: make(map[string]*pendingDevice)}
}

// ingestBuffer is the subscription capacity for the accumulator. It
// must absorb the largest plausible burst (a full fixture replay, a
// multi-datagram UDP read) while the previous line is being parsed.
const ingestBuffer = 4096

// Run subscribes to the mux and ingests report lines until the context
// is cancelled or the subscription channel closes. After Run returns,
// Snapshot fails: a dead feed must fail the tick rather than serve an
// ever-staler snapshot.
func (a *Accumulator) Run(ctx context.Context, mux Muxer) error {
	id, lines := mux.SubscribeBuffered(ingestBuffer)
	defer mux.Unsubscribe(id)

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				a.fail(fmt.Errorf("scanner feed terminated"))
				return nil
			}
			report, err := ParseReport(line)
			if err != nil {
				monitoring.Logf("dropping feed line: %v", err)
				continue
			}
			a.Ingest(report)

		case <-ctx.Done():
			a.fail(ctx.Err())
			return ctx.Err()
		}
	}
}

// Ingest folds one report into the pending snapshot.
func (a *Accumulator) Ingest(report Report) {
	device := ble.NormalizeAddress(report.Device)
	scanner := ble.NormalizeAddress(report.Scanner)

	a.mu.Lock()
	defer a.mu.Unlock()

	p, ok := a.pending[device]
	if !ok {
		p = &pendingDevice{
			address:   device,
			sightings: make(map[string]ble.Sighting),
		}
		a.pending[device] = p
	}

	// Identity fields follow first-non-empty-wins, like the registry.
	if p.name == "" {
		p.name = report.Name
	}
	if p.localName == "" {
		p.localName = report.LocalName
	}
	if p.manufacturer == "" {
		p.manufacturer = report.Manufacturer
	}
	// Connectable follows the latest sighting, like the registry does.
	p.connectable = report.Connectable

	p.sightings[scanner] = ble.Sighting{
		ScannerAddress: scanner,
		Adapter:        report.Adapter,
		Source:         report.Source,
		RSSI:           report.RSSI,
		TxPower:        report.TxPower,
		ServiceData:    report.DecodedServiceData(),
		Stamp:          report.Stamp(),
	}
}

// Snapshot implements ble.Source. Devices are returned in sorted address
// order so ticks process them deterministically.
func (a *Accumulator) Snapshot(_ context.Context) ([]ble.Advertisement, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.err != nil {
		return nil, a.err
	}

	addresses := make([]string, 0, len(a.pending))
	for addr := range a.pending {
		addresses = append(addresses, addr)
	}
	sort.Strings(addresses)

	out := make([]ble.Advertisement, 0, len(addresses))
	for _, addr := range addresses {
		p := a.pending[addr]
		ad := ble.Advertisement{
			Address:      p.address,
			Name:         p.name,
			LocalName:    p.localName,
			Manufacturer: p.manufacturer,
			Connectable:  p.connectable,
		}
		for _, scanner := range sortedKeys(p.sightings) {
			ad.Sightings = append(ad.Sightings, p.sightings[scanner])
		}
		out = append(out, ad)
	}
	return out, nil
}

func (a *Accumulator) fail(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err == nil {
		a.err = err
	}
}

func sortedKeys(m map[string]ble.Sighting) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
