package ble

import (
	"encoding/hex"
	"time"
)

// ObservationDump is the serializable form of one scanner observation.
// Service data payloads are hex-encoded.
type ObservationDump struct {
	ScannerAddress string            `json:"scanner_address"`
	ScannerName    string            `json:"scanner_name,omitempty"`
	Adapter        string            `json:"adapter,omitempty"`
	Source         string            `json:"source,omitempty"`
	AreaID         string            `json:"area_id,omitempty"`
	RSSI           float64           `json:"rssi"`
	TxPower        *float64          `json:"tx_power,omitempty"`
	Distance       float64           `json:"rssi_distance"`
	Stamp          *time.Time        `json:"stamp,omitempty"` // nil = unknown
	ServiceData    map[string]string `json:"service_data,omitempty"`
}

// DeviceDump is the serializable form of one device record.
type DeviceDump struct {
	Address      string                     `json:"address"`
	Name         string                     `json:"name,omitempty"`
	LocalName    string                     `json:"local_name,omitempty"`
	Manufacturer string                     `json:"manufacturer,omitempty"`
	PrefName     string                     `json:"prefname,omitempty"`
	Connectable  bool                       `json:"connectable"`
	IsScanner    bool                       `json:"is_scanner"`
	Tracked      bool                       `json:"tracked"`
	AreaID       string                     `json:"area_id,omitempty"`
	AreaName     AreaNames                  `json:"area_name"`
	AreaDistance *float64                   `json:"area_distance,omitempty"`
	Zone         Zone                       `json:"zone,omitempty"`
	LastSeen     *time.Time                 `json:"last_seen,omitempty"`
	Scanners     map[string]ObservationDump `json:"scanners"`
}

// DumpDevices returns the full diagnostic dump: every known device keyed
// by canonical address, each with its current per-scanner observations.
// It takes the tick lock, so it never observes a half-applied update.
func (t *Tracker) DumpDevices() map[string]DeviceDump {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]DeviceDump, t.registry.Len())
	for _, device := range t.registry.Devices() {
		out[device.Address] = dumpDevice(device)
	}
	return out
}

// DumpDevice returns the dump for a single address.
func (t *Tracker) DumpDevice(address string) (DeviceDump, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	device, ok := t.registry.Get(address)
	if !ok {
		return DeviceDump{}, false
	}
	return dumpDevice(device), true
}

func dumpDevice(device *Device) DeviceDump {
	scanners := make(map[string]ObservationDump, len(device.Scanners))
	for addr, obs := range device.Scanners {
		scanners[addr] = dumpObservation(obs)
	}

	d := DeviceDump{
		Address:      device.Address,
		Name:         device.Name,
		LocalName:    device.LocalName,
		Manufacturer: device.Manufacturer,
		PrefName:     device.PrefName,
		Connectable:  device.Connectable,
		IsScanner:    device.IsScanner,
		Tracked:      device.Tracked,
		AreaID:       device.AreaID,
		AreaName:     device.AreaName,
		AreaDistance: device.AreaDistance,
		Zone:         device.Zone,
		Scanners:     scanners,
	}
	if !device.LastSeen.IsZero() {
		seen := device.LastSeen
		d.LastSeen = &seen
	}
	return d
}

func dumpObservation(obs *Observation) ObservationDump {
	d := ObservationDump{
		ScannerAddress: obs.ScannerAddress,
		ScannerName:    obs.ScannerName,
		Adapter:        obs.Adapter,
		Source:         obs.Source,
		AreaID:         obs.AreaID,
		RSSI:           obs.RSSI,
		TxPower:        obs.TxPower,
		Distance:       obs.Distance,
	}
	if !obs.Stamp.IsZero() {
		stamp := obs.Stamp
		d.Stamp = &stamp
	}
	if len(obs.ServiceData) > 0 {
		d.ServiceData = make(map[string]string, len(obs.ServiceData))
		for uuid, payload := range obs.ServiceData {
			d.ServiceData[uuid] = hex.EncodeToString(payload)
		}
	}
	return d
}
