package scanfeed

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Report is one decoded sighting line from a scanner bridge.
type Report struct {
	Scanner      string            `json:"scanner"`
	Device       string            `json:"device"`
	RSSI         float64           `json:"rssi"`
	TxPower      *float64          `json:"tx_power,omitempty"`
	Name         string            `json:"name,omitempty"`
	LocalName    string            `json:"local_name,omitempty"`
	Manufacturer string            `json:"mfr,omitempty"`
	Connectable  bool              `json:"connectable,omitempty"`
	Adapter      string            `json:"adapter,omitempty"`
	Source       string            `json:"source,omitempty"`
	ServiceData  map[string]string `json:"service_data,omitempty"` // uuid -> hex payload

	// StampMS is the sighting time in unix milliseconds; 0 when the
	// bridge keeps no timestamps (treated as unknown downstream).
	StampMS int64 `json:"stamp_ms,omitempty"`
}

// Stamp converts the report's millisecond timestamp to a time.Time,
// returning the zero value for the 0 sentinel.
func (r Report) Stamp() time.Time {
	if r.StampMS == 0 {
		return time.Time{}
	}
	return time.UnixMilli(r.StampMS)
}

// DecodedServiceData converts the hex payloads to raw bytes. Entries
// that fail to decode are dropped.
func (r Report) DecodedServiceData() map[string][]byte {
	if len(r.ServiceData) == 0 {
		return nil
	}
	out := make(map[string][]byte, len(r.ServiceData))
	for uuid, payload := range r.ServiceData {
		raw, err := hex.DecodeString(payload)
		if err != nil {
			continue
		}
		out[uuid] = raw
	}
	return out
}

// ParseReport decodes one NDJSON report line. Lines that are not valid
// reports yield an error; callers log and drop them.
func ParseReport(line string) (Report, error) {
	var r Report
	if err := json.Unmarshal([]byte(line), &r); err != nil {
		return Report{}, fmt.Errorf("malformed report line: %w", err)
	}
	if r.Scanner == "" {
		return Report{}, fmt.Errorf("report line missing scanner address")
	}
	if r.Device == "" {
		return Report{}, fmt.Errorf("report line missing device address")
	}
	return r, nil
}
