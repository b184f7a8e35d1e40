package api

import (
	"net/http"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/presence.report/internal/httputil"
)

// ScannerStats aggregates the current observations reported by one
// scanner across all non-scanner devices.
type ScannerStats struct {
	Address       string  `json:"address"`
	Name          string  `json:"name,omitempty"`
	AreaID        string  `json:"area_id,omitempty"`
	Devices       int     `json:"devices"`
	MeanRSSI      float64 `json:"mean_rssi"`
	StdDevRSSI    float64 `json:"stddev_rssi"`
	MinDistance   float64 `json:"min_distance_m"`
	MeanDistance  float64 `json:"mean_distance_m"`
	InAreaDevices int     `json:"in_area_devices"` // devices resolved to this scanner's area
}

// showScannerStats summarizes signal quality per scanner from the
// current observation set. Useful for spotting a receiver with a bad
// antenna or a miscalibrated reference power.
func (s *Server) showScannerStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	dump := s.tracker.DumpDevices()

	type sample struct {
		rssis     []float64
		distances []float64
		inArea    int
	}
	samples := make(map[string]*sample)

	for _, device := range dump {
		if device.IsScanner {
			continue
		}
		for addr, obs := range device.Scanners {
			sm, ok := samples[addr]
			if !ok {
				sm = &sample{}
				samples[addr] = sm
			}
			sm.rssis = append(sm.rssis, obs.RSSI)
			sm.distances = append(sm.distances, obs.Distance)
			if device.AreaID != "" && device.AreaID == obs.AreaID {
				sm.inArea++
			}
		}
	}

	stats := make([]ScannerStats, 0, len(samples))
	for addr, sm := range samples {
		entry := ScannerStats{
			Address:       addr,
			Devices:       len(sm.rssis),
			MeanRSSI:      stat.Mean(sm.rssis, nil),
			MeanDistance:  stat.Mean(sm.distances, nil),
			MinDistance:   minOf(sm.distances),
			InAreaDevices: sm.inArea,
		}
		// StdDev of a single sample is NaN, which JSON cannot encode.
		if len(sm.rssis) > 1 {
			entry.StdDevRSSI = stat.StdDev(sm.rssis, nil)
		}
		if scanner, ok := dump[addr]; ok {
			entry.Name = scanner.PrefName
			entry.AreaID = scanner.AreaID
		}
		stats = append(stats, entry)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Address < stats[j].Address })

	httputil.WriteJSONOK(w, stats)
}

func minOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	min := values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
	}
	return min
}
