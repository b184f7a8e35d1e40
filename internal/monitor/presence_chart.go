// Package monitor renders debugging charts over the recorded presence
// events. These are unauthenticated debug endpoints meant to be mounted
// behind the admin mux, not part of the public API.
package monitor

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/presence.report/internal/db"
	"github.com/banshee-data/presence.report/internal/httputil"
)

// PresenceChartHandler renders a timeline of zone transitions per
// tracked device from the event log. Each device is one line series
// with home=1, not_home=0, so flapping devices show up as sawtooth.
// Query params:
//   - limit (optional; default 500) max events to load, newest first
func PresenceChartHandler(database *db.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 500
		if l := r.URL.Query().Get("limit"); l != "" {
			if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 10000 {
				limit = v
			}
		}

		events, err := database.PresenceEvents(limit)
		if err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("failed to load presence events: %v", err))
			return
		}
		if len(events) == 0 {
			httputil.NotFound(w, "no presence events recorded yet")
			return
		}

		// Events arrive newest first; plot oldest to newest.
		perDevice := make(map[string][]opts.LineData)
		var timestamps []string
		seen := make(map[string]bool)
		for i := len(events) - 1; i >= 0; i-- {
			ev := events[i]
			ts := ev.Timestamp.Format("15:04:05")
			if !seen[ts] {
				timestamps = append(timestamps, ts)
				seen[ts] = true
			}
			val := 0
			if ev.Zone == "home" {
				val = 1
			}
			perDevice[ev.DeviceID] = append(perDevice[ev.DeviceID], opts.LineData{Value: val, Name: ts})
		}

		line := charts.NewLine()
		line.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{PageTitle: "Presence timeline", Theme: "dark", Width: "1200px", Height: "500px"}),
			charts.WithTitleOpts(opts.Title{Title: "Presence timeline", Subtitle: fmt.Sprintf("last %d events", len(events))}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
			charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 1, Name: "home"}),
		)
		line.SetXAxis(timestamps)
		for deviceID, series := range perDevice {
			line.AddSeries(deviceID, series)
		}

		var buf bytes.Buffer
		if err := line.Render(&buf); err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(buf.Bytes())
	}
}
