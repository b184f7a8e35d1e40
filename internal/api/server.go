// Package api serves the diagnostic HTTP surface: the device dump,
// effective configuration, recorded presence events and per-scanner
// signal statistics.
package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/presence.report/internal/ble"
	"github.com/banshee-data/presence.report/internal/db"
	"github.com/banshee-data/presence.report/internal/httputil"
	"github.com/banshee-data/presence.report/internal/monitoring"
)

// ANSI escape codes for request logging
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	tracker *ble.Tracker
	db      *db.DB
}

// NewServer wires the API against the tracker and the event database.
// db may be nil when event persistence is disabled.
func NewServer(tracker *ble.Tracker, db *db.DB) *Server {
	return &Server{tracker: tracker, db: db}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	default:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	}
}

// LoggingMiddleware logs method, path, status, and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/devices", s.listDevices)
	mux.HandleFunc("/devices/", s.showDevice)
	mux.HandleFunc("/config", s.showConfig)
	mux.HandleFunc("/events", s.listEvents)
	mux.HandleFunc("/scanners", s.showScannerStats)
	mux.HandleFunc("/ticks", s.listTicks)
	return mux
}

// listDevices returns the full diagnostic dump: every known device and
// its current per-scanner observations.
func (s *Server) listDevices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.tracker.DumpDevices())
}

func (s *Server) showDevice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	address := strings.TrimPrefix(r.URL.Path, "/devices/")
	if address == "" {
		httputil.BadRequest(w, "missing device address")
		return
	}
	device, ok := s.tracker.DumpDevice(address)
	if !ok {
		httputil.NotFound(w, "unknown device "+ble.NormalizeAddress(address))
		return
	}
	httputil.WriteJSONOK(w, device)
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	cfg := s.tracker.Config()
	httputil.WriteJSONOK(w, map[string]interface{}{
		"max_area_radius_m":  cfg.MaxAreaRadius,
		"presence_timeout":   cfg.PresenceTimeout.String(),
		"ref_power_dbm":      cfg.RefPower,
		"attenuation_factor": cfg.Attenuation,
		"tracked_addresses":  cfg.TrackedAddresses,
		"device_evict_after": cfg.DeviceEvictAfter.String(),
	})
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.db == nil {
		httputil.NotFound(w, "event persistence disabled")
		return
	}

	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			httputil.BadRequest(w, "invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	events, err := s.db.PresenceEvents(limit)
	if err != nil {
		httputil.InternalServerError(w, "failed to retrieve presence events: "+err.Error())
		return
	}
	if events == nil {
		events = []db.PresenceEvent{}
	}
	httputil.WriteJSONOK(w, events)
}

func (s *Server) listTicks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.db == nil {
		httputil.NotFound(w, "event persistence disabled")
		return
	}
	stats, err := s.db.RecentTickStats(100)
	if err != nil {
		httputil.InternalServerError(w, "failed to retrieve tick stats: "+err.Error())
		return
	}
	if stats == nil {
		stats = []db.TickStats{}
	}
	httputil.WriteJSONOK(w, stats)
}
