// Package db persists presence transitions and per-tick summaries to
// SQLite for diagnostics and reporting. The device registry itself is
// deliberately not persisted; only the event stream is.
package db

import (
	"compress/gzip"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/tailscale/tailsql/server/tailsql"
	_ "modernc.org/sqlite"
	"tailscale.com/tsweb"

	"github.com/banshee-data/presence.report/internal/monitoring"
)

type DB struct {
	*sql.DB

	path string
}

// NewDB opens (creating if needed) the event database at path and
// ensures the baseline schema exists.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS presence_events (
			event_id          INTEGER PRIMARY KEY AUTOINCREMENT,
			tick_id           TEXT,
			device_id         TEXT,
			host_name         TEXT,
			zone              TEXT,
			address           TEXT,
			area_id           TEXT,
			distance_m        DOUBLE,
			timestamp         TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS tick_stats (
			tick_id           TEXT PRIMARY KEY,
			devices           BIGINT,
			scanners          BIGINT,
			observations      BIGINT,
			skipped           BIGINT,
			emitted           BIGINT,
			duration_ms       DOUBLE,
			timestamp         TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return nil, err
	}

	return &DB{DB: db, path: path}, nil
}

// PresenceEvent is one recorded presence transition/notification.
type PresenceEvent struct {
	EventID   int64     `json:"event_id"`
	TickID    string    `json:"tick_id"`
	DeviceID  string    `json:"device_id"`
	HostName  string    `json:"host_name"`
	Zone      string    `json:"zone"`
	Address   string    `json:"address"`
	AreaID    string    `json:"area_id,omitempty"`
	Distance  *float64  `json:"distance_m,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// RecordPresenceEvent appends one presence event.
func (db *DB) RecordPresenceEvent(ev PresenceEvent) error {
	_, err := db.Exec(
		`INSERT INTO presence_events (
			tick_id, device_id, host_name, zone, address, area_id, distance_m
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.TickID, ev.DeviceID, ev.HostName, ev.Zone, ev.Address, ev.AreaID, ev.Distance,
	)
	return err
}

// PresenceEvents returns the most recent events, newest first.
func (db *DB) PresenceEvents(limit int) ([]PresenceEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(
		`SELECT event_id, tick_id, device_id, host_name, zone, address,
			area_id, distance_m, timestamp
		FROM presence_events ORDER BY event_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []PresenceEvent
	for rows.Next() {
		var ev PresenceEvent
		var areaID sql.NullString
		var distance sql.NullFloat64
		if err := rows.Scan(
			&ev.EventID, &ev.TickID, &ev.DeviceID, &ev.HostName, &ev.Zone,
			&ev.Address, &areaID, &distance, &ev.Timestamp,
		); err != nil {
			return nil, err
		}
		ev.AreaID = areaID.String
		if distance.Valid {
			d := distance.Float64
			ev.Distance = &d
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// TickStats is the persisted per-tick summary row.
type TickStats struct {
	TickID       string    `json:"tick_id"`
	Devices      int       `json:"devices"`
	Scanners     int       `json:"scanners"`
	Observations int       `json:"observations"`
	Skipped      int       `json:"skipped"`
	Emitted      int       `json:"emitted"`
	DurationMs   float64   `json:"duration_ms"`
	Timestamp    time.Time `json:"timestamp"`
}

// RecordTickStats upserts the summary row for one tick.
func (db *DB) RecordTickStats(ts TickStats) error {
	_, err := db.Exec(
		`INSERT OR REPLACE INTO tick_stats (
			tick_id, devices, scanners, observations, skipped, emitted, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ts.TickID, ts.Devices, ts.Scanners, ts.Observations, ts.Skipped, ts.Emitted, ts.DurationMs,
	)
	return err
}

// RecentTickStats returns the most recent tick summaries, newest first.
func (db *DB) RecentTickStats(limit int) ([]TickStats, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(
		`SELECT tick_id, devices, scanners, observations, skipped, emitted,
			duration_ms, timestamp
		FROM tick_stats ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []TickStats
	for rows.Next() {
		var ts TickStats
		if err := rows.Scan(
			&ts.TickID, &ts.Devices, &ts.Scanners, &ts.Observations,
			&ts.Skipped, &ts.Emitted, &ts.DurationMs, &ts.Timestamp,
		); err != nil {
			return nil, err
		}
		stats = append(stats, ts)
	}
	return stats, rows.Err()
}

// AttachAdminRoutes mounts the debug surface for the event database:
// live SQL via tailSQL and an on-demand gzip backup download.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		monitoring.Logf("failed to create tailsql server: %v", err)
		return
	}
	tsql.SetDB("sqlite://"+db.path, db.DB, &tailsql.DBOptions{
		Label: "Presence DB",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("backup", "Create and download a backup of the event database", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		backupPath := fmt.Sprintf("backup-%d.db", time.Now().Unix())
		if _, err := db.Exec("VACUUM INTO ?", backupPath); err != nil {
			http.Error(w, fmt.Sprintf("Failed to create backup: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.gz", backupPath))
		w.Header().Set("Content-Type", "application/octet-stream")

		backupFile, err := os.Open(backupPath)
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to open backup file: %v", err), http.StatusInternalServerError)
			return
		}
		defer func() {
			backupFile.Close()
			if err := os.Remove(backupPath); err != nil {
				monitoring.Logf("failed to remove backup file: %v", err)
			}
		}()

		gz := gzip.NewWriter(w)
		defer gz.Close()
		if _, err := io.Copy(gz, backupFile); err != nil {
			monitoring.Logf("failed to stream backup: %v", err)
		}
	}))
}
