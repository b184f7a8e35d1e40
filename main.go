// Command presence.report tracks Bluetooth device presence from a feed
// of scanner observations. It ingests newline-delimited advertisement
// reports from a scanner bridge (serial in production, a replayed
// fixture file in dev mode), maintains an in-memory device registry,
// resolves each device to the area of its closest scanner, and serves
// the registry plus a persisted presence event log over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/presence.report/internal/api"
	"github.com/banshee-data/presence.report/internal/ble"
	"github.com/banshee-data/presence.report/internal/config"
	"github.com/banshee-data/presence.report/internal/db"
	"github.com/banshee-data/presence.report/internal/monitor"
	"github.com/banshee-data/presence.report/internal/monitoring"
	"github.com/banshee-data/presence.report/internal/scanfeed"
	"github.com/banshee-data/presence.report/internal/timeutil"
	"github.com/banshee-data/presence.report/internal/version"
)

var (
	listenAddr    = flag.String("listen", ":8080", "HTTP listen address")
	devMode       = flag.Bool("dev", false, "replay a fixture file instead of opening a serial port")
	fixturePath   = flag.String("fixtures", "config/fixtures.ndjson", "fixture file replayed in dev mode")
	feedPort      = flag.String("port", "/dev/ttyACM0", "serial port of the scanner bridge")
	udpAddr       = flag.String("udp", "", "listen for bridge reports on this UDP address instead of a serial port")
	configPath    = flag.String("config", "", "path to a JSON config file (optional)")
	dbPath        = flag.String("db", "presence.db", "path to the sqlite event log")
	migrationsDir = flag.String("migrations", "", "apply migrations from this directory at startup")
	noEvents      = flag.Bool("no-events", false, "disable the sqlite event log")
)

func main() {
	flag.Parse()

	monitoring.Logf("presence.report %s (%s) built %s", version.Version, version.GitSHA, version.BuildTime)

	cfg := config.EmptyConfig()
	if *configPath != "" {
		loaded, err := config.LoadConfig(*configPath)
		if err != nil {
			monitoring.Logf("Failed to load config %s: %v", *configPath, err)
			os.Exit(1)
		}
		cfg = loaded
		monitoring.Logf("Loaded config from %s", *configPath)
	}

	mux, err := openFeed()
	if err != nil {
		monitoring.Logf("Failed to open scanner feed: %v", err)
		os.Exit(1)
	}
	defer mux.Close()

	var database *db.DB
	if !*noEvents {
		database, err = db.NewDB(*dbPath)
		if err != nil {
			monitoring.Logf("Failed to open database %s: %v", *dbPath, err)
			os.Exit(1)
		}
		defer database.Close()
		if *migrationsDir != "" {
			if err := database.MigrateUp(*migrationsDir); err != nil {
				monitoring.Logf("Migration failed: %v", err)
				os.Exit(1)
			}
		}
	}

	clock := timeutil.RealClock{}
	sink := buildSink(database)
	tracker := ble.NewTracker(trackerConfig(cfg), topologyFromConfig(cfg), areasFromConfig(cfg), sink, clock)
	accum := scanfeed.NewAccumulator()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := mux.Monitor(ctx); err != nil {
			monitoring.Logf("Feed monitor stopped: %v", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := accum.Run(ctx, mux); err != nil {
			monitoring.Logf("Scanner feed ingest stopped: %v", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		runUpdateLoop(ctx, clock, tracker, accum, database, cfg.GetRefreshInterval())
	}()

	httpServer := &http.Server{
		Addr:    *listenAddr,
		Handler: buildHandler(tracker, database, mux),
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		monitoring.Logf("HTTP server listening on %s", *listenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			monitoring.Logf("HTTP server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	monitoring.Logf("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		monitoring.Logf("HTTP shutdown error: %v", err)
	}

	wg.Wait()
}

// openFeed opens the advertisement source selected by the command line:
// a replayed fixture in dev mode, the scanner bridge serial port
// otherwise.
func openFeed() (scanfeed.Muxer, error) {
	if *devMode {
		data, err := os.ReadFile(*fixturePath)
		if err != nil {
			return nil, fmt.Errorf("reading fixture %s: %w", *fixturePath, err)
		}
		monitoring.Logf("Dev mode: replaying %s", *fixturePath)
		return scanfeed.NewMockFeedMux(data, time.Second), nil
	}
	if *udpAddr != "" {
		monitoring.Logf("Listening for bridge reports on udp %s", *udpAddr)
		return scanfeed.NewUDPFeedMux(*udpAddr)
	}
	return scanfeed.NewSerialFeedMux(*feedPort, scanfeed.DefaultPortOptions())
}

func buildSink(database *db.DB) ble.PresenceSink {
	sinks := ble.MultiSink{ble.LogSink{}}
	if database != nil {
		sinks = append(sinks, db.NewPresenceRecorder(database))
	}
	return sinks
}

func trackerConfig(cfg *config.Config) ble.TrackerConfig {
	return ble.TrackerConfig{
		MaxAreaRadius:    cfg.GetMaxAreaRadiusM(),
		PresenceTimeout:  cfg.GetPresenceTimeout(),
		RefPower:         cfg.GetRefPowerDbm(),
		Attenuation:      cfg.GetAttenuationFactor(),
		TrackedAddresses: cfg.TrackedAddresses,
		DeviceEvictAfter: cfg.GetDeviceEvictAfter(),
	}
}

func topologyFromConfig(cfg *config.Config) *ble.StaticTopology {
	entries := make(map[string]ble.ScannerInfo, len(cfg.Scanners))
	for addr, entry := range cfg.Scanners {
		entries[addr] = ble.ScannerInfo{AreaID: entry.AreaID, Name: entry.Name}
	}
	return ble.NewStaticTopology(entries)
}

func areasFromConfig(cfg *config.Config) ble.AreaNamer {
	return ble.StaticAreas(cfg.Areas)
}

// runUpdateLoop drives tracker ticks at the configured refresh
// interval until ctx is cancelled. Tick stats are recorded to the
// event log when one is open.
func runUpdateLoop(ctx context.Context, clock timeutil.Clock, tracker *ble.Tracker, accum *scanfeed.Accumulator, database *db.DB, interval time.Duration) {
	ticker := clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if err := tracker.Update(ctx, accum); err != nil {
				monitoring.Logf("Update failed: %v", err)
				continue
			}
			if database != nil {
				recordTick(database, tracker.LastTick())
			}
		}
	}
}

func recordTick(database *db.DB, stats ble.TickStats) {
	if stats.TickID == "" {
		return
	}
	err := database.RecordTickStats(db.TickStats{
		TickID:       stats.TickID,
		Devices:      stats.Devices,
		Scanners:     stats.Scanners,
		Observations: stats.Observations,
		Skipped:      stats.Skipped,
		Emitted:      stats.Emitted,
		DurationMs:   float64(stats.Duration.Microseconds()) / 1000,
	})
	if err != nil {
		monitoring.Logf("Failed to record tick stats: %v", err)
	}
}

func buildHandler(tracker *ble.Tracker, database *db.DB, feed scanfeed.Muxer) http.Handler {
	root := http.NewServeMux()

	apiServer := api.NewServer(tracker, database)
	root.Handle("/api/", http.StripPrefix("/api", apiServer.ServeMux()))

	if database != nil {
		database.AttachAdminRoutes(root)
		root.Handle("/debug/presence-chart", monitor.PresenceChartHandler(database))
	}
	feed.AttachAdminRoutes(root)

	root.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintln(w, "presence.report")
	})

	return api.LoggingMiddleware(root)
}
