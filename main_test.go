package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/presence.report/internal/ble"
	"github.com/banshee-data/presence.report/internal/config"
	"github.com/banshee-data/presence.report/internal/scanfeed"
	"github.com/banshee-data/presence.report/internal/timeutil"
)

func TestTrackerConfigDefaults(t *testing.T) {
	cfg := config.EmptyConfig()
	tc := trackerConfig(cfg)

	assert.Equal(t, 3.0, tc.MaxAreaRadius)
	assert.Equal(t, 60*time.Second, tc.PresenceTimeout)
	assert.Equal(t, -55.0, tc.RefPower)
	assert.Equal(t, 3.0, tc.Attenuation)
	assert.Empty(t, tc.TrackedAddresses)
	assert.Zero(t, tc.DeviceEvictAfter)
}

func TestTrackerConfigOverrides(t *testing.T) {
	radius := 5.5
	timeout := "90s"
	evict := "24h"
	cfg := config.EmptyConfig()
	cfg.MaxAreaRadiusM = &radius
	cfg.PresenceTimeout = &timeout
	cfg.DeviceEvictAfter = &evict
	cfg.TrackedAddresses = []string{"aa:bb:cc:dd:ee:ff"}

	tc := trackerConfig(cfg)
	assert.Equal(t, 5.5, tc.MaxAreaRadius)
	assert.Equal(t, 90*time.Second, tc.PresenceTimeout)
	assert.Equal(t, 24*time.Hour, tc.DeviceEvictAfter)
	assert.Len(t, tc.TrackedAddresses, 1)
}

func TestTopologyFromConfig(t *testing.T) {
	cfg := config.EmptyConfig()
	cfg.Scanners = map[string]config.ScannerEntry{
		"aa:bb:cc:dd:ee:01": {AreaID: "kitchen", Name: "kitchen-proxy"},
	}

	topo := topologyFromConfig(cfg)
	info, ok := topo.Scanner("AA:BB:CC:DD:EE:01")
	require.True(t, ok)
	assert.Equal(t, "kitchen", info.AreaID)
	assert.Equal(t, "kitchen-proxy", info.Name)

	_, ok = topo.Scanner("AA:BB:CC:DD:EE:02")
	assert.False(t, ok)
}

func TestRunUpdateLoopTicks(t *testing.T) {
	t.Parallel()

	clock := timeutil.NewMockClock(time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC))
	topology := ble.NewStaticTopology(map[string]ble.ScannerInfo{
		"DC:54:75:C4:12:01": {AreaID: "kitchen"},
	})
	tracker := ble.NewTracker(ble.DefaultTrackerConfig(), topology, ble.StaticAreas{}, nil, clock)

	accum := scanfeed.NewAccumulator()
	accum.Ingest(scanfeed.Report{
		Scanner: "DC:54:75:C4:12:01",
		Device:  "AA:BB:CC:DD:EE:FF",
		RSSI:    -60,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		runUpdateLoop(ctx, clock, tracker, accum, nil, time.Second)
		close(done)
	}()

	require.Eventually(t, func() bool {
		clock.Advance(time.Second)
		return tracker.LastTick().TickID != ""
	}, 2*time.Second, 10*time.Millisecond, "the loop runs a tick when the clock fires")

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("update loop did not stop on cancellation")
	}

	_, ok := tracker.Registry().Get("AA:BB:CC:DD:EE:FF")
	assert.True(t, ok)
}
