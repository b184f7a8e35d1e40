package monitor

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/presence.report/internal/db"
)

func newTestDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.NewDB(filepath.Join(t.TempDir(), "monitor-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func TestPresenceChartWithoutEvents(t *testing.T) {
	t.Parallel()

	handler := PresenceChartHandler(newTestDB(t))
	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/debug/presence-chart", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPresenceChartRendersHTML(t *testing.T) {
	t.Parallel()

	database := newTestDB(t)
	require.NoError(t, database.RecordPresenceEvent(db.PresenceEvent{
		TickID: "tick-1", DeviceID: "presence_aa_bb_cc_dd_ee_ff", Zone: "home",
	}))
	require.NoError(t, database.RecordPresenceEvent(db.PresenceEvent{
		TickID: "tick-2", DeviceID: "presence_aa_bb_cc_dd_ee_ff", Zone: "not_home",
	}))

	handler := PresenceChartHandler(database)
	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/debug/presence-chart", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html"))
	body := rec.Body.String()
	assert.Contains(t, body, "presence_aa_bb_cc_dd_ee_ff")
	assert.Contains(t, body, "Presence timeline")
}
