package ble

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deviceWithObservations(obs ...*Observation) *Device {
	d := newDevice("AA:BB:CC:DD:EE:FF")
	for _, o := range obs {
		d.SetObservation(o)
	}
	return d
}

func TestResolveAreaClosestWins(t *testing.T) {
	t.Parallel()

	d := deviceWithObservations(
		&Observation{ScannerAddress: "DC:00:00:00:00:01", AreaID: "kitchen", Distance: 1.2},
		&Observation{ScannerAddress: "DC:00:00:00:00:02", AreaID: "lounge", Distance: 2.9},
		&Observation{ScannerAddress: "DC:00:00:00:00:03", AreaID: "garage", Distance: 5.0},
	)
	resolveArea(d, 3.0, StaticAreas{"kitchen": {"Kitchen"}})

	assert.Equal(t, "kitchen", d.AreaID)
	name, ok := d.AreaName.Single()
	require.True(t, ok)
	assert.Equal(t, "Kitchen", name)
	require.NotNil(t, d.AreaDistance)
	assert.Equal(t, 1.2, *d.AreaDistance)
}

func TestResolveAreaRadiusIsExclusive(t *testing.T) {
	t.Parallel()

	// A scanner at exactly the radius does not qualify.
	d := deviceWithObservations(
		&Observation{ScannerAddress: "DC:00:00:00:00:01", AreaID: "kitchen", Distance: 3.0},
	)
	resolveArea(d, 3.0, StaticAreas{})

	assert.Empty(t, d.AreaID)
	assert.True(t, d.AreaName.IsZero())
	assert.Nil(t, d.AreaDistance)
}

func TestResolveAreaClearsStaleAssignment(t *testing.T) {
	t.Parallel()

	d := deviceWithObservations(
		&Observation{ScannerAddress: "DC:00:00:00:00:01", AreaID: "kitchen", Distance: 1.0},
	)
	resolveArea(d, 3.0, StaticAreas{"kitchen": {"Kitchen"}})
	require.Equal(t, "kitchen", d.AreaID)

	// The device drifts out of range; the previous assignment is cleared,
	// not retained.
	d.SetObservation(&Observation{ScannerAddress: "DC:00:00:00:00:01", AreaID: "kitchen", Distance: 8.0})
	resolveArea(d, 3.0, StaticAreas{"kitchen": {"Kitchen"}})

	assert.Empty(t, d.AreaID)
	assert.True(t, d.AreaName.IsZero())
	assert.Nil(t, d.AreaDistance)
}

func TestResolveAreaTieBreaksOnSortedAddress(t *testing.T) {
	t.Parallel()

	d := deviceWithObservations(
		&Observation{ScannerAddress: "DC:00:00:00:00:02", AreaID: "lounge", Distance: 2.0},
		&Observation{ScannerAddress: "DC:00:00:00:00:01", AreaID: "kitchen", Distance: 2.0},
	)
	resolveArea(d, 3.0, StaticAreas{})

	// Equal distances: the scanner first in sorted address order wins.
	assert.Equal(t, "kitchen", d.AreaID)
}

func TestResolveAreaAmbiguousName(t *testing.T) {
	t.Parallel()

	d := deviceWithObservations(
		&Observation{ScannerAddress: "DC:00:00:00:00:01", AreaID: "kitchen", Distance: 1.0},
	)
	resolveArea(d, 3.0, StaticAreas{"kitchen": {"Kitchen", "Kitchenette"}})

	assert.Equal(t, "kitchen", d.AreaID)
	_, ok := d.AreaName.Single()
	assert.False(t, ok)
	assert.Equal(t, []string{"Kitchen", "Kitchenette"}, d.AreaName.Names)
}

func TestAreaNamesJSON(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		names AreaNames
		want  string
	}{
		{"unset", AreaNames{}, "null"},
		{"single", AreaNames{Names: []string{"Kitchen"}}, `"Kitchen"`},
		{"multi", AreaNames{Names: []string{"Kitchen", "Kitchenette"}}, `["Kitchen","Kitchenette"]`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			data, err := json.Marshal(tc.names)
			require.NoError(t, err)
			assert.Equal(t, tc.want, string(data))

			var back AreaNames
			require.NoError(t, json.Unmarshal(data, &back))
			assert.Equal(t, len(tc.names.Names), len(back.Names))
		})
	}
}
