package ble

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAddress(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"already canonical", "AA:BB:CC:DD:EE:FF", "AA:BB:CC:DD:EE:FF"},
		{"lowercase colons", "aa:bb:cc:dd:ee:ff", "AA:BB:CC:DD:EE:FF"},
		{"dashes", "aa-bb-cc-dd-ee-ff", "AA:BB:CC:DD:EE:FF"},
		{"dots", "aabb.ccdd.eeff", "AA:BB:CC:DD:EE:FF"},
		{"bare hex", "aabbccddeeff", "AA:BB:CC:DD:EE:FF"},
		{"mixed case and separators", "Aa-bB:cC.dD eE-Ff", "AA:BB:CC:DD:EE:FF"},
		{"surrounding whitespace", "  aa:bb:cc:dd:ee:ff ", "AA:BB:CC:DD:EE:FF"},
		{"beacon uuid passes through uppercased", "e2c56db5-dffb-48d2-b060-d0f5a71096e0", "E2C56DB5-DFFB-48D2-B060-D0F5A71096E0"},
		{"non-hex keeps shape", "not-an-address", "NOT-AN-ADDRESS"},
		{"empty", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := NormalizeAddress(tc.in)
			assert.Equal(t, tc.want, got)
			// Normalizing a canonical address must be a no-op.
			assert.Equal(t, got, NormalizeAddress(got))
		})
	}
}

func TestSlug(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "aa_bb_cc_dd_ee_ff", Slug("AA:BB:CC:DD:EE:FF"))
	assert.Equal(t, "pixel_watch", Slug("Pixel Watch"))
	assert.Equal(t, "a_b", Slug("a---b"))
	assert.Equal(t, "abc", Slug("::abc::"))
	assert.Equal(t, "", Slug(""))
}

func TestTrackerID(t *testing.T) {
	t.Parallel()

	id := TrackerID("aa:bb:cc:dd:ee:ff")
	assert.Equal(t, "presence_aa_bb_cc_dd_ee_ff", id)

	// Equivalent spellings of the same address yield the same id.
	assert.Equal(t, id, TrackerID("AABBCCDDEEFF"))
	assert.Equal(t, id, TrackerID("aa-bb-cc-dd-ee-ff"))
}
