package display

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lox/beaconmixer/beacon"
	"github.com/lox/beaconmixer/internal/archive"
	"github.com/lox/beaconmixer/internal/audit"
)

func TestCounts(t *testing.T) {
	out := Counts("Standard", beacon.Counts{beacon.Unassigned: 22276, beacon.Standard: 25619})

	assert.Contains(t, out, "25619")
	assert.Contains(t, out, "22276")
	assert.Contains(t, out, "47895")
	assert.Contains(t, out, "53.49%")
	assert.NotContains(t, out, "Mythic")
}

func TestVerification(t *testing.T) {
	out := Verification([]audit.StageReport{
		{Stage: "Standard", BlockNumber: 14497878},
		{Stage: "Rare", BlockNumber: 14500000, Mismatches: 2, FirstMismatch: 17},
	})

	assert.Contains(t, out, "reproduced")
	assert.Contains(t, out, "2 differ (first #17)")
	assert.Contains(t, out, "14497878")
}

func TestSpreadsAndHistory(t *testing.T) {
	out := Spreads([]audit.TierSpread{{Tier: beacon.Rare, Count: 10, ChiSquare: 1.5, DF: 9, PValue: 0.99}}, 0.01)
	assert.Contains(t, out, "0.9900")

	out = History([]archive.Entry{{Seq: 1, Stage: "Final", BlockNumber: 7, RunID: "0123456789", Digest: "abcdef", CreatedAt: time.Date(2022, 3, 28, 1, 2, 3, 0, time.UTC)}})
	assert.Contains(t, out, "Final")
	assert.Contains(t, out, "01234567…")
	assert.Contains(t, out, "2022-03-28 01:02:03")
}

func TestShorten(t *testing.T) {
	assert.Equal(t, "abc", shorten("abc", 5))
	assert.Equal(t, "ab…", shorten("abcdef", 2))
}
