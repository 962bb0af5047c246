package geometry

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveOverlapDisjoint(t *testing.T) {
	common := orb.LineString{{0, 0}, {100, 0}}
	segment := orb.LineString{{-50, 50}, {0, 50}}

	got := ResolveOverlap(segment, common, 0.01)
	assert.Equal(t, OverlapDisjoint, got.Kind)
	assert.Equal(t, segment, got.Segment)
	assert.Equal(t, common, got.Common)
}

func TestResolveOverlapContained(t *testing.T) {
	common := orb.LineString{{0, 0}, {100, 0}}
	segment := orb.LineString{{10, 0}, {40, 0}, {60, 0}}

	got := ResolveOverlap(segment, common, 0.01)
	assert.Equal(t, OverlapContained, got.Kind)
	assert.Empty(t, got.Segment)
	assert.Equal(t, common, got.Common)
}

func TestResolveOverlapPartialSuffix(t *testing.T) {
	// A tail approaching from the west whose last two vertices ride on the
	// common part: the shared span must disappear from both sides.
	common := orb.LineString{{0, 0}, {100, 0}}
	segment := orb.LineString{{-50, 30}, {-10, 10}, {0, 0}, {30, 0}}

	got := ResolveOverlap(segment, common, 0.01)
	require.Equal(t, OverlapPartial, got.Kind)

	// The trimmed tail keeps its own vertices plus the first shared one so
	// the pieces still connect.
	assert.Equal(t, orb.LineString{{-50, 30}, {-10, 10}, {0, 0}}, got.Segment)
	// The [0, 30] span of the common part is gone.
	assert.Equal(t, orb.LineString{{30, 0}, {100, 0}}, got.Common)
}

func TestResolveOverlapPartialPrefix(t *testing.T) {
	// A head leaving the common part: shared run is the segment's prefix.
	common := orb.LineString{{0, 0}, {100, 0}}
	segment := orb.LineString{{70, 0}, {100, 0}, {110, 20}, {120, 50}}

	got := ResolveOverlap(segment, common, 0.01)
	require.Equal(t, OverlapPartial, got.Kind)
	assert.Equal(t, orb.LineString{{70, 0}, {100, 0}, {110, 20}, {120, 50}}[1:], got.Segment)
	assert.Equal(t, orb.LineString{{0, 0}, {70, 0}}, got.Common)
}

func TestResolveOverlapInteriorRunStaysWhole(t *testing.T) {
	// The shared run sits strictly inside the segment: there is no clean cut,
	// so both lines come back untouched.
	common := orb.LineString{{0, 0}, {100, 0}}
	segment := orb.LineString{{-10, 30}, {40, 0}, {60, 0}, {110, 30}}

	got := ResolveOverlap(segment, common, 0.01)
	assert.Equal(t, OverlapDisjoint, got.Kind)
	assert.Equal(t, segment, got.Segment)
	assert.Equal(t, common, got.Common)
}

func TestResolveOverlapBothEndsTrimsLongerRun(t *testing.T) {
	// Shared at both ends with an unshared excursion in the middle: the
	// longer (two-vertex) suffix run is cut, the single shared prefix vertex
	// stays with the segment.
	common := orb.LineString{{0, 0}, {100, 0}}
	segment := orb.LineString{{0, 0}, {-20, 30}, {60, 40}, {80, 0}, {90, 0}}

	got := ResolveOverlap(segment, common, 0.01)
	require.Equal(t, OverlapPartial, got.Kind)
	assert.Equal(t, orb.LineString{{0, 0}, {-20, 30}, {60, 40}, {80, 0}}, got.Segment)
	// Fractions 0.8..0.9 of the common part were matched; the remainder on
	// the near side survives.
	assert.Equal(t, orb.LineString{{0, 0}, {80, 0}}, got.Common)
}

func TestResolveOverlapDegenerateInputs(t *testing.T) {
	common := orb.LineString{{0, 0}, {100, 0}}
	short := orb.LineString{{5, 5}}

	got := ResolveOverlap(short, common, 0.01)
	assert.Equal(t, OverlapDisjoint, got.Kind)

	got = ResolveOverlap(common, short, 0.01)
	assert.Equal(t, OverlapDisjoint, got.Kind)
}
