package geometry

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A simple L-shaped path: 100 m east, then 100 m north.
func elbow() orb.LineString {
	return orb.LineString{{0, 0}, {100, 0}, {100, 100}}
}

func TestLength(t *testing.T) {
	assert.Equal(t, 200.0, Length(elbow()))
	assert.Equal(t, 0.0, Length(orb.LineString{{5, 5}}))
	assert.Equal(t, 0.0, Length(nil))
}

func TestNearestPoint(t *testing.T) {
	tests := []struct {
		name     string
		p        orb.Point
		want     orb.Point
		fraction float64
	}{
		{"beside first segment", orb.Point{50, 30}, orb.Point{50, 0}, 0.25},
		{"beside second segment", orb.Point{130, 50}, orb.Point{100, 50}, 0.75},
		{"beyond the end", orb.Point{150, 150}, orb.Point{100, 100}, 1.0},
		{"before the start", orb.Point{-20, -20}, orb.Point{0, 0}, 0.0},
		{"on a vertex", orb.Point{100, 0}, orb.Point{100, 0}, 0.5},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, f := NearestPoint(elbow(), tc.p)
			assert.InDelta(t, tc.want[0], got[0], 1e-9)
			assert.InDelta(t, tc.want[1], got[1], 1e-9)
			assert.InDelta(t, tc.fraction, f, 1e-9)
		})
	}
}

func TestNearestBetween(t *testing.T) {
	a := orb.LineString{{0, 0}, {100, 0}}
	b := orb.LineString{{40, 30}, {60, 10}, {120, 40}}

	// The gap closes at b's middle vertex, straight above a.
	onA, onB := NearestBetween(a, b)
	assert.Equal(t, orb.Point{60, 0}, onA)
	assert.Equal(t, orb.Point{60, 10}, onB)

	t.Run("order of arguments picks the side", func(t *testing.T) {
		onB, onA := NearestBetween(b, a)
		assert.Equal(t, orb.Point{60, 0}, onA)
		assert.Equal(t, orb.Point{60, 10}, onB)
	})

	t.Run("touching paths meet at the contact point", func(t *testing.T) {
		onA, onB := NearestBetween(a, orb.LineString{{100, 0}, {150, 50}})
		assert.Equal(t, orb.Point{100, 0}, onA)
		assert.Equal(t, orb.Point{100, 0}, onB)
	})

	t.Run("empty input", func(t *testing.T) {
		onA, onB := NearestBetween(nil, b)
		assert.Equal(t, orb.Point{}, onA)
		assert.Equal(t, orb.Point{}, onB)
	})
}

func TestInterpolate(t *testing.T) {
	mid := Interpolate(elbow(), 0.5)
	assert.Equal(t, orb.Point{100, 0}, mid)
	assert.Equal(t, orb.Point{50, 0}, Interpolate(elbow(), 0.25))
	assert.Equal(t, orb.Point{0, 0}, Interpolate(elbow(), -1))
	assert.Equal(t, orb.Point{100, 100}, Interpolate(elbow(), 2))
}

func TestSubstring(t *testing.T) {
	got := Substring(elbow(), 0.25, 0.75)
	require.Len(t, got, 3)
	assert.Equal(t, orb.LineString{{50, 0}, {100, 0}, {100, 50}}, got)

	t.Run("reversed fractions yield reversed path", func(t *testing.T) {
		rev := Substring(elbow(), 0.75, 0.25)
		assert.Equal(t, orb.LineString{{100, 50}, {100, 0}, {50, 0}}, rev)
	})

	t.Run("coincident fractions yield empty", func(t *testing.T) {
		assert.Nil(t, Substring(elbow(), 0.5, 0.5))
	})

	t.Run("full range is the whole path", func(t *testing.T) {
		assert.Equal(t, elbow(), Substring(elbow(), 0, 1))
	})
}

func TestSnap(t *testing.T) {
	target := orb.LineString{{0, 0}, {100, 0}}
	line := orb.LineString{{10, 5}, {50, 40}, {90, -3}}
	snapped := Snap(line, target, 25)
	assert.Equal(t, orb.Point{10, 0}, snapped[0])
	// 40 m away, outside the tolerance: untouched.
	assert.Equal(t, orb.Point{50, 40}, snapped[1])
	assert.Equal(t, orb.Point{90, 0}, snapped[2])
}

func TestMerge(t *testing.T) {
	tail := orb.LineString{{-50, 0}, {0, 0}}
	common := orb.LineString{{0, 0}, {100, 0}}
	head := orb.LineString{{100, 0}, {100, 80}}

	t.Run("chains parts in order", func(t *testing.T) {
		got := Merge(tail, common, head)
		assert.Equal(t, orb.LineString{{-50, 0}, {0, 0}, {100, 0}, {100, 80}}, got)
	})

	t.Run("reorients reversed parts", func(t *testing.T) {
		got := Merge(reverse(tail), common, reverse(head))
		assert.Equal(t, orb.LineString{{-50, 0}, {0, 0}, {100, 0}, {100, 80}}, got)
	})

	t.Run("skips empty parts", func(t *testing.T) {
		got := Merge(nil, common, head)
		assert.Equal(t, orb.LineString{{0, 0}, {100, 0}, {100, 80}}, got)
	})

	t.Run("single part is copied", func(t *testing.T) {
		got := Merge(nil, common, nil)
		assert.Equal(t, common, got)
	})

	t.Run("no parts", func(t *testing.T) {
		assert.Nil(t, Merge(nil, orb.LineString{{1, 1}}))
	})
}
