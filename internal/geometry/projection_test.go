package geometry

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func haversine(a, b orb.Point) float64 {
	const earthRadius = 6371000.0
	lat1, lat2 := a[1]*math.Pi/180, b[1]*math.Pi/180
	dLat := lat2 - lat1
	dLon := (b[0] - a[0]) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadius * math.Asin(math.Sqrt(h))
}

func TestProjectRoundTrip(t *testing.T) {
	points := []orb.Point{
		{37.622311, 55.754801}, // Moscow center
		{37.4362684, 55.7109996},
		{37.723043, 55.6023977},
		{38.5, 54.5},
		{36.0, 56.9},
		{39.0, 55.0}, // on the central meridian
	}
	for _, p := range points {
		back := Unproject(Project(p))
		assert.InDelta(t, p[0], back[0], 1e-5, "lon for %v", p)
		assert.InDelta(t, p[1], back[1], 1e-5, "lat for %v", p)
	}
}

func TestProjectIsMetric(t *testing.T) {
	pairs := [][2]orb.Point{
		{{37.62, 55.75}, {37.62, 55.76}},
		{{37.62, 55.75}, {37.64, 55.75}},
		{{37.45, 55.70}, {37.72, 55.61}},
	}
	for _, pair := range pairs {
		planar := Dist(Project(pair[0]), Project(pair[1]))
		spherical := haversine(pair[0], pair[1])
		// UTM distortion within the zone is far below 1%.
		assert.InEpsilon(t, spherical, planar, 0.01, "distance %v-%v", pair[0], pair[1])
	}
}

func TestProjectLineRoundTrip(t *testing.T) {
	line := orb.LineString{{37.60, 55.70}, {37.65, 55.73}, {37.70, 55.75}}
	back := UnprojectLine(ProjectLine(line))
	require.Len(t, back, len(line))
	for i := range line {
		assert.InDelta(t, line[i][0], back[i][0], 1e-5)
		assert.InDelta(t, line[i][1], back[i][1], 1e-5)
	}
	assert.Nil(t, ProjectLine(nil))
	assert.Nil(t, UnprojectLine(nil))
}
