package geometry

import (
	"math"

	"github.com/paulmach/orb"
)

// joinEpsilon is the distance below which two vertices count as the same
// point when merging path segments.
const joinEpsilon = 1e-6

// Dist returns the Euclidean distance between two projected points.
func Dist(a, b orb.Point) float64 {
	return math.Hypot(a[0]-b[0], a[1]-b[1])
}

// Length returns the total arc length of a path.
func Length(ls orb.LineString) float64 {
	var total float64
	for i := 1; i < len(ls); i++ {
		total += Dist(ls[i-1], ls[i])
	}
	return total
}

// nearestOnSegment projects p onto segment ab and returns the closest point
// together with the parameter t in [0, 1].
func nearestOnSegment(a, b, p orb.Point) (orb.Point, float64) {
	dx, dy := b[0]-a[0], b[1]-a[1]
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return a, 0
	}
	t := ((p[0]-a[0])*dx + (p[1]-a[1])*dy) / lenSq
	t = math.Max(0, math.Min(1, t))
	return orb.Point{a[0] + t*dx, a[1] + t*dy}, t
}

// NearestPoint returns the closest point on the path to p and its normalized
// arc-length fraction along the path.
func NearestPoint(ls orb.LineString, p orb.Point) (orb.Point, float64) {
	if len(ls) == 0 {
		return orb.Point{}, 0
	}
	if len(ls) == 1 {
		return ls[0], 0
	}

	best := ls[0]
	bestDist := math.Inf(1)
	var bestAlong float64

	var along float64
	for i := 1; i < len(ls); i++ {
		candidate, t := nearestOnSegment(ls[i-1], ls[i], p)
		if d := Dist(candidate, p); d < bestDist {
			bestDist = d
			best = candidate
			bestAlong = along + t*Dist(ls[i-1], ls[i])
		}
		along += Dist(ls[i-1], ls[i])
	}
	if along == 0 {
		return best, 0
	}
	return best, bestAlong / along
}

// NearestBetween returns the closest pair of points between two paths, the
// first lying on a and the second on b. Between non-crossing paths the
// minimum is always attained at a vertex of one of them, so checking each
// vertex against the other path is exact.
func NearestBetween(a, b orb.LineString) (orb.Point, orb.Point) {
	if len(a) == 0 || len(b) == 0 {
		return orb.Point{}, orb.Point{}
	}
	bestA, bestB := a[0], b[0]
	best := math.Inf(1)
	for _, v := range a {
		p, _ := NearestPoint(b, v)
		if d := Dist(v, p); d < best {
			best, bestA, bestB = d, v, p
		}
	}
	for _, v := range b {
		p, _ := NearestPoint(a, v)
		if d := Dist(v, p); d < best {
			best, bestA, bestB = d, p, v
		}
	}
	return bestA, bestB
}

// DistToLine returns the distance from p to the closest point on the path.
func DistToLine(ls orb.LineString, p orb.Point) float64 {
	nearest, _ := NearestPoint(ls, p)
	return Dist(nearest, p)
}

// Interpolate returns the point at normalized arc-length fraction f.
func Interpolate(ls orb.LineString, f float64) orb.Point {
	if len(ls) == 0 {
		return orb.Point{}
	}
	if len(ls) == 1 || f <= 0 {
		return ls[0]
	}
	if f >= 1 {
		return ls[len(ls)-1]
	}
	target := f * Length(ls)
	var along float64
	for i := 1; i < len(ls); i++ {
		seg := Dist(ls[i-1], ls[i])
		if along+seg >= target && seg > 0 {
			t := (target - along) / seg
			return orb.Point{
				ls[i-1][0] + t*(ls[i][0]-ls[i-1][0]),
				ls[i-1][1] + t*(ls[i][1]-ls[i-1][1]),
			}
		}
		along += seg
	}
	return ls[len(ls)-1]
}

// Substring extracts the sub-path between two normalized fractions. When
// f1 > f2 the result runs in reverse, mirroring how a cut works when the
// stored path happens to run the other way. Coincident fractions yield an
// empty path.
func Substring(ls orb.LineString, f1, f2 float64) orb.LineString {
	if len(ls) < 2 {
		return nil
	}
	if f1 > f2 {
		return reverse(Substring(ls, f2, f1))
	}
	f1 = math.Max(0, f1)
	f2 = math.Min(1, f2)
	total := Length(ls)
	if total == 0 || f2-f1 < 1e-12 {
		return nil
	}
	d1, d2 := f1*total, f2*total

	out := orb.LineString{Interpolate(ls, f1)}
	var along float64
	for i := 1; i < len(ls); i++ {
		along += Dist(ls[i-1], ls[i])
		if along > d1 && along < d2 {
			out = append(out, ls[i])
		}
	}
	end := Interpolate(ls, f2)
	if Dist(out[len(out)-1], end) > joinEpsilon {
		out = append(out, end)
	}
	if len(out) < 2 {
		return nil
	}
	return out
}

func reverse(ls orb.LineString) orb.LineString {
	if ls == nil {
		return nil
	}
	out := make(orb.LineString, len(ls))
	for i, p := range ls {
		out[len(ls)-1-i] = p
	}
	return out
}

// Snap replaces each vertex of ls with its nearest point on target when that
// nearest point is within tol meters; other vertices pass through unchanged.
func Snap(ls, target orb.LineString, tol float64) orb.LineString {
	if len(ls) == 0 || len(target) < 2 {
		return ls
	}
	out := make(orb.LineString, len(ls))
	for i, v := range ls {
		nearest, _ := NearestPoint(target, v)
		if Dist(nearest, v) <= tol {
			out[i] = nearest
		} else {
			out[i] = v
		}
	}
	return out
}

// Merge chains the non-empty parts into one continuous path, reorienting
// parts so that consecutive endpoints meet and dropping coincident join
// vertices. Parts are expected in travel order (tail, common part, head).
func Merge(parts ...orb.LineString) orb.LineString {
	var usable []orb.LineString
	for _, p := range parts {
		if len(p) >= 2 {
			usable = append(usable, p)
		}
	}
	if len(usable) == 0 {
		return nil
	}
	if len(usable) == 1 {
		return append(orb.LineString(nil), usable[0]...)
	}

	first := usable[0]
	second := usable[1]
	// Orient the first part so its far end touches the next part.
	if endGap(first[len(first)-1], second) > endGap(first[0], second) {
		first = reverse(first)
	}
	merged := append(orb.LineString(nil), first...)

	for _, part := range usable[1:] {
		tip := merged[len(merged)-1]
		if Dist(tip, part[len(part)-1]) < Dist(tip, part[0]) {
			part = reverse(part)
		}
		for i, v := range part {
			if i == 0 && Dist(tip, v) <= joinEpsilon {
				continue
			}
			merged = append(merged, v)
		}
	}
	return merged
}

func endGap(p orb.Point, ls orb.LineString) float64 {
	return math.Min(Dist(p, ls[0]), Dist(p, ls[len(ls)-1]))
}
