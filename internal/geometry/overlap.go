package geometry

import "github.com/paulmach/orb"

// OverlapKind classifies how a connector segment relates to the common part
// of a reused route after snapping.
type OverlapKind int

const (
	// OverlapDisjoint: the segment shares no portion with the common part.
	OverlapDisjoint OverlapKind = iota
	// OverlapContained: the segment lies entirely on the common part and
	// contributes nothing of its own.
	OverlapContained
	// OverlapPartial: the segment and the common part share a sub-portion,
	// removed from both sides.
	OverlapPartial
)

// Overlap is the result of resolving a connector segment against a common
// part: the trimmed segment and the trimmed common part. For Disjoint both
// are returned unchanged; for Contained the segment is empty.
type Overlap struct {
	Kind    OverlapKind
	Segment orb.LineString
	Common  orb.LineString
}

// ResolveOverlap removes the shared portion between a snapped connector
// segment and the common part. A vertex counts as shared when it lies within
// tol of the common part; snapping beforehand makes shared vertices exact.
// Mishandling full containment here would duplicate path segments, hence the
// explicit three-way split.
func ResolveOverlap(segment, common orb.LineString, tol float64) Overlap {
	if len(segment) < 2 || len(common) < 2 {
		return Overlap{Kind: OverlapDisjoint, Segment: segment, Common: common}
	}

	onCommon := make([]bool, len(segment))
	shared := 0
	for i, v := range segment {
		if DistToLine(common, v) <= tol {
			onCommon[i] = true
			shared++
		}
	}

	switch {
	case shared == len(segment):
		return Overlap{Kind: OverlapContained, Segment: nil, Common: common}
	case shared == 0:
		return Overlap{Kind: OverlapDisjoint, Segment: segment, Common: common}
	}

	// Only a contiguous run of shared vertices touching an end of the segment
	// can be cut away cleanly.
	prefix := 0
	for prefix < len(segment) && onCommon[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < len(segment)-prefix && onCommon[len(segment)-1-suffix] {
		suffix++
	}
	for i := prefix; i < len(segment)-suffix; i++ {
		if onCommon[i] {
			// Scattered shared patches cannot be trimmed into one
			// continuous remainder; the segment is kept whole.
			return Overlap{Kind: OverlapDisjoint, Segment: segment, Common: common}
		}
	}
	if prefix == 0 && suffix == 0 {
		// Shared portion lies strictly inside the segment. It stays in
		// place, and the merged path rides the common part twice there.
		return Overlap{Kind: OverlapDisjoint, Segment: segment, Common: common}
	}
	if prefix > 0 && suffix > 0 {
		// Shared at both ends with an unshared middle: only the longer run
		// is cut, the shorter one stays with the segment.
		if prefix >= suffix {
			for i := len(segment) - suffix; i < len(segment); i++ {
				onCommon[i] = false
			}
			suffix = 0
		} else {
			for i := 0; i < prefix; i++ {
				onCommon[i] = false
			}
			prefix = 0
		}
	}

	var trimmed orb.LineString
	if prefix > 0 {
		trimmed = append(orb.LineString(nil), segment[prefix-1:]...)
	} else {
		// Keep the boundary vertex so the pieces still connect.
		trimmed = append(orb.LineString(nil), segment[:len(segment)-suffix+1]...)
	}

	// Cut the matched span off the common part, keeping the longer remainder.
	minF, maxF := 1.0, 0.0
	for i, v := range segment {
		if !onCommon[i] {
			continue
		}
		_, f := NearestPoint(common, v)
		if f < minF {
			minF = f
		}
		if f > maxF {
			maxF = f
		}
	}
	var remainder orb.LineString
	if minF <= 1-maxF {
		remainder = Substring(common, maxF, 1)
	} else {
		remainder = Substring(common, 0, minF)
	}

	return Overlap{Kind: OverlapPartial, Segment: trimmed, Common: remainder}
}
