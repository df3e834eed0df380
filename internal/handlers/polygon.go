package handlers

import (
	"math"

	geom2 "github.com/peterstace/simplefeatures/geom"
	"go.uber.org/zap"
)

// Polygon complexity thresholds
const (
	// Maximum number of points before simplification is considered
	maxPoints = 700
	// Minimum number of points to consider for simplification
	minPoints = 400
	// Points per unit area above which a ring counts as dense
	maxDensity = 700
	// Base percentage of the bounding box diagonal used for epsilon
	baseEpsilonPercent = 0.1
)

// simplificationEpsilon reports whether a ring of n positions is dense
// enough to simplify and the tolerance to use, capped at 1% of the bounding
// box diagonal.
func simplificationEpsilon(polygon geom2.Polygon, n int) (bool, float64) {
	if n < minPoints {
		return false, 0
	}
	area := polygon.Area()
	if n <= maxPoints && area > 0 && float64(n)/area <= maxDensity {
		return false, 0
	}

	lo, hi, ok := polygon.Envelope().MinMaxXYs()
	if !ok {
		return false, 0
	}
	diagonal := hi.Sub(lo).Length()
	base := diagonal * baseEpsilonPercent / 100.0
	epsilon := base * math.Pow(float64(n)/float64(minPoints), 0.55)
	return true, math.Min(epsilon, diagonal*0.01)
}

// simplifyPolygon thins the outer ring of dense GeoJSON polygons so the
// containment test stays cheap. A ring that would collapse or become invalid
// is returned unchanged.
func simplifyPolygon(coordinates [][][]float64, logger *zap.Logger) [][][]float64 {
	if len(coordinates) == 0 || len(coordinates[0]) == 0 {
		return coordinates
	}
	ring := coordinates[0]
	flat := make([]float64, 0, len(ring)*2)
	for _, c := range ring {
		if len(c) < 2 {
			return coordinates
		}
		flat = append(flat, c[0], c[1])
	}
	polygon := geom2.NewPolygonXY(flat)

	ok, epsilon := simplificationEpsilon(polygon, len(ring))
	if !ok {
		return coordinates
	}
	simplified, err := polygon.Simplify(epsilon)
	if err != nil || simplified.IsEmpty() {
		logger.Debug("Polygon kept unsimplified", zap.Float64("epsilon", epsilon), zap.Error(err))
		return coordinates
	}

	seq := simplified.ExteriorRing().Coordinates()
	out := make([][]float64, seq.Length())
	for i := range out {
		xy := seq.GetXY(i)
		out[i] = []float64{xy.X, xy.Y}
	}
	logger.Debug("Polygon simplified",
		zap.Int("from", len(ring)),
		zap.Int("to", len(out)),
		zap.Float64("epsilon", epsilon))
	return [][][]float64{out}
}
