package models

import (
	"fmt"

	geom2 "github.com/peterstace/simplefeatures/geom"
	"github.com/twpayne/go-geom"
)

// SpatialIndex answers point-in-area queries over the aglomerados that have
// coordinates.
type SpatialIndex struct {
	aglomerados []Aglomerado
	bounds      *geom.Bounds
}

// NewSpatialIndex indexes the located entries of aglomerados.
func NewSpatialIndex(aglomerados []Aglomerado) *SpatialIndex {
	located := make([]Aglomerado, 0, len(aglomerados))
	bounds := geom.NewBounds(geom.XY)
	for _, a := range aglomerados {
		if !a.HasCoords {
			continue
		}
		located = append(located, a)
		bounds.Extend(a.ToGeomPoint())
	}
	return &SpatialIndex{aglomerados: located, bounds: bounds}
}

// Bounds returns the lon/lat box of the indexed points.
func (s *SpatialIndex) Bounds() *geom.Bounds {
	return s.bounds
}

// Len returns the number of indexed aglomerados.
func (s *SpatialIndex) Len() int {
	return len(s.aglomerados)
}

// Query returns the aglomerados whose location lies within area. box, when
// non-nil, rejects points outside the area's bounding box before the exact test.
func (s *SpatialIndex) Query(area geom2.Geometry, box *geom.Bounds) []Aglomerado {
	if len(s.aglomerados) == 0 {
		return nil
	}

	results := make([]Aglomerado, 0, len(s.aglomerados))
	for _, a := range s.aglomerados {
		if box != nil && !box.OverlapsPoint(geom.XY, geom.Coord{a.Longitude, a.Latitude}) {
			continue
		}
		point, err := geom2.UnmarshalWKT(fmt.Sprintf("POINT(%f %f)", a.Longitude, a.Latitude))
		if err != nil {
			continue
		}
		contains, err := geom2.Contains(area, point)
		if err != nil {
			continue
		}
		if contains {
			results = append(results, a)
		}
	}
	return results
}
