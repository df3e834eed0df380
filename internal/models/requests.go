package models

// PolygonGeometry is a GeoJSON Polygon geometry.
type PolygonGeometry struct {
	Type        string        `json:"type"`
	Coordinates [][][]float64 `json:"coordinates"`
}

// AreaRequest selects a map area, as a GeoJSON Feature or FeatureCollection
// whose first feature is a Polygon.
type AreaRequest struct {
	Type string `json:"type"`
	Rate string `json:"rate"`
	// For FeatureCollection format
	Features []struct {
		Type       string          `json:"type"`
		Properties struct{}        `json:"properties"`
		Geometry   PolygonGeometry `json:"geometry"`
	} `json:"features"`
	// For Feature format
	Geometry PolygonGeometry `json:"geometry"`
}
