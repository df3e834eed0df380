package services

import (
	"encoding/json"
	"os"
	"strconv"

	geom2 "github.com/peterstace/simplefeatures/geom"
	"github.com/pkg/errors"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"eph-processor/internal/models"
)

// coordinatesEntry is one value of the coordinates file, keyed by the
// aglomerado code: {"2": {"nombre": "Gran La Plata", "coordenadas": [lat, lon]}}.
type coordinatesEntry struct {
	Name        string    `json:"nombre"`
	Coordinates []float64 `json:"coordenadas"`
}

// LoadCatalog builds the reference catalog from the built-in names and the
// coordinates file at path. Entries with a non-numeric key are skipped.
func LoadCatalog(path string) (*models.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading coordinates file %s", path)
	}
	var entries map[string]coordinatesEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errors.Wrapf(err, "error parsing coordinates file %s", path)
	}

	extra := make([]models.Aglomerado, 0, len(entries))
	for key, e := range entries {
		code, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		a := models.Aglomerado{Code: code, Name: e.Name}
		if len(e.Coordinates) >= 2 {
			a.Latitude, a.Longitude, a.HasCoords = e.Coordinates[0], e.Coordinates[1], true
		}
		extra = append(extra, a)
	}
	return models.NewCatalog(extra), nil
}

// Area is a query polygon held in both geometry libraries: go-geom for the
// bounding box and simplefeatures for the exact containment test.
type Area struct {
	Polygon  *geom.Polygon
	Geometry geom2.Geometry
}

// ParseArea reads a GeoJSON Polygon, or the first polygon of a MultiPolygon.
func ParseArea(geojsonStr string) (*Area, error) {
	ring, err := outerRing(geojsonStr)
	if err != nil {
		return nil, err
	}
	if len(ring) < 4 {
		return nil, errors.Errorf("polygon ring needs at least 4 positions, got %d", len(ring))
	}

	coords := make([]geom.Coord, len(ring))
	flatCoords := make([]float64, 0, len(ring)*2)
	for i, c := range ring {
		if len(c) < 2 {
			return nil, errors.Errorf("position %d has %d coordinates", i, len(c))
		}
		coords[i] = geom.Coord{c[0], c[1]}
		flatCoords = append(flatCoords, c[0], c[1])
	}
	polygon, err := geom.NewPolygon(geom.XY).SetCoords([][]geom.Coord{coords})
	if err != nil {
		return nil, errors.Wrap(err, "error creating polygon")
	}

	lineString := geom2.NewLineString(geom2.NewSequence(flatCoords, geom2.DimXY))
	if lineString.IsEmpty() {
		return nil, errors.New("error creating line string")
	}
	sfPolygon := geom2.NewPolygon([]geom2.LineString{lineString})
	if sfPolygon.IsEmpty() {
		return nil, errors.New("error creating polygon")
	}
	return &Area{Polygon: polygon, Geometry: sfPolygon.AsGeometry()}, nil
}

func outerRing(geojsonStr string) ([][]float64, error) {
	var head struct {
		Type        string          `json:"type"`
		Coordinates json.RawMessage `json:"coordinates"`
	}
	if err := json.Unmarshal([]byte(geojsonStr), &head); err != nil {
		return nil, errors.Wrap(err, "error parsing GeoJSON")
	}

	switch head.Type {
	case "Polygon":
		var rings [][][]float64
		if err := json.Unmarshal(head.Coordinates, &rings); err != nil {
			return nil, errors.Wrap(err, "error parsing polygon coordinates")
		}
		if len(rings) == 0 {
			return nil, errors.New("empty polygon coordinates")
		}
		return rings[0], nil
	case "MultiPolygon":
		var polygons [][][][]float64
		if err := json.Unmarshal(head.Coordinates, &polygons); err != nil {
			return nil, errors.Wrap(err, "error parsing MultiPolygon coordinates")
		}
		if len(polygons) == 0 || len(polygons[0]) == 0 {
			return nil, errors.New("empty MultiPolygon coordinates")
		}
		return polygons[0][0], nil
	}
	return nil, errors.Errorf("unsupported GeoJSON type: %s", head.Type)
}

// AglomeradoService answers catalog lookups and builds map layers.
type AglomeradoService struct {
	catalog *models.Catalog
	index   *models.SpatialIndex
}

// NewAglomeradoService indexes the located aglomerados of catalog.
func NewAglomeradoService(catalog *models.Catalog) *AglomeradoService {
	return &AglomeradoService{
		catalog: catalog,
		index:   models.NewSpatialIndex(catalog.Aglomerados()),
	}
}

// Catalog returns the underlying catalog.
func (s *AglomeradoService) Catalog() *models.Catalog {
	return s.catalog
}

// Search returns catalog entries whose name matches query. An empty query
// lists the whole catalog.
func (s *AglomeradoService) Search(query string) []models.Aglomerado {
	if query == "" {
		return s.catalog.Aglomerados()
	}
	return s.catalog.Search(query)
}

// Within returns the located aglomerados inside area.
func (s *AglomeradoService) Within(area *Area) []models.Aglomerado {
	return s.index.Query(area.Geometry, area.Polygon.Bounds())
}

// Rates a map layer can be colored by.
const (
	RateEmployment   = "employment"
	RateUnemployment = "unemployment"
)

// Marker colors of a map layer feature.
const (
	ColorImproved = "green"
	ColorWorsened = "red"
	ColorEqual    = "gray"
)

func markerColor(rate string, e models.RateEvolution) string {
	change := e.EmploymentChange
	if rate == RateUnemployment {
		change = -e.UnemploymentChange
	}
	switch {
	case change > 0:
		return ColorImproved
	case change < 0:
		return ColorWorsened
	}
	return ColorEqual
}

// MapLayer turns a rate evolution into a GeoJSON point layer, one feature
// per located aglomerado, colored by the change in rate. When area is set
// only aglomerados inside it are kept.
func (s *AglomeradoService) MapLayer(evolution []models.RateEvolution, rate string, area *Area) (*geojson.FeatureCollection, error) {
	if rate != RateEmployment && rate != RateUnemployment {
		return nil, errors.Errorf("unknown rate %q", rate)
	}
	var inside map[int]bool
	if area != nil {
		inside = map[int]bool{}
		for _, a := range s.Within(area) {
			inside[a.Code] = true
		}
	}

	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(evolution))}
	for _, e := range evolution {
		a, ok := s.catalog.Aglomerado(e.Aglomerado)
		if !ok || !a.HasCoords {
			continue
		}
		if inside != nil && !inside[a.Code] {
			continue
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       strconv.Itoa(a.Code),
			Geometry: a.ToGeomPoint(),
			Properties: map[string]interface{}{
				"aglomerado":          a.Code,
				"name":                a.Name,
				"from":                e.From,
				"to":                  e.To,
				"employment_rate":     e.EmploymentAfter,
				"unemployment_rate":   e.UnemploymentAfter,
				"employment_change":   e.EmploymentChange,
				"unemployment_change": e.UnemploymentChange,
				"color":               markerColor(rate, e),
			},
		})
	}
	if len(fc.Features) == 0 {
		return nil, noData("no located aglomerados in the evolution")
	}
	return fc, nil
}
