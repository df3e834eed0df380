package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"eph-processor/internal/models"
	"eph-processor/internal/services"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var columns = []string{
	models.ColCodusu, models.ColNroHogar, models.ColAglomerado, models.ColYear,
	models.ColQuarter, models.ColWeight, models.ColStatus, models.ColAge, models.ColEducation,
}

type fakeDataset struct {
	inds      *models.Individuals
	err       error
	updateErr error
}

func (f *fakeDataset) Households() (*models.Households, error) {
	return nil, errors.Wrap(services.ErrNoData, "no households")
}

func (f *fakeDataset) Individuals() (*models.Individuals, error) {
	return f.inds, f.err
}

func (f *fakeDataset) Status() (services.DatasetStatus, error) {
	return services.DatasetStatus{Ready: f.err == nil}, nil
}

func (f *fakeDataset) Update(ctx context.Context, progress services.MergeProgress) (*services.UpdateResult, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &services.UpdateResult{RunID: "run-1"}, nil
}

func active(aglomerado int, period models.Period, weight float64, status string) models.Individual {
	in := models.Individual{
		Aglomerado: models.Code{Raw: "x", Value: aglomerado, Valid: true},
		Period:     period,
		Weight:     models.Number{Value: weight, Valid: true},
		Status:     models.ParseCode(status),
		Occupation: models.ParseCode("3"),
	}
	in.Derived = services.ClassifyIndividual(in)
	return in
}

func newTestHandler(t *testing.T, ds *fakeDataset) http.Handler {
	t.Helper()
	catalog := models.NewCatalog([]models.Aglomerado{
		{Code: 13, Name: "Gran Córdoba", Latitude: -31.42, Longitude: -64.18, HasCoords: true},
		{Code: 32, Name: "Ciudad Autónoma de Buenos Aires", Latitude: -34.60, Longitude: -58.38, HasCoords: true},
	})
	h := NewHandler(ds, services.NewAglomeradoService(catalog), nil, zaptest.NewLogger(t))
	return h.Router()
}

func sampleDataset() *fakeDataset {
	before := models.Period{Year: 2022, Quarter: 1}
	after := models.Period{Year: 2023, Quarter: 4}
	return &fakeDataset{inds: &models.Individuals{Columns: columns, Rows: []models.Individual{
		active(13, before, 9, "1"),
		active(13, before, 1, "2"),
		active(13, after, 8, "1"),
		active(13, after, 2, "2"),
		active(32, before, 1, "1"),
		active(32, after, 1, "1"),
	}}}
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandleReport(t *testing.T) {
	h := newTestHandler(t, sampleDataset())
	rec := do(t, h, http.MethodGet, "/api/reports/unemployment-rate?aglomerado=13", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got []models.PeriodValue
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, []models.PeriodValue{{Year: 2022, Quarter: 1, Value: 10}, {Year: 2023, Quarter: 4, Value: 20}}, got)
}

func TestHandleReport_Errors(t *testing.T) {
	h := newTestHandler(t, sampleDataset())
	tests := []struct {
		target string
		status int
	}{
		{"/api/reports/nope", http.StatusNotFound},
		{"/api/reports/education-by-period", http.StatusBadRequest},
		{"/api/reports/labor-rates?quarter=9", http.StatusBadRequest},
		{"/api/reports/household-types", http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := do(t, h, http.MethodGet, tt.target, "")
		assert.Equal(t, tt.status, rec.Code, tt.target)
	}
}

func TestHandleReport_NoDataMessage(t *testing.T) {
	h := newTestHandler(t, &fakeDataset{err: errors.Wrap(services.ErrNoData, "run a dataset update")})
	rec := do(t, h, http.MethodGet, "/api/reports/labor-rates", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	var msg messageResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&msg))
	assert.Contains(t, msg.Message, "run a dataset update")
}

func TestHandleReports(t *testing.T) {
	rec := do(t, newTestHandler(t, sampleDataset()), http.MethodGet, "/api/reports", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []struct {
		Name string `json:"name"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	assert.NotEmpty(t, list)
}

func TestHandleExport(t *testing.T) {
	h := newTestHandler(t, sampleDataset())
	rec := do(t, h, http.MethodGet, "/api/reports/employment-rate/export?format=csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Equal(t, "attachment; filename=employment-rate.csv", rec.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "year,quarter,value\n"))

	rec = do(t, h, http.MethodGet, "/api/reports/employment-rate/export?format=pdf", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleUpdate(t *testing.T) {
	rec := do(t, newTestHandler(t, sampleDataset()), http.MethodPost, "/api/dataset/update", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "run-1")

	missing := &fakeDataset{updateErr: &services.MissingFilesError{Messages: []string{"Missing 'usu_hogar_' file in folder 2023_T1."}}}
	rec = do(t, newTestHandler(t, missing), http.MethodPost, "/api/dataset/update", "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var msg messageResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&msg))
	assert.Equal(t, missing.updateErr.(*services.MissingFilesError).Messages, msg.Details)

	busy := &fakeDataset{updateErr: services.ErrUpdateInProgress}
	rec = do(t, newTestHandler(t, busy), http.MethodPost, "/api/dataset/update", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	empty := &fakeDataset{updateErr: errors.Wrap(services.ErrNoInputFiles, "no usu_hogar_*.txt files under files_eph")}
	rec = do(t, newTestHandler(t, empty), http.MethodPost, "/api/dataset/update", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&msg))
	assert.Contains(t, msg.Message, "No survey files found")

	rec = do(t, newTestHandler(t, sampleDataset()), http.MethodGet, "/api/dataset/update", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleDataset(t *testing.T) {
	rec := do(t, newTestHandler(t, sampleDataset()), http.MethodGet, "/api/dataset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ready":true`)
}

func TestHandleAglomerados(t *testing.T) {
	rec := do(t, newTestHandler(t, sampleDataset()), http.MethodGet, "/api/aglomerados?name=cordoba", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got []models.Aglomerado
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, 13, got[0].Code)
}

type featureCollection struct {
	Type     string `json:"type"`
	Features []struct {
		Properties map[string]interface{} `json:"properties"`
	} `json:"features"`
}

func TestHandleMapRates(t *testing.T) {
	h := newTestHandler(t, sampleDataset())
	rec := do(t, h, http.MethodGet, "/api/map/rates?rate=unemployment", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/geo+json", rec.Header().Get("Content-Type"))

	var fc featureCollection
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 2)
	assert.Equal(t, services.ColorWorsened, fc.Features[0].Properties["color"])
	assert.Equal(t, services.ColorEqual, fc.Features[1].Properties["color"])
}

func TestHandleMapRates_Area(t *testing.T) {
	h := newTestHandler(t, sampleDataset())
	body := `{"type":"Feature","rate":"employment","geometry":{"type":"Polygon","coordinates":[[[-65,-32],[-63,-32],[-63,-31],[-65,-31],[-65,-32]]]}}`
	rec := do(t, h, http.MethodPost, "/api/map/rates", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var fc featureCollection
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&fc))
	require.Len(t, fc.Features, 1)
	assert.Equal(t, float64(13), fc.Features[0].Properties["aglomerado"])

	collection := `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{},"geometry":{"type":"Polygon","coordinates":[[[-65,-32],[-63,-32],[-63,-31],[-65,-31],[-65,-32]]]}}]}`
	rec = do(t, h, http.MethodPost, "/api/map/rates", collection)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleMapRates_BadRequests(t *testing.T) {
	h := newTestHandler(t, sampleDataset())
	for _, tt := range []struct{ method, target, body string }{
		{http.MethodGet, "/api/map/rates?rate=poverty", ""},
		{http.MethodPost, "/api/map/rates", "{"},
		{http.MethodPost, "/api/map/rates", `{"type":"Point"}`},
		{http.MethodPost, "/api/map/rates", `{"type":"FeatureCollection","features":[]}`},
		{http.MethodPost, "/api/map/rates", `{"type":"Feature","geometry":{"type":"LineString","coordinates":[]}}`},
	} {
		rec := do(t, h, tt.method, tt.target, tt.body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, tt.body)
	}
}
