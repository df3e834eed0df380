package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"eph-processor/internal/export"
	"eph-processor/internal/logging"
	"eph-processor/internal/models"
	"eph-processor/internal/reports"
	"eph-processor/internal/services"
)

// Dataset is the update job and record source behind the API.
type Dataset interface {
	reports.Source
	Status() (services.DatasetStatus, error)
	Update(ctx context.Context, progress services.MergeProgress) (*services.UpdateResult, error)
}

// Handler serves the report API.
type Handler struct {
	dataset     Dataset
	env         reports.Env
	aglomerados *services.AglomeradoService
	logger      *zap.Logger
}

// NewHandler creates a Handler. income may be nil.
func NewHandler(dataset Dataset, aglomerados *services.AglomeradoService, income *services.IncomeService, logger *zap.Logger) *Handler {
	return &Handler{
		dataset: dataset,
		env: reports.Env{
			Source:     dataset,
			Aggregator: services.NewAggregator(aglomerados.Catalog()),
			Income:     income,
		},
		aglomerados: aglomerados,
		logger:      logging.OrNop(logger),
	}
}

// Router returns the routes of the API.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(h.logRequests)
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/dataset", h.HandleDataset).Methods(http.MethodGet)
	api.HandleFunc("/dataset/update", h.HandleUpdate).Methods(http.MethodPost)
	api.HandleFunc("/aglomerados", h.HandleAglomerados).Methods(http.MethodGet)
	api.HandleFunc("/reports", h.HandleReports).Methods(http.MethodGet)
	api.HandleFunc("/reports/{name}", h.HandleReport).Methods(http.MethodGet)
	api.HandleFunc("/reports/{name}/export", h.HandleExport).Methods(http.MethodGet)
	api.HandleFunc("/map/rates", h.HandleMapRates).Methods(http.MethodGet, http.MethodPost)
	return r
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()
		next.ServeHTTP(w, r)
		h.logger.Info("Request processed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(startTime)))
	})
}

type messageResponse struct {
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("Error encoding response", zap.Error(err))
	}
}

// writeError maps service errors to responses. Missing data is not a
// failure: it gets a 404 with an informational message.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var missing *services.MissingFilesError
	switch {
	case errors.As(err, &missing):
		h.writeJSON(w, http.StatusUnprocessableEntity, messageResponse{Message: "Missing survey files", Details: missing.Messages})
	case errors.Is(err, services.ErrNoInputFiles):
		h.writeJSON(w, http.StatusNotFound, messageResponse{Message: "No survey files found: " + err.Error()})
	case errors.Is(err, services.ErrNoData):
		h.writeJSON(w, http.StatusNotFound, messageResponse{Message: "No data available: " + err.Error()})
	case errors.Is(err, reports.ErrUnknownReport):
		h.writeJSON(w, http.StatusNotFound, messageResponse{Message: err.Error()})
	case errors.Is(err, reports.ErrBadParams), errors.Is(err, export.ErrUnknownFormat):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrUpdateInProgress):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		h.logger.Error("Error processing request", zap.Error(err))
		http.Error(w, "Error processing request", http.StatusInternalServerError)
	}
}

// HandleDataset reports the coverage of the updated files.
func (h *Handler) HandleDataset(w http.ResponseWriter, r *http.Request) {
	status, err := h.dataset.Status()
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, status)
}

// HandleUpdate runs the merge and classification job.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	res, err := h.dataset.Update(r.Context(), nil)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

// HandleAglomerados searches the catalog by name.
func (h *Handler) HandleAglomerados(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.aglomerados.Search(r.URL.Query().Get("name")))
}

// HandleReports lists the available reports.
func (h *Handler) HandleReports(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, reports.All())
}

func (h *Handler) runReport(r *http.Request) (interface{}, error) {
	report, err := reports.Lookup(mux.Vars(r)["name"])
	if err != nil {
		return nil, err
	}
	params, err := reports.ParseParams(r.URL.Query().Get)
	if err != nil {
		return nil, err
	}
	return report.Run(h.env, params)
}

// HandleReport returns the rows of one report as JSON.
func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	rows, err := h.runReport(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, rows)
}

// HandleExport returns the rows of one report as a CSV or XLSX download.
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = export.FormatCSV
	}
	if format != export.FormatCSV && format != export.FormatXLSX {
		h.writeError(w, errors.Wrapf(export.ErrUnknownFormat, "%q", format))
		return
	}
	rows, err := h.runReport(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", export.ContentType(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.%s", mux.Vars(r)["name"], format))
	if err := export.Write(w, format, rows); err != nil {
		h.logger.Error("Error writing export", zap.String("format", format), zap.Error(err))
	}
}

// HandleMapRates returns the rate evolution as a GeoJSON point layer. A POST
// body with a Polygon Feature or FeatureCollection restricts the layer to
// the aglomerados inside it.
func (h *Handler) HandleMapRates(w http.ResponseWriter, r *http.Request) {
	rate := r.URL.Query().Get("rate")
	var area *services.Area
	if r.Method == http.MethodPost {
		var req models.AreaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request format", http.StatusBadRequest)
			return
		}
		geometry, err := h.requestGeometry(req)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		geojsonStr, _ := json.Marshal(geometry)
		if area, err = services.ParseArea(string(geojsonStr)); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Rate != "" {
			rate = req.Rate
		}
	}
	if rate == "" {
		rate = services.RateEmployment
	}
	if rate != services.RateEmployment && rate != services.RateUnemployment {
		http.Error(w, fmt.Sprintf("rate must be %q or %q", services.RateEmployment, services.RateUnemployment), http.StatusBadRequest)
		return
	}

	inds, err := h.dataset.Individuals()
	if err != nil {
		h.writeError(w, err)
		return
	}
	evolution, err := h.env.Aggregator.RateEvolution(inds)
	if err != nil {
		h.writeError(w, err)
		return
	}
	layer, err := h.aglomerados.MapLayer(evolution, rate, area)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	if err := json.NewEncoder(w).Encode(layer); err != nil {
		h.logger.Warn("Error encoding response", zap.Error(err))
	}
}

func (h *Handler) requestGeometry(req models.AreaRequest) (models.PolygonGeometry, error) {
	var geometry models.PolygonGeometry
	switch req.Type {
	case "FeatureCollection":
		if len(req.Features) == 0 {
			return geometry, errors.New("GeoJSON feature is required")
		}
		geometry = req.Features[0].Geometry
	case "Feature":
		geometry = req.Geometry
	default:
		return geometry, errors.New("Invalid GeoJSON type. Must be either 'Feature' or 'FeatureCollection'")
	}
	if geometry.Type != "Polygon" {
		return geometry, errors.New("Only Polygon geometry type is supported")
	}
	geometry.Coordinates = simplifyPolygon(geometry.Coordinates, h.logger)
	return geometry, nil
}
