package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/exotransit/internal/analysis"
	"github.com/JonMunkholm/exotransit/internal/core"
	"github.com/JonMunkholm/exotransit/internal/logging"
	"github.com/JonMunkholm/exotransit/internal/web/middleware"
)

// multipartOverhead is allowed on top of the file size for form framing.
const multipartOverhead = 1 << 20

// ImportResponse is the body returned by POST /api/import.
type ImportResponse struct {
	core.ImportResult
	Summary string `json:"summary"`
}

// ValidateResponse is the body returned by POST /api/validate.
type ValidateResponse struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// AnalyzeObservationsResponse is the body returned by
// POST /api/observations/analyze.
type AnalyzeObservationsResponse struct {
	Analyzed int               `json:"analyzed"`
	Updated  int               `json:"updated"`
	Labels   map[string]string `json:"labels"`
}

// ImportsResponse is the body returned by GET /api/imports.
type ImportsResponse struct {
	Imports []core.ImportSummary     `json:"imports"`
	Limiter core.ImportLimiterStatus `json:"limiter"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"observations": len(s.service.List()),
	})
}

// =============================================================================
// Observations
// =============================================================================

func (s *Server) handleListObservations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.List())
}

func (s *Server) handleGetObservation(w http.ResponseWriter, r *http.Request) {
	o, err := s.service.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) handleCreateObservation(w http.ResponseWriter, r *http.Request) {
	var form core.FormInput
	if err := decodeJSON(w, r, &form); err != nil {
		s.fail(w, r, err)
		return
	}

	o, err := s.service.Create(r.Context(), form)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("observation created", "id", o.ID, "name", o.Name)
	writeJSON(w, http.StatusCreated, o)
}

func (s *Server) handleUpdateObservation(w http.ResponseWriter, r *http.Request) {
	var form core.FormInput
	if err := decodeJSON(w, r, &form); err != nil {
		s.fail(w, r, err)
		return
	}

	o, err := s.service.Update(r.Context(), chi.URLParam(r, "id"), form)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) handleDeleteObservation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.service.Delete(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("observation deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// handleResetObservations removes every observation.
func (s *Server) handleResetObservations(w http.ResponseWriter, r *http.Request) {
	removed := s.service.Reset(r.Context())
	logging.FromContext(r.Context()).Warn("observations reset", "removed", removed, "ip", middleware.ClientIP(r))
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// handleValidate runs the field validator without storing anything.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var form core.FormInput
	if err := decodeJSON(w, r, &form); err != nil {
		s.fail(w, r, err)
		return
	}

	errs := core.ValidateFields(form.Values())
	writeJSON(w, http.StatusOK, ValidateResponse{Valid: len(errs) == 0, Errors: errs})
}

// =============================================================================
// Import / export
// =============================================================================

// handleImport accepts a multipart form with a "file" field or a raw CSV
// body. Row failures are part of a 200 response.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	res, err := s.importRequest(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ImportResponse{ImportResult: res, Summary: res.Summary()})
}

// handlePreviewImport reports what an import would do without storing
// anything.
func (s *Server) handlePreviewImport(w http.ResponseWriter, r *http.Request) {
	_, body, cleanup, err := s.importSource(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer cleanup()

	preview, err := s.service.Preview(r.Context(), body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (s *Server) importRequest(w http.ResponseWriter, r *http.Request) (core.ImportResult, error) {
	name, body, cleanup, err := s.importSource(w, r)
	if err != nil {
		return core.ImportResult{}, err
	}
	defer cleanup()

	return s.service.Import(withRequestMetadata(r.Context(), r), name, body)
}

// importSource returns the uploaded file from a multipart "file" field, or
// the raw body named by ?name=. cleanup must be called when done.
func (s *Server) importSource(w http.ResponseWriter, r *http.Request) (string, io.Reader, func(), error) {
	maxSize := s.cfg.Import.MaxFileSize
	noop := func() {}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return "", nil, noop, fmt.Errorf("%w: limit is %d bytes", core.ErrFileTooLarge, maxSize)
			}
			return "", nil, noop, fmt.Errorf("%w: %w", errBadBody, err)
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			_ = r.MultipartForm.RemoveAll()
			return "", nil, noop, errNoFile
		}
		return header.Filename, file, func() {
			file.Close()
			_ = r.MultipartForm.RemoveAll()
		}, nil
	}

	if r.ContentLength == 0 {
		return "", nil, noop, errNoFile
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "upload.csv"
	}
	return name, r.Body, noop, nil
}

// handleExport downloads the collection as CSV. ?result=true adds the
// Result column.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	includeResult, _ := strconv.ParseBool(r.URL.Query().Get("result"))
	body := s.service.Export(includeResult)

	filename := fmt.Sprintf("exoplanet-observations-%s.csv", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_, _ = io.WriteString(w, body)
}

func (s *Server) handleImports(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ImportsResponse{
		Imports: s.service.History(),
		Limiter: s.service.LimiterStatus(),
	})
}

// =============================================================================
// Analysis
// =============================================================================

// handleAnalyzeObservations classifies the whole collection and stores the
// labels on the observations.
func (s *Server) handleAnalyzeObservations(w http.ResponseWriter, r *http.Request) {
	records := s.service.List()

	labels, err := analysis.Classify(r.Context(), s.analyzer, records, s.cfg.Analysis.ModelName)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	updated := s.service.ApplyResults(r.Context(), labels)
	logging.FromContext(r.Context()).Info("observations analyzed",
		"analyzed", len(records), "updated", updated)

	writeJSON(w, http.StatusOK, AnalyzeObservationsResponse{
		Analyzed: len(records),
		Updated:  updated,
		Labels:   labels,
	})
}

// handleAnalyze is the batch analysis endpoint. Errors use the service's
// {"error": "..."} shape rather than ErrorResponse.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analysis.Request
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}

	resp, err := s.analyzer.Analyze(r.Context(), req)
	if err != nil {
		logging.FromContext(r.Context()).Error("batch analysis failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "Batch inference error: " + err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAnalyzeHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.analyzer.Health(r.Context()); err != nil {
		logging.FromContext(r.Context()).Warn("analysis health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// predictFields are the inputs of POST /api/predict, in report order.
var predictFields = []string{
	"orbital_period",
	"transit_depth",
	"duration",
	"snr",
	"star_radius",
	"star_temperature",
	"star_magnitude",
}

// handlePredict classifies a single observation. Every feature must be a
// number greater than 0 except star_magnitude.
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := decodeJSON(w, r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON body"})
		return
	}

	var missing []string
	for _, f := range predictFields {
		if v, ok := body[f]; !ok || v == nil {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "Missing fields: " + strings.Join(missing, ", "),
		})
		return
	}

	values := make(map[string]float64, len(predictFields))
	for _, f := range predictFields {
		v, ok := body[f].(float64)
		if !ok {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": f + " must be a valid number"})
			return
		}
		if f != "star_magnitude" && v <= 0 {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": f + " must be greater than 0"})
			return
		}
		values[f] = v
	}

	resp, err := s.analyzer.Analyze(r.Context(), analysis.Request{
		Data: []analysis.Record{{
			OrbitalPeriod:      values["orbital_period"],
			TransitDepth:       values["transit_depth"],
			TransitDuration:    values["duration"],
			SignalToNoiseRatio: values["snr"],
			StellarRadius:      values["star_radius"],
			StellarTemperature: values["star_temperature"],
			StellarMagnitude:   values["star_magnitude"],
		}},
	})
	if err != nil || len(resp.Predictions) != 1 {
		if err == nil {
			err = fmt.Errorf("expected 1 prediction, got %d", len(resp.Predictions))
		}
		logging.FromContext(r.Context()).Error("prediction failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Inference error: " + err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"label": resp.Predictions[0].Label})
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %w", errBadBody, err)
	}
	return nil
}
