// Package analysis classifies observations as confirmed exoplanets,
// candidates or non-planets.
//
// The wire format is the batch contract of the classification service:
// observations are flattened to snake_case records, posted as a Request and
// answered with one Prediction per record. Two Analyzer implementations
// exist: Engine runs the threshold rules in-process and Client calls a
// remote service over HTTP.
package analysis

import (
	"context"
	"errors"
)

// Labels produced by the classifier.
const (
	LabelExo       = "exo"
	LabelCandidate = "candidate"
	LabelNotExo    = "not exo"
)

const (
	// DefaultModelVersion is reported when the request names no model.
	DefaultModelVersion = "api-1.0.0"

	// DefaultAnalysisType is sent when the caller leaves AnalysisType empty.
	DefaultAnalysisType = "classification"
)

var (
	ErrUnavailable = errors.New("analysis service unavailable")
	ErrEmptyBatch  = errors.New("no observations to analyze")
)

// Record is the flat model input built from one observation.
type Record struct {
	Name               string  `json:"name,omitempty"`
	OrbitalPeriod      float64 `json:"orbital_period"`
	TransitDepth       float64 `json:"transit_depth"`
	TransitDuration    float64 `json:"transit_duration"`
	SignalToNoiseRatio float64 `json:"signal_to_noise_ratio"`
	StellarRadius      float64 `json:"stellar_radius"`
	StellarTemperature float64 `json:"stellar_temperature"`
	StellarMagnitude   float64 `json:"stellar_magnitude"`
	DateAdded          string  `json:"date_added,omitempty"`
	Notes              string  `json:"notes,omitempty"`
}

// Request is a batch analysis request.
type Request struct {
	Data         []Record       `json:"data"`
	AnalysisType string         `json:"analysis_type,omitempty"`
	Parameters   map[string]any `json:"parameters,omitempty"`
	ModelName    string         `json:"model_name,omitempty"`
}

// Prediction is the label assigned to one record, in request order.
type Prediction struct {
	Name  string `json:"name,omitempty"`
	Label string `json:"label"`
}

// Response is the batch analysis result.
type Response struct {
	Success         bool             `json:"success"`
	Predictions     []Prediction     `json:"predictions"`
	Insights        []string         `json:"insights"`
	Recommendations []string         `json:"recommendations"`
	Anomalies       []map[string]any `json:"anomalies"`
	ModelVersion    string           `json:"model_version"`
	Timestamp       float64          `json:"timestamp"`       // Unix seconds
	ProcessingTime  float64          `json:"processing_time"` // Milliseconds
}

// Analyzer runs batch analysis. Engine and Client both implement it.
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (Response, error)
	Health(ctx context.Context) error
}
