package core

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors returned by the collection and service.
var (
	ErrNotFound     = errors.New("observation not found")
	ErrDuplicateID  = errors.New("duplicate observation id")
	ErrFileTooLarge = errors.New("file too large")
)

// StellarProperties groups the host star measurements of an observation.
type StellarProperties struct {
	Radius      float64 `json:"radius"`      // Solar radii, >= 0
	Temperature float64 `json:"temperature"` // Kelvin, >= 0
	Magnitude   float64 `json:"magnitude"`   // Apparent magnitude, may be negative
}

// Observation is one exoplanet transit measurement plus its stellar properties.
// ID is assigned once at creation and never changes.
type Observation struct {
	ID                 string            `json:"id"`
	Name               string            `json:"name"`
	OrbitalPeriod      float64           `json:"orbitalPeriod"`      // days
	TransitDepth       float64           `json:"transitDepth"`       // ppm
	TransitDuration    float64           `json:"transitDuration"`    // hours
	SignalToNoiseRatio float64           `json:"signalToNoiseRatio"` // unitless
	StellarProperties  StellarProperties `json:"stellarProperties"`
	DateAdded          time.Time         `json:"dateAdded"`
	Notes              string            `json:"notes,omitempty"`
	Result             string            `json:"result,omitempty"` // Label from the analysis step
}

// FormInput is the unvalidated, all-string staging shape used for manual entry.
type FormInput struct {
	Name               string `json:"name"`
	OrbitalPeriod      string `json:"orbitalPeriod"`
	TransitDepth       string `json:"transitDepth"`
	TransitDuration    string `json:"transitDuration"`
	SignalToNoiseRatio string `json:"signalToNoiseRatio"`
	StellarRadius      string `json:"stellarRadius"`
	StellarTemperature string `json:"stellarTemperature"`
	StellarMagnitude   string `json:"stellarMagnitude"`
	Notes              string `json:"notes"`
}

// Values returns the form as a field name -> raw value mapping.
func (f FormInput) Values() map[string]string {
	return map[string]string{
		FieldName:               f.Name,
		FieldOrbitalPeriod:      f.OrbitalPeriod,
		FieldTransitDepth:       f.TransitDepth,
		FieldTransitDuration:    f.TransitDuration,
		FieldSignalToNoiseRatio: f.SignalToNoiseRatio,
		FieldStellarRadius:      f.StellarRadius,
		FieldStellarTemperature: f.StellarTemperature,
		FieldStellarMagnitude:   f.StellarMagnitude,
		FieldNotes:              f.Notes,
	}
}

// ErrorKind classifies the errors produced by validation and import.
type ErrorKind string

const (
	KindRequiredFieldMissing ErrorKind = "required_field_missing"
	KindNumericParseFailure  ErrorKind = "numeric_parse_failure"
	KindBelowMinimum         ErrorKind = "below_minimum"
	KindInsufficientColumns  ErrorKind = "insufficient_columns"
	KindInvalidRowFormat     ErrorKind = "invalid_row_format"
	KindUnexpectedRowError   ErrorKind = "unexpected_row_error"
)

// FailedRow describes one CSV row that could not be turned into an observation.
type FailedRow struct {
	Row     int       `json:"row"` // Line index; the header is row 0
	Error   string    `json:"error"`
	Kind    ErrorKind `json:"kind"`
	RawData []string  `json:"rawData"`
}

// ImportResult partitions the rows of one import into successes and failures.
type ImportResult struct {
	Successful []Observation `json:"successful"`
	Failed     []FailedRow   `json:"failed"`
}

// Store persists the whole observation collection as one unit.
// Implementations live in the store package.
type Store interface {
	Load(ctx context.Context) ([]Observation, error)
	Save(ctx context.Context, observations []Observation) error
}

// ImportSummary is a history entry for a completed import.
type ImportSummary struct {
	ImportID   string        `json:"importId"`
	FileName   string        `json:"fileName"`
	Accepted   int           `json:"accepted"`
	Failed     int           `json:"failed"`
	Duration   time.Duration `json:"duration"`
	ImportedAt time.Time     `json:"importedAt"`
	Source     string        `json:"source,omitempty"`   // http, cli
	ClientIP   string        `json:"clientIp,omitempty"` // Set for HTTP imports
}
