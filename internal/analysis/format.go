package analysis

import (
	"fmt"

	"github.com/JonMunkholm/exotransit/internal/core"
)

// FormatForModel flattens observations into model records, preserving order.
func FormatForModel(records []core.Observation) []Record {
	out := make([]Record, 0, len(records))
	for _, o := range records {
		r := Record{
			Name:               o.Name,
			OrbitalPeriod:      o.OrbitalPeriod,
			TransitDepth:       o.TransitDepth,
			TransitDuration:    o.TransitDuration,
			SignalToNoiseRatio: o.SignalToNoiseRatio,
			StellarRadius:      o.StellarProperties.Radius,
			StellarTemperature: o.StellarProperties.Temperature,
			StellarMagnitude:   o.StellarProperties.Magnitude,
			Notes:              o.Notes,
		}
		if !o.DateAdded.IsZero() {
			r.DateAdded = core.FormatTimestamp(o.DateAdded)
		}
		out = append(out, r)
	}
	return out
}

// NewRequest builds a classification request for records.
func NewRequest(records []core.Observation, modelName string) Request {
	return Request{
		Data:         FormatForModel(records),
		AnalysisType: DefaultAnalysisType,
		ModelName:    modelName,
	}
}

// LabelsByID pairs predictions with the IDs of the observations they were
// computed from. Predictions are positional; a response with a different
// length than records is rejected.
func LabelsByID(records []core.Observation, resp Response) (map[string]string, error) {
	if len(resp.Predictions) != len(records) {
		return nil, fmt.Errorf("analysis service returned %d predictions for %d observations",
			len(resp.Predictions), len(records))
	}

	labels := make(map[string]string, len(records))
	for i, p := range resp.Predictions {
		if p.Label == "" {
			continue
		}
		labels[records[i].ID] = p.Label
	}
	return labels, nil
}
