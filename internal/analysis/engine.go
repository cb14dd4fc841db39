package analysis

import (
	"context"
	"log/slog"
	"time"

	"github.com/JonMunkholm/exotransit/internal/core"
)

// Engine is the in-process analysis service. It classifies every record with
// a Classifier and fills the batch response envelope.
type Engine struct {
	classifier Classifier
	artifact   Artifact
	metrics    *core.Metrics
	logger     *slog.Logger

	// now is replaced in tests.
	now func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithArtifact records the artifact the classifier was loaded from.
func WithArtifact(a Artifact) EngineOption {
	return func(e *Engine) { e.artifact = a }
}

// WithMetrics counts requests as source "local".
func WithMetrics(m *core.Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an Engine for classifier.
func NewEngine(classifier Classifier, opts ...EngineOption) *Engine {
	e := &Engine{
		classifier: classifier,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Classifier returns the engine's classifier.
func (e *Engine) Classifier() Classifier {
	return e.classifier
}

// Artifact returns the artifact the engine was built from, if any.
func (e *Engine) Artifact() Artifact {
	return e.artifact
}

// Analyze labels every record of req in order.
func (e *Engine) Analyze(ctx context.Context, req Request) (Response, error) {
	start := e.now()

	if err := ctx.Err(); err != nil {
		e.metrics.RecordAnalysis("local", err)
		return Response{}, err
	}

	predictions := make([]Prediction, 0, len(req.Data))
	for _, r := range req.Data {
		predictions = append(predictions, Prediction{
			Name:  r.Name,
			Label: e.classifier.ClassifyRecord(r),
		})
	}

	version := req.ModelName
	if version == "" {
		version = DefaultModelVersion
	}

	end := e.now()
	resp := Response{
		Success:         true,
		Predictions:     predictions,
		Insights:        []string{},
		Recommendations: []string{},
		Anomalies:       []map[string]any{},
		ModelVersion:    version,
		Timestamp:       float64(end.UnixNano()) / 1e9,
		ProcessingTime:  float64(end.Sub(start).Microseconds()) / 1000,
	}

	e.metrics.RecordAnalysis("local", nil)
	e.logger.Debug("batch classified",
		"records", len(predictions),
		"model_version", version,
		"processing_ms", resp.ProcessingTime,
	)
	return resp, nil
}

// Health always succeeds for the local engine.
func (e *Engine) Health(context.Context) error {
	return nil
}
