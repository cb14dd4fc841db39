package analysis

import (
	"context"
	"log/slog"

	"github.com/JonMunkholm/exotransit/internal/config"
	"github.com/JonMunkholm/exotransit/internal/core"
)

// New returns the Analyzer selected by cfg: a Client when an endpoint is
// configured, otherwise an Engine using the configured artifact.
func New(cfg config.AnalysisConfig, metrics *core.Metrics, logger *slog.Logger) (Analyzer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.Endpoint != "" {
		client, err := NewClient(ClientConfig{
			Endpoint: cfg.Endpoint,
			Timeout:  cfg.Timeout,
			CacheTTL: cfg.CacheTTL,
		}, metrics, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("using remote analysis service", "endpoint", client.Endpoint())
		return client, nil
	}

	classifier, artifact, err := ClassifierFromArtifact(cfg.ArtifactPath)
	if err != nil {
		logger.Warn("analysis artifact unusable, using default thresholds",
			"path", cfg.ArtifactPath, "error", err)
	}
	logger.Info("using local rule engine",
		"artifact_version", artifact.Version,
		"exo_snr", classifier.Thresholds.ExoSNR,
		"exo_depth", classifier.Thresholds.ExoDepth,
	)
	return NewEngine(classifier,
		WithArtifact(artifact),
		WithMetrics(metrics),
		WithLogger(logger),
	), nil
}

// Classify runs analyzer over records and returns the labels keyed by
// observation ID.
func Classify(ctx context.Context, analyzer Analyzer, records []core.Observation, modelName string) (map[string]string, error) {
	if len(records) == 0 {
		return nil, ErrEmptyBatch
	}

	resp, err := analyzer.Analyze(ctx, NewRequest(records, modelName))
	if err != nil {
		return nil, err
	}
	return LabelsByID(records, resp)
}
