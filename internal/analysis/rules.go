package analysis

// rules.go holds the threshold classifier and its artifact loader.
//
// An artifact is a small JSON document produced offline from survey data:
//
//	{"model": "rules", "source": "koi+toi+k2", "version": "2024-10",
//	 "thresholds": {"exo_snr": 20, "exo_depth": 500, "candidate_snr": 10, "candidate_depth": 200}}
//
// Thresholds missing from the artifact keep their defaults.

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ArtifactFileName is the file searched for when no explicit path is set.
const ArtifactFileName = "model_artifact.json"

// Thresholds are the minimum signal-to-noise ratio and transit depth (ppm)
// for each positive label.
type Thresholds struct {
	ExoSNR         float64 `json:"exo_snr"`
	ExoDepth       float64 `json:"exo_depth"`
	CandidateSNR   float64 `json:"candidate_snr"`
	CandidateDepth float64 `json:"candidate_depth"`
}

// DefaultThresholds returns the built-in rule set.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ExoSNR:         20,
		ExoDepth:       500,
		CandidateSNR:   10,
		CandidateDepth: 200,
	}
}

// Artifact describes a threshold set and where it came from.
type Artifact struct {
	Model      string     `json:"model"`
	Thresholds Thresholds `json:"thresholds"`
	Source     string     `json:"source"`
	Version    string     `json:"version"`
}

// Classifier labels observations by comparing SNR and depth with thresholds.
type Classifier struct {
	Thresholds Thresholds
}

// NewClassifier returns a classifier using the default thresholds.
func NewClassifier() Classifier {
	return Classifier{Thresholds: DefaultThresholds()}
}

// Classify returns LabelExo, LabelCandidate or LabelNotExo.
func (c Classifier) Classify(snr, depth float64) string {
	t := c.Thresholds
	switch {
	case snr >= t.ExoSNR && depth >= t.ExoDepth:
		return LabelExo
	case snr >= t.CandidateSNR && depth >= t.CandidateDepth:
		return LabelCandidate
	default:
		return LabelNotExo
	}
}

// ClassifyRecord classifies one model record.
func (c Classifier) ClassifyRecord(r Record) string {
	return c.Classify(r.SignalToNoiseRatio, r.TransitDepth)
}

// LoadArtifact reads an artifact file. Thresholds absent from the file are
// filled from DefaultThresholds.
func LoadArtifact(path string) (Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Artifact{}, fmt.Errorf("read artifact: %w", err)
	}

	a := Artifact{Thresholds: DefaultThresholds()}
	if err := json.Unmarshal(data, &a); err != nil {
		return Artifact{}, fmt.Errorf("parse artifact %s: %w", path, err)
	}
	return a, nil
}

// ArtifactCandidates lists the paths searched under dir, in order.
func ArtifactCandidates(dir string) []string {
	return []string{
		filepath.Join(dir, "api", "exo_api", ArtifactFileName),
		filepath.Join(dir, "api", ArtifactFileName),
		filepath.Join(dir, ArtifactFileName),
	}
}

// FindArtifact loads the first readable artifact among paths. It returns
// fs.ErrNotExist when none exists; unreadable or malformed candidates are
// skipped.
func FindArtifact(paths ...string) (Artifact, string, error) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		a, err := LoadArtifact(p)
		if err != nil {
			continue
		}
		return a, p, nil
	}
	return Artifact{}, "", fs.ErrNotExist
}

// ClassifierFromArtifact returns a classifier for the artifact at path, or
// the first artifact found under the working directory when path is empty.
// It falls back to the default thresholds when no artifact can be used; the
// returned Artifact is zero in that case.
func ClassifierFromArtifact(path string) (Classifier, Artifact, error) {
	if path != "" {
		a, err := LoadArtifact(path)
		if err != nil {
			return NewClassifier(), Artifact{}, err
		}
		return Classifier{Thresholds: a.Thresholds}, a, nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return NewClassifier(), Artifact{}, nil
	}
	a, _, err := FindArtifact(ArtifactCandidates(wd)...)
	if err != nil {
		return NewClassifier(), Artifact{}, nil
	}
	return Classifier{Thresholds: a.Thresholds}, a, nil
}
