package core

import (
	"context"
	"io"
	"sort"
	"strings"
	"time"
)

// Sample limits
const (
	maxNewRowSamples    = 10
	maxErrorSamples     = 20
	maxDuplicateSamples = 10
)

// PreviewSummary contains the summary counts for an import preview.
type PreviewSummary struct {
	TotalRows       int `json:"totalRows"`
	NewRows         int `json:"newRows"`
	ErrorRows       int `json:"errorRows"`
	DuplicateInFile int `json:"duplicateInFile"`
	AlreadyStored   int `json:"alreadyStored"`
}

// DuplicatePreview is a name that appears on more than one accepted row.
type DuplicatePreview struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ImportPreview describes what an import would do without changing the
// collection.
type ImportPreview struct {
	Summary          PreviewSummary     `json:"summary"`
	NewRowSamples    []Observation      `json:"newRowSamples"`
	ErrorSamples     []FailedRow        `json:"errorSamples"`
	DuplicateSamples []DuplicatePreview `json:"duplicateSamples"`

	// StoredNames lists accepted names that already exist in the collection.
	// Importing them again adds new observations alongside the stored ones.
	StoredNames      []string `json:"storedNames"`
	ProcessingTimeMs int64    `json:"processingTimeMs"`
}

// BuildPreview summarizes res against the existing collection. Names are
// compared case-insensitively.
func BuildPreview(res ImportResult, existing []Observation) ImportPreview {
	p := ImportPreview{
		Summary: PreviewSummary{
			TotalRows: len(res.Successful) + len(res.Failed),
			NewRows:   len(res.Successful),
			ErrorRows: len(res.Failed),
		},
		NewRowSamples:    firstN(res.Successful, maxNewRowSamples),
		ErrorSamples:     firstN(res.Failed, maxErrorSamples),
		DuplicateSamples: []DuplicatePreview{},
		StoredNames:      []string{},
	}

	stored := make(map[string]bool, len(existing))
	for _, o := range existing {
		if key := nameKey(o.Name); key != "" {
			stored[key] = true
		}
	}

	counts := make(map[string]int)
	display := make(map[string]string)
	for _, o := range res.Successful {
		key := nameKey(o.Name)
		if key == "" {
			continue
		}
		if counts[key] == 0 {
			display[key] = o.Name
			if stored[key] {
				p.StoredNames = append(p.StoredNames, o.Name)
			}
		}
		counts[key]++
	}
	p.Summary.AlreadyStored = len(p.StoredNames)

	for key, n := range counts {
		if n < 2 {
			continue
		}
		p.Summary.DuplicateInFile += n - 1
		p.DuplicateSamples = append(p.DuplicateSamples, DuplicatePreview{Name: display[key], Count: n})
	}
	sort.Slice(p.DuplicateSamples, func(i, j int) bool {
		a, b := p.DuplicateSamples[i], p.DuplicateSamples[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Name < b.Name
	})
	p.DuplicateSamples = firstN(p.DuplicateSamples, maxDuplicateSamples)

	return p
}

// Preview parses an import file exactly as Import would and reports the
// outcome. Nothing is stored and no import slot is taken.
func (s *Service) Preview(ctx context.Context, r io.Reader) (ImportPreview, error) {
	start := time.Now()

	text, err := ReadImportText(r, s.maxFileSize)
	if err != nil {
		return ImportPreview{}, err
	}
	if err := ctx.Err(); err != nil {
		return ImportPreview{}, err
	}

	p := BuildPreview(s.importer.Import(text), s.List())
	p.ProcessingTimeMs = time.Since(start).Milliseconds()
	return p, nil
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// firstN returns at most n leading elements, never nil.
func firstN[T any](items []T, n int) []T {
	if len(items) > n {
		items = items[:n]
	}
	out := make([]T, len(items))
	copy(out, items)
	return out
}
