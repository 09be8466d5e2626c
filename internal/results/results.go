// Package results serves the pre-computed artifacts shown after inference: the records
// discarded by the offline filter and the ranked risk table.
package results

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"dashboard/internal/dataset"
	"dashboard/internal/models"
)

// Kind names one of the static result files.
type Kind string

const (
	Discarded Kind = "discarded"
	Ranked    Kind = "ranked"
)

// XLSXContentType is the MIME type of both result files.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// FilteringStages returns the dataset size after each step of the offline cleaning funnel.
func FilteringStages() []models.FilteringStage {
	return []models.FilteringStage{
		{Name: "Dataset Inicial", Size: 1955},
		{Name: "Após filtro de idade", Size: 1954},
		{Name: "Após remover valores ausentes em NEUTRÓFILOS", Size: 1952},
		{Name: "Após remover valores ausentes em ERITRÓCITOS", Size: 1952},
		{Name: "Após remover valores ausentes em LINFÓCITOS", Size: 1952},
		{Name: "Após remover duplicados", Size: 1952},
	}
}

// Store reads the static result files. Files are read on every call so a replaced
// artifact is picked up without a restart.
type Store struct {
	paths      map[Kind]string
	riskColumn string
}

func NewStore(discardedPath, rankedPath, riskColumn string) *Store {
	return &Store{
		paths: map[Kind]string{
			Discarded: discardedPath,
			Ranked:    rankedPath,
		},
		riskColumn: riskColumn,
	}
}

// Path returns the file backing kind.
func (s *Store) Path(kind Kind) (string, error) {
	p, ok := s.paths[kind]
	if !ok {
		return "", fmt.Errorf("unknown result kind %q", kind)
	}
	return p, nil
}

// Filename is the download name of kind.
func (s *Store) Filename(kind Kind) string {
	return filepath.Base(s.paths[kind])
}

// Table parses the file backing kind.
func (s *Store) Table(kind Kind) (*dataset.Table, error) {
	p, err := s.Path(kind)
	if err != nil {
		return nil, err
	}
	return dataset.ReadFile(p)
}

// RiskOptions returns the distinct risk values of the ranked table in file order.
func (s *Store) RiskOptions() ([]string, error) {
	t, err := s.Table(Ranked)
	if err != nil {
		return nil, err
	}
	if t.ColumnIndex(s.riskColumn) < 0 {
		return nil, fmt.Errorf("ranked results have no %q column", s.riskColumn)
	}
	return t.Unique(s.riskColumn), nil
}

// FilterRanked returns the ranked rows whose risk equals risk exactly.
func (s *Store) FilterRanked(risk string) (*dataset.Table, error) {
	t, err := s.Table(Ranked)
	if err != nil {
		return nil, err
	}
	if t.ColumnIndex(s.riskColumn) < 0 {
		return nil, fmt.Errorf("ranked results have no %q column", s.riskColumn)
	}
	return t.Filter(s.riskColumn, risk), nil
}

// RiskCounts tallies the ranked table over the canonical risk categories, in severity order.
// Categories absent from the file count zero; values outside the canonical set are ignored.
func (s *Store) RiskCounts() ([]models.RiskCount, error) {
	t, err := s.Table(Ranked)
	if err != nil {
		return nil, err
	}

	byValue := make(map[string]int)
	for _, c := range t.CountBy(s.riskColumn) {
		byValue[c.Value] = c.Count
	}

	counts := make([]models.RiskCount, 0, len(models.RiskCategories))
	for _, cat := range models.RiskCategories {
		counts = append(counts, models.RiskCount{Category: cat, Count: byValue[cat]})
	}
	return counts, nil
}

// Open returns the raw bytes of kind for a verbatim download.
func (s *Store) Open(kind Kind) (io.ReadCloser, int64, error) {
	p, err := s.Path(kind)
	if err != nil {
		return nil, 0, err
	}

	f, err := os.Open(p)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open %s: %w", p, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, info.Size(), nil
}

// DataURI encodes kind as an inline data URI usable as a download link href.
func (s *Store) DataURI(kind Kind) (string, error) {
	rc, _, err := s.Open(kind)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", kind, err)
	}
	return "data:" + XLSXContentType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
