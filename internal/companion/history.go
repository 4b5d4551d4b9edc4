// Package companion receives match reports from the referee's device,
// keeps a history of them and serves it over HTTP.
package companion

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"refwatch/internal/core/match"
	"refwatch/internal/metrics"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"
)

// ErrReportNotFound is returned for an id the history does not hold.
var ErrReportNotFound = errors.New("report not found")

// History is the on-disk list of received reports. Adding a report whose
// id is already known is a no-op, so redelivered reports are harmless.
type History struct {
	path string

	mu      sync.RWMutex
	reports []match.Report
	ids     map[uuid.UUID]int
}

// OpenHistory loads the history at path. A missing file is an empty history.
func OpenHistory(path string) (*History, error) {
	history := &History{path: path, ids: make(map[uuid.UUID]int)}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return history, nil
		}
		return nil, fmt.Errorf("read history: %w", err)
	}

	var reports []match.Report
	if err := json.Unmarshal(data, &reports); err != nil {
		return nil, fmt.Errorf("parse history: %w", err)
	}
	for _, report := range reports {
		if _, seen := history.ids[report.ID]; seen {
			continue
		}
		history.ids[report.ID] = len(history.reports)
		history.reports = append(history.reports, report)
	}
	metrics.StoredReports.Set(float64(len(history.reports)))
	return history, nil
}

// Add stores report and rewrites the file. It reports whether the report
// was new.
func (history *History) Add(report match.Report) (bool, error) {
	history.mu.Lock()
	defer history.mu.Unlock()

	if _, seen := history.ids[report.ID]; seen {
		return false, nil
	}

	reports := append(slices.Clip(history.reports), report.Clone())
	if err := history.writeLocked(reports); err != nil {
		return false, err
	}
	history.ids[report.ID] = len(history.reports)
	history.reports = reports
	metrics.StoredReports.Set(float64(len(history.reports)))
	return true, nil
}

// Get returns the report with id.
func (history *History) Get(id uuid.UUID) (match.Report, bool) {
	history.mu.RLock()
	defer history.mu.RUnlock()
	i, ok := history.ids[id]
	if !ok {
		return match.Report{}, false
	}
	return history.reports[i].Clone(), true
}

// Update applies edit to a copy of the report with id and stores the
// result if it is still a valid report. A failed edit or write leaves the
// history unchanged.
func (history *History) Update(id uuid.UUID, edit func(*match.Report) error) (match.Report, error) {
	history.mu.Lock()
	defer history.mu.Unlock()

	i, ok := history.ids[id]
	if !ok {
		return match.Report{}, fmt.Errorf("%s: %w", id, ErrReportNotFound)
	}
	updated := history.reports[i].Clone()
	if err := edit(&updated); err != nil {
		return match.Report{}, err
	}
	updated.ID = id
	if err := updated.Validate(); err != nil {
		return match.Report{}, fmt.Errorf("%w: %w", ErrInvalidReport, err)
	}

	reports := slices.Clone(history.reports)
	reports[i] = updated
	if err := history.writeLocked(reports); err != nil {
		return match.Report{}, err
	}
	history.reports = reports
	return updated.Clone(), nil
}

// Delete removes the report with id and rewrites the file.
func (history *History) Delete(id uuid.UUID) error {
	history.mu.Lock()
	defer history.mu.Unlock()

	i, ok := history.ids[id]
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrReportNotFound)
	}
	reports := slices.Delete(slices.Clone(history.reports), i, i+1)
	if err := history.writeLocked(reports); err != nil {
		return err
	}

	history.reports = reports
	history.ids = make(map[uuid.UUID]int, len(reports))
	for j, report := range reports {
		history.ids[report.ID] = j
	}
	metrics.StoredReports.Set(float64(len(history.reports)))
	return nil
}

// List returns every report, most recently received first.
func (history *History) List() []match.Report {
	history.mu.RLock()
	defer history.mu.RUnlock()
	reports := make([]match.Report, 0, len(history.reports))
	for _, report := range slices.Backward(history.reports) {
		reports = append(reports, report.Clone())
	}
	return reports
}

// Len returns the number of stored reports.
func (history *History) Len() int {
	history.mu.RLock()
	defer history.mu.RUnlock()
	return len(history.reports)
}

func (history *History) writeLocked(reports []match.Report) error {
	data, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(history.path), 0o755); err != nil {
		return fmt.Errorf("create history directory: %w", err)
	}
	if err := renameio.WriteFile(history.path, data, 0o644); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return nil
}
