package sniffer

import (
	"slices"
	"sync"

	"github.com/nao1215/htmlcs/internal/model"
)

// Registry keeps the last report of every sniffed path and the most
// recent report overall. It is a debugging accessor; nothing in the
// pipeline depends on it.
type Registry struct {
	mu      sync.RWMutex
	reports map[string]*model.Report
	last    *model.Report
	lastKey string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		reports: make(map[string]*model.Report),
	}
}

// Store records report as the latest one for path and overall.
func (r *Registry) Store(path string, report *model.Report) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.reports[path] = report
	r.last = report
	r.lastKey = path
}

// Report returns a copy of the stored report for path.
func (r *Registry) Report(path string, filter ...model.MessageType) (*model.Report, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	report, ok := r.reports[path]
	if !ok {
		return nil, false
	}
	return report.Filter(filter...), true
}

// LastReport returns a copy of the most recently stored report, with
// messages restricted to filter when given. It returns an empty report
// before anything was stored. Stored reports are never modified.
func (r *Registry) LastReport(filter ...model.MessageType) *model.Report {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.last == nil {
		return &model.Report{Messages: []model.Message{}, Errors: []model.RuntimeError{}}
	}
	return r.last.Filter(filter...)
}

// LastPath returns the path of the most recently stored report.
func (r *Registry) LastPath() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastKey
}

// Paths returns the sorted paths that have a report.
func (r *Registry) Paths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	paths := make([]string, 0, len(r.reports))
	for p := range r.reports {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}
