package report

import (
	"sync"

	"platewatch/internal/model"
)

// Reporter receives every decision the recognition loop makes.
type Reporter interface {
	Report(d model.Decision)
}

// Func adapts a plain function to Reporter.
type Func func(d model.Decision)

func (f Func) Report(d model.Decision) { f(d) }

// Multi forwards each decision to all reporters in order.
type Multi []Reporter

func (m Multi) Report(d model.Decision) {
	for _, r := range m {
		r.Report(d)
	}
}

// Summary is a snapshot of what Latest has seen.
type Summary struct {
	Last   *model.Decision              `json:"last,omitempty"`
	Counts map[model.DecisionKind]int64 `json:"counts"`
}

// Latest remembers the most recent decision and counts decisions per kind.
type Latest struct {
	mu     sync.RWMutex
	last   *model.Decision
	counts map[model.DecisionKind]int64
}

func NewLatest() *Latest {
	return &Latest{counts: make(map[model.DecisionKind]int64)}
}

func (l *Latest) Report(d model.Decision) {
	d.Frame = nil

	l.mu.Lock()
	defer l.mu.Unlock()
	l.last = &d
	l.counts[d.Kind]++
}

func (l *Latest) Summary() Summary {
	l.mu.RLock()
	defer l.mu.RUnlock()

	counts := make(map[model.DecisionKind]int64, len(l.counts))
	for k, v := range l.counts {
		counts[k] = v
	}
	s := Summary{Counts: counts}
	if l.last != nil {
		last := *l.last
		s.Last = &last
	}
	return s
}
