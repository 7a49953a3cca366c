package loader

import (
	"sync"

	"pricemirror/internal/domain"
)

// Batch is the result of one sub-batch, or of a whole run once drained.
type Batch struct {
	Resolved   []domain.ResolvedTicker
	Unresolved []domain.Symbol
	Outcomes   []Outcome
}

// Len is the number of symbols the batch accounts for.
func (b Batch) Len() int { return len(b.Resolved) + len(b.Unresolved) }

// Aggregator collects per-batch results from concurrent workers. Publish may
// be called from any goroutine; Drain is called once after all workers have
// returned.
type Aggregator struct {
	mu        sync.Mutex
	acc       Batch
	processed int
}

// NewAggregator returns an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Publish appends one sub-batch under a single lock and returns the running
// processed total.
func (a *Aggregator) Publish(b Batch) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acc.Resolved = append(a.acc.Resolved, b.Resolved...)
	a.acc.Unresolved = append(a.acc.Unresolved, b.Unresolved...)
	a.acc.Outcomes = append(a.acc.Outcomes, b.Outcomes...)
	a.processed += b.Len()
	return a.processed
}

// Processed is the number of symbols published so far.
func (a *Aggregator) Processed() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.processed
}

// Drain hands over everything published, leaving the processed count
// intact. Order is publication order, which varies between runs.
func (a *Aggregator) Drain() Batch {
	a.mu.Lock()
	defer a.mu.Unlock()
	b := a.acc
	a.acc = Batch{}
	return b
}
