package store

import (
	"context"
	"slices"
	"sync"

	"github.com/matzehuels/linkrank/pkg/pipeline"
)

// DefaultCapacity is the number of reports a Memory store keeps.
const DefaultCapacity = 100

// Memory keeps reports in process. When full, the oldest report is
// evicted. List orders by save time.
type Memory struct {
	opts     Options
	capacity int

	mu    sync.RWMutex
	byID  map[string]*pipeline.Report
	order []string
}

// NewMemory returns a store holding up to capacity reports
// (DefaultCapacity when capacity <= 0).
func NewMemory(capacity int, opts Options) *Memory {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Memory{
		opts:     opts,
		capacity: capacity,
		byID:     make(map[string]*pipeline.Report),
	}
}

func (m *Memory) Save(_ context.Context, r *pipeline.Report) error {
	cp := m.opts.prepare(r)
	cp.Ranks, cp.GraphValue = nil, nil

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[r.ID]; !ok {
		m.order = append(m.order, r.ID)
	}
	m.byID[r.ID] = cp
	for len(m.order) > m.capacity {
		delete(m.byID, m.order[0])
		m.order = m.order[1:]
	}
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*pipeline.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r, nil
}

func (m *Memory) List(_ context.Context, limit int) ([]*pipeline.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*pipeline.Report, 0, len(m.order))
	for _, id := range slices.Backward(m.order) {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, summary(m.byID[id]))
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }

var _ Store = (*Memory)(nil)
