package search

import (
	"context"
	"slices"
	"sync"

	"github.com/MohanGuptaKoduru/ServiceLink/core"
)

// memoryStore is a Store backed by a slice, with injectable failures.
type memoryStore struct {
	mu          sync.Mutex
	technicians []*core.Technician
	listErr     error
	writeErr    error
	lists       int
	writeCalls  int
	vectors     map[string][]float32
	hashes      map[string]uint64
}

func newMemoryStore(technicians ...*core.Technician) *memoryStore {
	return &memoryStore{
		technicians: technicians,
		vectors:     make(map[string][]float32),
		hashes:      make(map[string]uint64),
	}
}

func (m *memoryStore) ListTechnicians(ctx context.Context) ([]*core.Technician, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists++
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]*core.Technician, len(m.technicians))
	for i, t := range m.technicians {
		out[i] = t.Clone()
	}
	return out, nil
}

func (m *memoryStore) UpdateEmbedding(ctx context.Context, id string, vector []float32, hash uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeCalls++
	if m.writeErr != nil {
		return m.writeErr
	}
	m.vectors[id] = slices.Clone(vector)
	m.hashes[id] = hash
	return nil
}

func (m *memoryStore) setListErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listErr = err
}

func (m *memoryStore) add(t *core.Technician) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.technicians = append(m.technicians, t)
}

func (m *memoryStore) counts() (lists, writes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lists, m.writeCalls
}

func (m *memoryStore) stored(id string) []float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.vectors[id]
}

// recordingMonitor captures SearchMonitor callbacks.
type recordingMonitor struct {
	mu            sync.Mutex
	stages        []string
	queryFallback bool
	technicians   int
	generation    uint64
	writeBacks    []WriteBack
	results       []*core.SearchResult
}

func (r *recordingMonitor) Start(query string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, "start")
}

func (r *recordingMonitor) AfterQueryEmbedding(fallback bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, "query")
	r.queryFallback = fallback
}

func (r *recordingMonitor) AfterSnapshotLoad(technicians int, generation uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, "snapshot")
	r.technicians = technicians
	r.generation = generation
}

func (r *recordingMonitor) AfterRanking(writeBacks []WriteBack) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, "rank")
	r.writeBacks = writeBacks
}

func (r *recordingMonitor) Finish(results []*core.SearchResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, "finish")
	r.results = results
}
