package search

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/MohanGuptaKoduru/ServiceLink/core"
	"github.com/MohanGuptaKoduru/ServiceLink/storage"
)

type snapshotState struct {
	technicians []*core.Technician
	generation  uint64
	loadedAt    time.Time
}

// Snapshot is an in-process copy of every technician, owned by the caller.
//
// Readers share the current slice without locking. Refresh builds a new slice
// and swaps it in atomically, so a reader never sees a half-built collection.
// Records in a snapshot are treated as read-only.
type Snapshot struct {
	reader storage.TechnicianReader
	logger *slog.Logger
	loads  metric.Int64Counter

	current    atomic.Pointer[snapshotState]
	generation atomic.Uint64
	loadMu     sync.Mutex
}

// SnapshotOption configures a Snapshot.
type SnapshotOption func(*Snapshot)

// WithSnapshotLogger sets the snapshot logger.
func WithSnapshotLogger(logger *slog.Logger) SnapshotOption {
	return func(s *Snapshot) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSnapshotMeterProvider sets where snapshot loads are counted.
func WithSnapshotMeterProvider(mp metric.MeterProvider) SnapshotOption {
	return func(s *Snapshot) {
		s.initMetrics(mp)
	}
}

// NewSnapshot creates an empty snapshot over reader. Nothing is fetched until
// the first call to Technicians or Refresh.
func NewSnapshot(reader storage.TechnicianReader, opts ...SnapshotOption) *Snapshot {
	s := &Snapshot{
		reader: reader,
		logger: slog.Default(),
	}
	s.initMetrics(otel.GetMeterProvider())
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "snapshot")
	return s
}

func (s *Snapshot) initMetrics(mp metric.MeterProvider) {
	s.loads, _ = mp.Meter(instrumentationName).Int64Counter("servicelink.snapshot.loads",
		metric.WithDescription("Technician snapshot loads by status"))
}

// Technicians returns the current technicians and their generation, loading
// them on first use.
func (s *Snapshot) Technicians(ctx context.Context) ([]*core.Technician, uint64, error) {
	if st := s.current.Load(); st != nil {
		return st.technicians, st.generation, nil
	}

	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	if st := s.current.Load(); st != nil {
		return st.technicians, st.generation, nil
	}
	st, err := s.load(ctx)
	if err != nil {
		return nil, 0, err
	}
	return st.technicians, st.generation, nil
}

// Refresh fetches technicians from the datastore and replaces the snapshot.
// On failure the previous snapshot stays visible.
func (s *Snapshot) Refresh(ctx context.Context) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	_, err := s.load(ctx)
	return err
}

// Invalidate drops the snapshot; the next read reloads it.
func (s *Snapshot) Invalidate() {
	s.current.Store(nil)
}

// Generation returns the generation of the visible snapshot, or 0 if none is loaded.
func (s *Snapshot) Generation() uint64 {
	if st := s.current.Load(); st != nil {
		return st.generation
	}
	return 0
}

// LoadedAt returns when the visible snapshot was fetched.
func (s *Snapshot) LoadedAt() time.Time {
	if st := s.current.Load(); st != nil {
		return st.loadedAt
	}
	return time.Time{}
}

// load must be called with loadMu held.
func (s *Snapshot) load(ctx context.Context) (*snapshotState, error) {
	technicians, err := s.reader.ListTechnicians(ctx)
	if err != nil {
		s.logger.Error("technician snapshot load failed", "err", err)
		s.loads.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "error")))
		return nil, fmt.Errorf("%w: %w", ErrSnapshotLoad, err)
	}

	st := &snapshotState{
		technicians: technicians,
		generation:  s.generation.Add(1),
		loadedAt:    time.Now(),
	}
	s.current.Store(st)
	s.loads.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "ok")))
	s.logger.Info("technician snapshot loaded", "technicians", len(technicians), "generation", st.generation)
	return st, nil
}
