package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/MohanGuptaKoduru/ServiceLink/core"
	"github.com/MohanGuptaKoduru/ServiceLink/storage"
)

// TechnicianRepository implements storage.TechnicianRepository using BadgerDB.
type TechnicianRepository struct {
	backend *Backend
}

var _ storage.TechnicianRepository = (*TechnicianRepository)(nil)

// newTechnicianRepository returns the concrete type for use inside the package.
func newTechnicianRepository(backend *Backend) *TechnicianRepository {
	return &TechnicianRepository{backend: backend}
}

// NewTechnicianRepository creates a technician repository over an open backend.
func NewTechnicianRepository(backend *Backend) storage.TechnicianRepository {
	return newTechnicianRepository(backend)
}

// Close is a no-op; the backend is closed by its owner.
func (r *TechnicianRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *TechnicianRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddTechnicians adds one or more technicians to storage. The records are
// stamped with their ID and timestamps in place; if nothing is stored they
// are left as they were passed in.
func (r *TechnicianRepository) AddTechnicians(ctx context.Context, technicians ...*core.Technician) ([]*core.Technician, error) {
	type stamp struct {
		id               string
		created, updated time.Time
	}
	stamps := make([]stamp, len(technicians))
	for i, t := range technicians {
		if err := core.ValidateTechnician(t); err != nil {
			return nil, err
		}
		stamps[i] = stamp{id: t.ID, created: t.CreatedAt, updated: t.UpdatedAt}
	}
	unstamp := func() {
		for i, t := range technicians {
			t.ID, t.CreatedAt, t.UpdatedAt = stamps[i].id, stamps[i].created, stamps[i].updated
		}
	}

	err := r.backend.Update(ctx, func(tx *badger.Txn) error {
		// A conflict retry starts over from the caller's values.
		unstamp()
		now := time.Now().UTC()
		for _, t := range technicians {
			if t.ID == "" {
				t.ID = uuid.NewString()
			} else {
				existing, err := readTechnician(tx, t.ID)
				if err != nil {
					return err
				}
				if existing != nil {
					return storage.ErrDuplicateKey
				}
			}
			if t.CreatedAt.IsZero() {
				t.CreatedAt = now
			}
			t.UpdatedAt = now

			if err := tx.Set(makeTechnicianKey(t.ID), storage.MarshalTechnician(t)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		unstamp()
		return nil, err
	}
	return technicians, nil
}

// UpdateTechnicians replaces existing technicians.
func (r *TechnicianRepository) UpdateTechnicians(ctx context.Context, technicians ...*core.Technician) ([]*core.Technician, error) {
	for _, t := range technicians {
		if err := core.ValidateTechnician(t); err != nil {
			return nil, err
		}
	}

	err := r.backend.Update(ctx, func(tx *badger.Txn) error {
		for _, t := range technicians {
			old, err := readTechnician(tx, t.ID)
			if err != nil {
				return err
			}
			if old == nil {
				return storage.ErrNotFound
			}
			t.CreatedAt = old.CreatedAt
			t.UpdatedAt = time.Now().UTC()
			if err := tx.Set(makeTechnicianKey(t.ID), storage.MarshalTechnician(t)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return technicians, nil
}

// DeleteTechnicians removes technicians by their IDs.
func (r *TechnicianRepository) DeleteTechnicians(ctx context.Context, ids ...string) error {
	return r.backend.Update(ctx, func(tx *badger.Txn) error {
		for _, id := range ids {
			t, err := readTechnician(tx, id)
			if err != nil {
				return err
			}
			if t == nil {
				return storage.ErrNotFound
			}
			if err := tx.Delete(makeTechnicianKey(id)); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetTechnician retrieves a single technician by ID.
func (r *TechnicianRepository) GetTechnician(ctx context.Context, id string) (*core.Technician, error) {
	var result *core.Technician
	err := r.backend.View(ctx, func(tx *badger.Txn) error {
		var err error
		result, err = readTechnician(tx, id)
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	})
	return result, err
}

// ListTechnicians returns every technician ordered by ID.
func (r *TechnicianRepository) ListTechnicians(ctx context.Context) ([]*core.Technician, error) {
	var results []*core.Technician
	err := r.backend.View(ctx, func(tx *badger.Txn) error {
		return iterate(tx, []byte(technicianPrefix), func(val []byte) error {
			t, err := storage.UnmarshalTechnician(val)
			if err != nil {
				return err
			}
			results = append(results, t)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// UpdateEmbedding stores a computed embedding and its content hash.
func (r *TechnicianRepository) UpdateEmbedding(ctx context.Context, id string, vector []float32, hash uint64) error {
	if !core.IsFinite(vector) {
		return core.ErrNonFiniteEmbedding
	}
	return r.modify(ctx, id, func(t *core.Technician) {
		t.Embedding = append([]float32(nil), vector...)
		t.EmbeddingHash = hash
	})
}

// SetAvailability toggles whether the technician accepts bookings.
func (r *TechnicianRepository) SetAvailability(ctx context.Context, id string, available bool) error {
	return r.modify(ctx, id, func(t *core.Technician) {
		t.Available = available
		t.UpdatedAt = time.Now().UTC()
	})
}

// UpdateRating stores a recomputed rating and review count.
func (r *TechnicianRepository) UpdateRating(ctx context.Context, id string, rating float64, reviewCount int) error {
	if rating < 0 || rating > 5 {
		return core.ErrRatingOutOfRange
	}
	return r.modify(ctx, id, func(t *core.Technician) {
		t.Rating = rating
		t.ReviewCount = reviewCount
		t.UpdatedAt = time.Now().UTC()
	})
}

// modify applies fn to the stored technician inside one read-write transaction.
func (r *TechnicianRepository) modify(ctx context.Context, id string, fn func(t *core.Technician)) error {
	return r.backend.Update(ctx, func(tx *badger.Txn) error {
		t, err := readTechnician(tx, id)
		if err != nil {
			return err
		}
		if t == nil {
			return storage.ErrNotFound
		}
		fn(t)
		return tx.Set(makeTechnicianKey(id), storage.MarshalTechnician(t))
	})
}

// readTechnician reads a technician from the transaction; nil if absent.
func readTechnician(tx *badger.Txn, id string) (*core.Technician, error) {
	item, err := tx.Get(makeTechnicianKey(id))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var t *core.Technician
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		t, unmarshalErr = storage.UnmarshalTechnician(val)
		return unmarshalErr
	})
	return t, err
}
