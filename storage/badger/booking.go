package badger

import (
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/MohanGuptaKoduru/ServiceLink/core"
	"github.com/MohanGuptaKoduru/ServiceLink/storage"
)

// BookingRepository implements storage.BookingRepository using BadgerDB.
// Bookings are indexed by customer and by technician so that both
// dashboards can list them without a full scan.
type BookingRepository struct {
	backend *Backend
}

var _ storage.BookingRepository = (*BookingRepository)(nil)

func newBookingRepository(backend *Backend) *BookingRepository {
	return &BookingRepository{backend: backend}
}

// NewBookingRepository creates a booking repository over an open backend.
func NewBookingRepository(backend *Backend) storage.BookingRepository {
	return newBookingRepository(backend)
}

// Close is a no-op; the backend is closed by its owner.
func (r *BookingRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *BookingRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddBooking stores a new booking.
func (r *BookingRepository) AddBooking(ctx context.Context, b *core.Booking) (*core.Booking, error) {
	if b != nil && b.Status == "" {
		b.Status = core.BookingPending
	}
	if err := core.ValidateBooking(b); err != nil {
		return nil, err
	}

	err := r.backend.Update(ctx, func(tx *badger.Txn) error {
		if b.ID == "" {
			b.ID = uuid.NewString()
		} else {
			existing, err := readBooking(tx, b.ID)
			if err != nil {
				return err
			}
			if existing != nil {
				return storage.ErrDuplicateKey
			}
		}
		now := time.Now().UTC()
		if b.CreatedAt.IsZero() {
			b.CreatedAt = now
		}
		b.UpdatedAt = now

		if err := tx.Set(makeBookingKey(b.ID), storage.MarshalBooking(b)); err != nil {
			return err
		}
		return setIndices(tx, b)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// UpdateBooking replaces an existing booking.
func (r *BookingRepository) UpdateBooking(ctx context.Context, b *core.Booking) (*core.Booking, error) {
	if err := core.ValidateBooking(b); err != nil {
		return nil, err
	}

	err := r.backend.Update(ctx, func(tx *badger.Txn) error {
		old, err := readBooking(tx, b.ID)
		if err != nil {
			return err
		}
		if old == nil {
			return storage.ErrNotFound
		}
		return writeBooking(tx, old, b)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ModifyBooking reads, changes and writes a booking in one transaction, so
// fn sees the state the write replaces.
func (r *BookingRepository) ModifyBooking(ctx context.Context, id string, fn func(b *core.Booking) error) (*core.Booking, error) {
	var result *core.Booking
	err := r.backend.Update(ctx, func(tx *badger.Txn) error {
		old, err := readBooking(tx, id)
		if err != nil {
			return err
		}
		if old == nil {
			return storage.ErrNotFound
		}

		b := *old
		if err := fn(&b); err != nil {
			return err
		}
		b.ID = old.ID
		if err := core.ValidateBooking(&b); err != nil {
			return err
		}
		if err := writeBooking(tx, old, &b); err != nil {
			return err
		}
		result = &b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// writeBooking stores b over old, moving the owner indices if they changed.
func writeBooking(tx *badger.Txn, old, b *core.Booking) error {
	b.CreatedAt = old.CreatedAt
	b.UpdatedAt = time.Now().UTC()
	if err := tx.Set(makeBookingKey(b.ID), storage.MarshalBooking(b)); err != nil {
		return err
	}

	if old.CustomerID != b.CustomerID || old.TechnicianID != b.TechnicianID {
		if err := deleteIndices(tx, old); err != nil {
			return err
		}
		return setIndices(tx, b)
	}
	return nil
}

// GetBooking retrieves a booking by ID.
func (r *BookingRepository) GetBooking(ctx context.Context, id string) (*core.Booking, error) {
	var result *core.Booking
	err := r.backend.View(ctx, func(tx *badger.Txn) error {
		var err error
		result, err = readBooking(tx, id)
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

// ListBookingsByCustomer returns a customer's bookings, newest first.
func (r *BookingRepository) ListBookingsByCustomer(ctx context.Context, customerID string) ([]*core.Booking, error) {
	return r.listByIndex(ctx, bookingCustomerPrefix, customerID)
}

// ListBookingsByTechnician returns a technician's bookings, newest first.
func (r *BookingRepository) ListBookingsByTechnician(ctx context.Context, technicianID string) ([]*core.Booking, error) {
	return r.listByIndex(ctx, bookingTechnicianPrefix, technicianID)
}

func (r *BookingRepository) listByIndex(ctx context.Context, prefix, owner string) ([]*core.Booking, error) {
	var results []*core.Booking
	err := r.backend.View(ctx, func(tx *badger.Txn) error {
		return iterate(tx, makePartialOwnerIndexKey(prefix, owner), func(val []byte) error {
			id, err := storage.UnmarshalID(val)
			if err != nil {
				return err
			}
			b, err := readBooking(tx, id)
			if err != nil {
				return err
			}
			if b != nil {
				results = append(results, b)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	// Index keys sort oldest first.
	slices.Reverse(results)
	return results, nil
}

func setIndices(tx *badger.Txn, b *core.Booking) error {
	value := storage.MarshalID(b.ID)
	if err := tx.Set(makeOwnerIndexKey(bookingCustomerPrefix, b.CustomerID, b.CreatedAt, b.ID), value); err != nil {
		return err
	}
	return tx.Set(makeOwnerIndexKey(bookingTechnicianPrefix, b.TechnicianID, b.CreatedAt, b.ID), value)
}

func deleteIndices(tx *badger.Txn, b *core.Booking) error {
	if err := tx.Delete(makeOwnerIndexKey(bookingCustomerPrefix, b.CustomerID, b.CreatedAt, b.ID)); err != nil {
		return err
	}
	return tx.Delete(makeOwnerIndexKey(bookingTechnicianPrefix, b.TechnicianID, b.CreatedAt, b.ID))
}

// readBooking reads a booking from the transaction; nil if absent.
func readBooking(tx *badger.Txn, id string) (*core.Booking, error) {
	item, err := tx.Get(makeBookingKey(id))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var b *core.Booking
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		b, unmarshalErr = storage.UnmarshalBooking(val)
		return unmarshalErr
	})
	return b, err
}
