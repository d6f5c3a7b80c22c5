package badger

import (
	"errors"

	"github.com/MohanGuptaKoduru/ServiceLink/storage"
)

// Repositories bundles the repositories that share one BadgerDB backend.
type Repositories struct {
	Technicians storage.TechnicianRepository
	Bookings    storage.BookingRepository
	backend     *Backend
}

// NewRepositories opens (or creates) a database directory and returns its repositories.
func NewRepositories(path string) (*Repositories, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	return newRepositories(backend), nil
}

func newRepositories(backend *Backend) *Repositories {
	return &Repositories{
		Technicians: newTechnicianRepository(backend),
		Bookings:    newBookingRepository(backend),
		backend:     backend,
	}
}

// Close closes the repositories and then the backend.
func (r *Repositories) Close() error {
	return errors.Join(
		r.Technicians.Close(),
		r.Bookings.Close(),
		r.backend.Close(),
	)
}
