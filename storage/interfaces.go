// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"context"

	"github.com/MohanGuptaKoduru/ServiceLink/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// The context passed to fn may contain transaction state.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// TechnicianReader is the read side used by the search snapshot.
type TechnicianReader interface {
	// ListTechnicians returns every technician ordered by ID.
	// Each call returns fresh copies; callers may mutate them.
	ListTechnicians(ctx context.Context) ([]*core.Technician, error)
}

// EmbeddingWriter persists computed embeddings. It is the write-back side of
// the vector cache.
type EmbeddingWriter interface {
	// UpdateEmbedding stores vector and hash on the technician with the given ID
	// without touching any other field.
	// Returns ErrNotFound if the technician doesn't exist.
	UpdateEmbedding(ctx context.Context, id string, vector []float32, hash uint64) error
}

// TechnicianRepository provides operations for managing technicians.
type TechnicianRepository interface {
	Repository
	TechnicianReader
	EmbeddingWriter

	// AddTechnicians adds one or more technicians to storage.
	// Records with an empty ID get a new UUID.
	// Sets CreatedAt if not already set.
	// Returns ErrDuplicateKey if a supplied ID already exists.
	AddTechnicians(ctx context.Context, technicians ...*core.Technician) ([]*core.Technician, error)

	// UpdateTechnicians replaces existing technicians.
	// Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if any technician doesn't exist.
	UpdateTechnicians(ctx context.Context, technicians ...*core.Technician) ([]*core.Technician, error)

	// DeleteTechnicians removes technicians by their IDs.
	// Returns ErrNotFound if any technician doesn't exist.
	DeleteTechnicians(ctx context.Context, ids ...string) error

	// GetTechnician retrieves a single technician by ID.
	// Returns ErrNotFound if the technician doesn't exist.
	GetTechnician(ctx context.Context, id string) (*core.Technician, error)

	// SetAvailability toggles whether the technician accepts bookings.
	SetAvailability(ctx context.Context, id string, available bool) error

	// UpdateRating stores a recomputed rating and review count.
	UpdateRating(ctx context.Context, id string, rating float64, reviewCount int) error
}

// BookingRepository provides operations for managing bookings.
type BookingRepository interface {
	Repository

	// AddBooking stores a new booking, assigning an ID and CreatedAt if unset.
	AddBooking(ctx context.Context, booking *core.Booking) (*core.Booking, error)

	// UpdateBooking replaces an existing booking.
	// Returns ErrNotFound if the booking doesn't exist.
	UpdateBooking(ctx context.Context, booking *core.Booking) (*core.Booking, error)

	// ModifyBooking applies fn to the stored booking and saves the result in
	// one transaction. An error from fn aborts the write and is returned as is.
	// fn may run more than once when a concurrent write conflicts, each time on
	// a fresh read.
	// Returns ErrNotFound if the booking doesn't exist.
	ModifyBooking(ctx context.Context, id string, fn func(b *core.Booking) error) (*core.Booking, error)

	// GetBooking retrieves a booking by ID.
	// Returns ErrNotFound if the booking doesn't exist.
	GetBooking(ctx context.Context, id string) (*core.Booking, error)

	// ListBookingsByCustomer returns a customer's bookings, newest first.
	ListBookingsByCustomer(ctx context.Context, customerID string) ([]*core.Booking, error)

	// ListBookingsByTechnician returns a technician's bookings, newest first.
	ListBookingsByTechnician(ctx context.Context, technicianID string) ([]*core.Booking, error)
}
