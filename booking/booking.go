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

// Package booking manages customer reservations of technicians.
//
// A booking starts pending and is either completed or cancelled. Completed
// bookings can be rated once, from 1 to 5 stars; every rating recomputes the
// technician's average rating and review count from all of their rated jobs.
package booking

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/MohanGuptaKoduru/ServiceLink/core"
	"github.com/MohanGuptaKoduru/ServiceLink/storage"
)

// Request carries the customer details needed to book a technician.
type Request struct {
	TechnicianID    string
	CustomerID      string
	CustomerName    string
	CustomerPhone   string
	CustomerAddress string
}

// Service books, completes, cancels and rates jobs.
type Service struct {
	technicians storage.TechnicianRepository
	bookings    storage.BookingRepository
	logger      *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a booking service over the given repositories.
func NewService(technicians storage.TechnicianRepository, bookings storage.BookingRepository, opts ...Option) (*Service, error) {
	if technicians == nil || bookings == nil {
		return nil, ErrRepositoryRequired
	}
	s := &Service{
		technicians: technicians,
		bookings:    bookings,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "booking")
	return s, nil
}

// Book creates a pending booking. The technician must exist and be available;
// the booking records the technician's service at the time of booking.
func (s *Service) Book(ctx context.Context, req Request) (*core.Booking, error) {
	tech, err := s.technicians.GetTechnician(ctx, req.TechnicianID)
	if err != nil {
		return nil, fmt.Errorf("technician %q: %w", req.TechnicianID, err)
	}
	if !tech.Available {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, tech.Name)
	}

	b, err := s.bookings.AddBooking(ctx, &core.Booking{
		TechnicianID:    tech.ID,
		CustomerID:      req.CustomerID,
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		CustomerAddress: req.CustomerAddress,
		Service:         tech.Service,
		Status:          core.BookingPending,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("booking created", "booking", b.ID, "technician", tech.ID)
	return b, nil
}

// Complete marks a pending booking as done.
func (s *Service) Complete(ctx context.Context, id string) (*core.Booking, error) {
	return s.transition(ctx, id, core.BookingCompleted)
}

// Cancel withdraws a pending booking.
func (s *Service) Cancel(ctx context.Context, id string) (*core.Booking, error) {
	return s.transition(ctx, id, core.BookingCancelled)
}

func (s *Service) transition(ctx context.Context, id string, to core.BookingStatus) (*core.Booking, error) {
	return s.bookings.ModifyBooking(ctx, id, func(b *core.Booking) error {
		if b.Status != core.BookingPending {
			return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, b.Status, to)
		}
		b.Status = to
		return nil
	})
}

// Rate records the customer's stars on a completed booking and recomputes
// the technician's rating. A booking can be rated once.
func (s *Service) Rate(ctx context.Context, id string, stars int) (*core.Booking, error) {
	if err := core.ValidateStars(stars); err != nil {
		return nil, err
	}

	updated, err := s.bookings.ModifyBooking(ctx, id, func(b *core.Booking) error {
		if b.Status != core.BookingCompleted {
			return fmt.Errorf("%w: only completed bookings can be rated, booking is %s", ErrInvalidTransition, b.Status)
		}
		if b.Rating != 0 {
			return ErrAlreadyRated
		}
		b.Rating = stars
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.RecomputeRating(ctx, updated.TechnicianID); err != nil {
		return updated, fmt.Errorf("booking rated but technician rating not updated: %w", err)
	}
	return updated, nil
}

// RecomputeRating sets a technician's rating to the mean stars of their rated
// completed bookings, to one decimal place, and ReviewCount to how many there are.
func (s *Service) RecomputeRating(ctx context.Context, technicianID string) error {
	jobs, err := s.bookings.ListBookingsByTechnician(ctx, technicianID)
	if err != nil {
		return err
	}

	rating, count := AverageRating(jobs)
	if err := s.technicians.UpdateRating(ctx, technicianID, rating, count); err != nil {
		return err
	}
	s.logger.Debug("technician rating recomputed", "technician", technicianID, "rating", rating, "reviews", count)
	return nil
}

// AverageRating returns the mean of the rated completed bookings rounded to
// one decimal, and how many bookings contributed. With none it returns 0, 0.
func AverageRating(bookings []*core.Booking) (float64, int) {
	total, count := 0, 0
	for _, b := range bookings {
		if b.Status != core.BookingCompleted || b.Rating == 0 {
			continue
		}
		total += b.Rating
		count++
	}
	if count == 0 {
		return 0, 0
	}
	return math.Round(float64(total)/float64(count)*10) / 10, count
}

// Customer returns a customer's bookings, newest first.
func (s *Service) Customer(ctx context.Context, customerID string) ([]*core.Booking, error) {
	return s.bookings.ListBookingsByCustomer(ctx, customerID)
}

// Technician returns a technician's bookings, newest first.
func (s *Service) Technician(ctx context.Context, technicianID string) ([]*core.Booking, error) {
	return s.bookings.ListBookingsByTechnician(ctx, technicianID)
}
