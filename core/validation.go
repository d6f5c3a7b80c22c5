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


package core

import (
	"fmt"
	"math"
)

func ValidateTechnician(t *Technician) error {
	if t == nil {
		return fmt.Errorf("%w: technician is nil", ErrInvalidTechnician)
	}

	if t.Name == "" {
		return fmt.Errorf("%w: %w", ErrInvalidTechnician, ErrEmptyName)
	}

	if t.Service == "" {
		return fmt.Errorf("%w: %w", ErrInvalidTechnician, ErrEmptyService)
	}

	if math.IsNaN(t.Rating) || t.Rating < 0 || t.Rating > 5 {
		return fmt.Errorf("%w: %w", ErrInvalidTechnician, ErrRatingOutOfRange)
	}

	if !IsFinite(t.Embedding) {
		return fmt.Errorf("%w: %w", ErrInvalidTechnician, ErrNonFiniteEmbedding)
	}

	return nil
}

func ValidateBooking(b *Booking) error {
	if b == nil {
		return fmt.Errorf("%w: booking is nil", ErrInvalidBooking)
	}

	if b.TechnicianID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidBooking, ErrMissingTechnician)
	}

	if b.CustomerID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidBooking, ErrMissingCustomer)
	}

	if err := ValidateStatus(b.Status); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidBooking, err)
	}

	if b.Rating != 0 {
		if err := ValidateStars(b.Rating); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidBooking, err)
		}
	}

	return nil
}

func ValidateStatus(status BookingStatus) error {
	switch status {
	case BookingPending, BookingCompleted, BookingCancelled:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
}

func ValidateStars(stars int) error {
	if stars < 1 || stars > 5 {
		return fmt.Errorf("%w: value %d", ErrInvalidStars, stars)
	}
	return nil
}

// IsFinite reports whether every component of v is a finite number.
func IsFinite(v []float32) bool {
	for _, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
