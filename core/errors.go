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

import "errors"

var (
	// ErrInvalidTechnician indicates a Technician failed validation.
	ErrInvalidTechnician = errors.New("invalid technician")

	// ErrInvalidBooking indicates a Booking failed validation.
	ErrInvalidBooking = errors.New("invalid booking")

	// ErrEmptyName indicates the technician Name field is empty.
	ErrEmptyName = errors.New("name cannot be empty")

	// ErrEmptyService indicates the Service field is empty.
	ErrEmptyService = errors.New("service cannot be empty")

	// ErrRatingOutOfRange indicates a technician rating outside 0.0-5.0.
	ErrRatingOutOfRange = errors.New("rating must be between 0 and 5")

	// ErrInvalidStars indicates a booking rating outside 1-5.
	ErrInvalidStars = errors.New("booking rating must be between 1 and 5")

	// ErrInvalidStatus indicates an unknown booking status.
	ErrInvalidStatus = errors.New("invalid booking status")

	// ErrMissingTechnician indicates a booking without a technician reference.
	ErrMissingTechnician = errors.New("technician id cannot be empty")

	// ErrMissingCustomer indicates a booking without a customer reference.
	ErrMissingCustomer = errors.New("customer id cannot be empty")

	// ErrNonFiniteEmbedding indicates an embedding containing NaN or Inf.
	ErrNonFiniteEmbedding = errors.New("embedding contains non-finite values")
)
