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
	"encoding/binary"
	"slices"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ContentHash generates a deterministic 64-bit hash of the given parts using BLAKE2b.
// Parts are separated by a zero byte so ("ab", "c") and ("a", "bc") differ.
func ContentHash(parts ...string) uint64 {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	for i, part := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(part))
	}
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum)
}

// Technician is a service provider that customers can search for and book.
type Technician struct {
	ID          string
	Name        string
	Email       string
	Phone       string
	Service     string   // Service category, e.g. "Plumbing"
	Description string   // Free-text profile description
	Specialties []string // Ordered specialty list, e.g. ["Leak Detection", "Pipe Installation"]
	Languages   []string
	Location    string
	Address     string
	Rating      float64 // 0.0-5.0, recomputed from rated completed bookings
	ReviewCount int
	Available   bool

	// Embedding is the semantic vector for this profile. Empty until first computed.
	Embedding []float32
	// EmbeddingHash identifies the input text and model that produced Embedding.
	EmbeddingHash uint64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy of the technician so snapshot readers can be handed
// records that later mutations do not affect.
func (t *Technician) Clone() *Technician {
	if t == nil {
		return nil
	}
	c := *t
	c.Specialties = slices.Clone(t.Specialties)
	c.Languages = slices.Clone(t.Languages)
	c.Embedding = slices.Clone(t.Embedding)
	return &c
}

// EmbeddingInput builds the text that represents a technician for embedding:
// name, service, description and specialties joined by single spaces.
// Missing fields contribute empty strings so the field positions never shift.
func EmbeddingInput(t *Technician) string {
	if t == nil {
		return ""
	}
	return strings.Join([]string{
		t.Name,
		t.Service,
		t.Description,
		JoinSpecialties(t.Specialties),
	}, " ")
}

// EmbeddingHashFor computes the EmbeddingHash a technician should carry when its
// embedding was produced by model from the technician's current profile.
func EmbeddingHashFor(t *Technician, model string) uint64 {
	return ContentHash(model, EmbeddingInput(t))
}

// BookingStatus tracks where a booking is in its lifecycle.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

// Booking is a customer's reservation of a technician.
type Booking struct {
	ID              string
	TechnicianID    string
	CustomerID      string
	CustomerName    string
	CustomerPhone   string
	CustomerAddress string
	Service         string
	Status          BookingStatus
	Rating          int // 0 means unrated, otherwise 1-5
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SearchResult pairs a technician with its similarity to a query.
type SearchResult struct {
	Technician *Technician
	Score      float64 // Cosine similarity in [-1, 1]
}
