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


// Package storage provides the storage abstraction layer for ServiceLink.
//
// This package defines repository interfaces that decouple storage implementation
// from business logic. The search pipeline depends only on the narrow
// TechnicianReader and EmbeddingWriter interfaces; the booking service and the
// command line tools use the full repositories.
//
// # Constructor Return Type Pattern
//
// Public constructors return interfaces:
//
//	repos, err := badger.NewRepositories(path)  // returns *badger.Repositories of interfaces
//
// Internal package constructors (newTechnicianRepository, newBackend, etc.) may
// return concrete types since they're only used within the implementation package.
//
// # Architecture
//
//   - TechnicianRepository: technician profiles, embeddings, availability and ratings
//   - BookingRepository: bookings indexed by customer and technician
//   - Serialization: compact binary encoding with mus-go
//
// Use in tests with in-memory storage:
//
//	repos, err := badger.NewMemoryRepositories()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer repos.Close()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
