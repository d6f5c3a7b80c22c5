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


package search

import "errors"

var (
	// ErrRepositoryRequired is returned when a technician store is not provided.
	ErrRepositoryRequired = errors.New("technician repository required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrDimensionMismatch is returned when two vectors of different lengths are compared.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrNonFiniteVector is returned when a vector contains NaN or Inf.
	ErrNonFiniteVector = errors.New("vector contains non-finite values")

	// ErrSnapshotLoad wraps failures to fetch technicians from the datastore.
	ErrSnapshotLoad = errors.New("technician snapshot load failed")

	// ErrSearchFailed is returned when a search cannot produce a ranking.
	ErrSearchFailed = errors.New("search failed")
)
