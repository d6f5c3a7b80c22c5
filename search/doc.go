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


// Package search ranks technicians against free-text queries by cosine
// similarity of embeddings.
//
// A Searcher ties the pieces together:
//   - the query is embedded through a fallback.Embedder, so a failing backend
//     degrades results instead of failing the call
//   - technicians come from a caller-owned Snapshot that is loaded lazily and
//     replaced atomically on Refresh
//   - each technician's vector comes from the VectorCache, which computes and
//     persists missing or wrong-sized embeddings
//   - the Ranker scores every technician and sorts them, keeping input order
//     for ties
//
// Every technician in the snapshot appears in the result; thresholds and
// availability filtering are left to the caller (see FilterAvailable and Limit).
package search
