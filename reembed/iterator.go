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


package reembed

import (
	"context"
)

const (
	// DefaultBatchSize is the default number of technicians embedded per request
	DefaultBatchSize = 25
)

// ForEachBatch calls fn with consecutive slices of at most batchSize items.
// Iteration stops on first error from fn or when all items are processed.
// Context cancellation is checked before each batch.
func ForEachBatch[T any](ctx context.Context, items []T, batchSize int, fn func([]T) error) error {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	for i := 0; i < len(items); i += batchSize {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		end := min(i+batchSize, len(items))
		if err := fn(items[i:end]); err != nil {
			return err
		}
	}

	return nil
}
