package reembed

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForEachBatch(t *testing.T) {
	tests := []struct {
		name      string
		items     []int
		batchSize int
		want      [][]int
	}{
		{name: "even split", items: []int{1, 2, 3, 4}, batchSize: 2, want: [][]int{{1, 2}, {3, 4}}},
		{name: "remainder", items: []int{1, 2, 3, 4, 5}, batchSize: 2, want: [][]int{{1, 2}, {3, 4}, {5}}},
		{name: "single batch", items: []int{1, 2}, batchSize: 10, want: [][]int{{1, 2}}},
		{name: "empty", items: nil, batchSize: 3, want: nil},
		{name: "non-positive size uses default", items: []int{1, 2, 3}, batchSize: 0, want: [][]int{{1, 2, 3}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got [][]int
			err := ForEachBatch(context.Background(), tt.items, tt.batchSize, func(batch []int) error {
				got = append(got, batch)
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestForEachBatch_StopsOnError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := ForEachBatch(context.Background(), []int{1, 2, 3, 4}, 1, func(batch []int) error {
		calls++
		if batch[0] == 2 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestForEachBatch_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := ForEachBatch(ctx, []int{1, 2, 3}, 1, func(batch []int) error {
		calls++
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
