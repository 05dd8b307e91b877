package dialog_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/construction-bot/internal/dialog"
	"github.com/Spok95/construction-bot/internal/testutil"
)

func TestGateDropsDuplicatesAndReordered(t *testing.T) {
	tests := []struct {
		name      string
		delivered []int
		want      []int
	}{
		{name: "in order", delivered: []int{1, 2, 3}, want: []int{1, 2, 3}},
		{name: "duplicates", delivered: []int{1, 1, 2, 2, 2, 3}, want: []int{1, 2, 3}},
		{name: "reordered", delivered: []int{1, 3, 2, 4}, want: []int{1, 3, 4}},
		{name: "stale replay", delivered: []int{5, 1, 2, 5, 6}, want: []int{5, 6}},
		{name: "empty", delivered: nil, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := dialog.NewGate(testutil.NewStates())
			var processed []int
			for _, id := range tt.delivered {
				ok, err := g.Admit(context.Background(), 7, id, 0)
				require.NoError(t, err)
				if ok {
					processed = append(processed, id)
				}
			}
			assert.Equal(t, tt.want, processed)
		})
	}
}

func TestGateConcurrentRedeliveryAdmitsOnce(t *testing.T) {
	g := dialog.NewGate(testutil.NewStates())

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := g.Admit(context.Background(), 7, 100, 0)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, admitted)
}

func TestGateMessageLayer(t *testing.T) {
	g := dialog.NewGate(testutil.NewStates())
	ctx := context.Background()

	ok, err := g.Admit(ctx, 7, 1, 500)
	require.NoError(t, err)
	assert.True(t, ok)

	// новый update_id, но тот же message_id — повтор на уровне сообщения
	ok, err = g.Admit(ctx, 7, 2, 500)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = g.Admit(ctx, 7, 3, 501)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGateActorsAreIndependent(t *testing.T) {
	g := dialog.NewGate(testutil.NewStates())
	ctx := context.Background()

	ok, _ := g.Admit(ctx, 1, 10, 0)
	assert.True(t, ok)
	ok, _ = g.Admit(ctx, 2, 5, 0)
	assert.True(t, ok)
}
