package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mediarelay/internal/domain"
)

func TestMemoryJobStore_UnknownIDNotFound(t *testing.T) {
	store := NewMemoryJobStore()

	_, ok, err := store.Get(context.Background(), "never-recorded")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryJobStore_PutThenGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryJobStore()
	receivedAt := time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC)

	require.NoError(t, store.Put(ctx, domain.ResultEntry{
		JobID:      "job-1",
		Payload:    map[string]any{"imageUrl": "https://cdn.example.com/a.png"},
		ReceivedAt: receivedAt,
	}))

	entry, ok, err := store.Get(ctx, "job-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "https://cdn.example.com/a.png", entry.Payload["imageUrl"])
	require.Equal(t, receivedAt, entry.ReceivedAt)
}

func TestMemoryJobStore_SecondPutOverwrites(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryJobStore()

	require.NoError(t, store.Put(ctx, domain.ResultEntry{JobID: "job-1", Payload: map[string]any{"imageUrl": "first", "videoUrl": "only-in-first"}}))
	require.NoError(t, store.Put(ctx, domain.ResultEntry{JobID: "job-1", Payload: map[string]any{"imageUrl": "second"}}))

	entry, ok, err := store.Get(ctx, "job-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, map[string]any{"imageUrl": "second"}, entry.Payload)

	n, err := store.Len(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestMemoryJobStore_CallerCannotMutateStoredPayload(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryJobStore()
	payload := map[string]any{"imageUrl": "a"}

	require.NoError(t, store.Put(ctx, domain.ResultEntry{JobID: "job-1", Payload: payload}))
	payload["imageUrl"] = "mutated"

	entry, _, err := store.Get(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, "a", entry.Payload["imageUrl"])

	entry.Payload["imageUrl"] = "mutated-again"
	again, _, err := store.Get(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, "a", again.Payload["imageUrl"])
}

func TestMemoryJobStore_DeleteAndBlankID(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryJobStore()

	require.ErrorIs(t, store.Put(ctx, domain.ResultEntry{JobID: "  "}), ErrInvalidJobID)

	require.NoError(t, store.Put(ctx, domain.ResultEntry{JobID: " job-2 ", Payload: map[string]any{}}))
	_, ok, err := store.Get(ctx, "job-2")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, store.Delete(ctx, "job-2"))
	_, ok, err = store.Get(ctx, "job-2")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryJobStore_ConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryJobStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = store.Put(ctx, domain.ResultEntry{JobID: fmt.Sprintf("job-%d", i%10), Payload: map[string]any{"n": i}})
			_, _, _ = store.Get(ctx, "job-0")
		}(i)
	}
	wg.Wait()

	n, err := store.Len(ctx)
	require.NoError(t, err)
	require.Equal(t, 10, n)
}

func TestMemoryJobStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := NewMemoryJobStore()

	require.ErrorIs(t, store.Put(ctx, domain.ResultEntry{JobID: "job-1"}), context.Canceled)
}
