package conversation

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := NewStore(mr.Addr(), zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCreateAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	conv, err := store.Create(ctx, "Quantum computing", "council")
	require.NoError(t, err)
	assert.NotEmpty(t, conv.ID)
	assert.Equal(t, "council", conv.Mode)
	assert.Empty(t, conv.Messages)

	got, err := store.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, got.ID)
	assert.Equal(t, "Quantum computing", got.Title)
}

func TestGetMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetSurvivesCacheMiss(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	conv, err := store.Create(ctx, "t", "dxo")
	require.NoError(t, err)

	// Drop the local cache to force a Redis round trip.
	store.mu.Lock()
	store.localCache = make(map[string]*Conversation)
	store.cacheAccess = make(map[string]time.Time)
	store.mu.Unlock()

	got, err := store.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "dxo", got.Mode)
}

func TestAppendMessage(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	conv, err := store.Create(ctx, "t", "council")
	require.NoError(t, err)
	before := conv.UpdatedAt

	time.Sleep(5 * time.Millisecond)
	updated, err := store.AppendMessage(ctx, conv.ID, Message{Role: "user", Content: "hello"})
	require.NoError(t, err)

	require.Len(t, updated.Messages, 1)
	assert.Equal(t, "user", updated.Messages[0].Role)
	assert.False(t, updated.Messages[0].Timestamp.IsZero())
	assert.True(t, updated.UpdatedAt.After(before))

	_, err = store.AppendMessage(ctx, "missing", Message{Role: "user", Content: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAppendMessageConcurrent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	conv, err := store.Create(ctx, "t", "council")
	require.NoError(t, err)

	const writers = 8
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func(n int) {
			defer wg.Done()
			_, err := store.AppendMessage(ctx, conv.ID, Message{Role: "user", Content: fmt.Sprintf("message %d", n)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := store.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.Len(t, got.Messages, writers)
}

func TestGetReturnsIndependentCopy(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	conv, err := store.Create(ctx, "original", "council")
	require.NoError(t, err)

	first, err := store.Get(ctx, conv.ID)
	require.NoError(t, err)
	first.Title = "mutated"
	first.Messages = append(first.Messages, Message{Role: "user", Content: "local only"})

	second, err := store.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", second.Title)
	assert.Empty(t, second.Messages)
}

func TestListSortedByUpdatedAtDesc(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.Create(ctx, "first", "council")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	second, err := store.Create(ctx, "second", "dxo")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	// Touch the first so it becomes the most recently updated.
	_, err = store.AppendMessage(ctx, first.ID, Message{Role: "user", Content: "bump"})
	require.NoError(t, err)

	summaries, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, first.ID, summaries[0].ID)
	assert.Equal(t, 1, summaries[0].MessageCount)
	assert.Equal(t, second.ID, summaries[1].ID)
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	conv, err := store.Create(ctx, "t", "council")
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, conv.ID))
	_, err = store.Get(ctx, conv.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, store.Delete(ctx, conv.ID), ErrNotFound)

	summaries, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, summaries)
}
