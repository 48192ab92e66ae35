package idempotency

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/ayo6706/invest-ledger/internal/testutil/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreReserveFinalizeLookup(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil, memstore.New().Queries(), time.Hour)

	_, err := store.Lookup(ctx, "k1", "h1")
	require.ErrorIs(t, err, ErrNotFound)

	ok, err := store.Reserve(ctx, "k1", "h1", http.MethodPost, "/v1/investments")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = store.Reserve(ctx, "k1", "h1", http.MethodPost, "/v1/investments")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.Lookup(ctx, "k1", "h1")
	require.ErrorIs(t, err, ErrInProgress)
	_, err = store.Lookup(ctx, "k1", "other")
	require.ErrorIs(t, err, ErrHashMismatch)

	rec, err := store.Finalize(ctx, "k1", "h1", http.StatusCreated, []byte(`{"ok":true}`), "application/json")
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, rec.Status)

	rec, err = store.Lookup(ctx, "k1", "h1")
	require.NoError(t, err)
	assert.Equal(t, "postgres", rec.ServedBy)
	assert.JSONEq(t, `{"ok":true}`, string(rec.Body))
}

func TestStoreWaitForCompletion(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil, memstore.New().Queries(), time.Hour)
	store.poll = time.Millisecond

	ok, err := store.Reserve(ctx, "k2", "h2", http.MethodPost, "/v1/withdrawals")
	require.NoError(t, err)
	require.True(t, ok)

	done := make(chan struct{})
	go func() {
		defer close(done)
		time.Sleep(10 * time.Millisecond)
		_, _ = store.Finalize(ctx, "k2", "h2", http.StatusOK, []byte(`{}`), "application/json")
	}()

	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	rec, err := store.WaitForCompletion(waitCtx, "k2", "h2")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Status)
	<-done

	_, err = store.Finalize(ctx, "missing", "h", http.StatusOK, nil, "")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStoreWaitRespectsContext(t *testing.T) {
	store := NewStore(nil, memstore.New().Queries(), time.Hour)
	store.poll = time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := store.Reserve(ctx, "k3", "h3", http.MethodPost, "/")
	require.NoError(t, err)
	_, err = store.WaitForCompletion(ctx, "k3", "h3")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
