package library

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestDeskFlow(t *testing.T) {
	lib, store := newTestLibrary(t, Snapshot{})
	ctx := context.Background()
	librarian := actor(t, lib, "librarian")
	customerID := actor(t, lib, "customer").CustomerID
	require.NotEmpty(t, customerID)

	first, err := lib.Requests.Submit(ctx, librarian, customerID, "  Hold 'Dune'  ")
	require.NoError(t, err)
	assert.Equal(t, "Hold 'Dune'", first.Detail)
	assert.NotEqual(t, uuid.Nil, first.ID)
	_, err = lib.Requests.Submit(ctx, librarian, customerID, "Order 'Emma'")
	require.NoError(t, err)
	assert.Equal(t, 2.0, testutil.ToFloat64(lib.Metrics.queueDepth))

	snap, _ := store.Load()
	require.Len(t, snap.Requests, 2)

	served, customer, err := lib.Requests.Serve(ctx, librarian)
	require.NoError(t, err)
	assert.Equal(t, first.ID, served.ID)
	require.NotNil(t, customer)
	assert.Equal(t, "customer", customer.Username)

	n, err := lib.Requests.Clear(ctx, librarian)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, _, err = lib.Requests.Serve(ctx, librarian)
	assert.ErrorIs(t, err, ErrQueueEmpty)

	snap, _ = store.Load()
	assert.Empty(t, snap.Requests)
	assert.Zero(t, testutil.ToFloat64(lib.Metrics.queueDepth))
}

func TestRequestDeskRejections(t *testing.T) {
	lib, _ := newTestLibrary(t, Snapshot{})
	ctx := context.Background()
	librarian := actor(t, lib, "librarian")
	customer := actor(t, lib, "customer")

	_, err := lib.Requests.Submit(ctx, librarian, "nobody", "x")
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = lib.Requests.Submit(ctx, librarian, customer.CustomerID, "   ")
	assert.ErrorIs(t, err, ErrEmptyRequest)
	_, err = lib.Requests.Submit(ctx, actor(t, lib, "admin"), customer.CustomerID, "x")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = lib.Requests.Remove(ctx, librarian, uuid.New())
	assert.ErrorIs(t, err, ErrRequestNotFound)
	_, err = lib.Requests.Overview(customer)
	assert.ErrorIs(t, err, ErrUnauthorized)

	assert.Zero(t, lib.Requests.Count())
}

func TestRequestDeskRemoveAndOverview(t *testing.T) {
	lib, _ := newTestLibrary(t, Snapshot{})
	ctx := context.Background()
	librarian := actor(t, lib, "librarian")
	customerID := actor(t, lib, "customer").CustomerID

	a, err := lib.Requests.Submit(ctx, librarian, customerID, "a")
	require.NoError(t, err)
	b, err := lib.Requests.Submit(ctx, librarian, customerID, "b")
	require.NoError(t, err)

	removed, err := lib.Requests.Remove(ctx, librarian, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", removed.Detail)

	pending := lib.Requests.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, b.ID, pending[0].ID)

	overview, err := lib.Requests.Overview(librarian)
	require.NoError(t, err)
	require.Len(t, overview, 1)
	assert.Equal(t, "customer", overview[0].Customer.Username)
	assert.Equal(t, []string{"b"}, overview[0].Requests)
}

func TestRequestQueueSurvivesReload(t *testing.T) {
	lib, store := newTestLibrary(t, Snapshot{})
	ctx := context.Background()
	librarian := actor(t, lib, "librarian")
	customerID := actor(t, lib, "customer").CustomerID

	for _, d := range []string{"one", "two", "three"} {
		_, err := lib.Requests.Submit(ctx, librarian, customerID, d)
		require.NoError(t, err)
	}

	snap, err := store.Load()
	require.NoError(t, err)
	reloaded, err := NewLibrary(NewMemoryStore(snap), Options{})
	require.NoError(t, err)

	var details []string
	for _, r := range reloaded.Requests.Pending() {
		details = append(details, r.Detail)
	}
	assert.Equal(t, []string{"one", "two", "three"}, details)
	assert.Equal(t, 3.0, testutil.ToFloat64(reloaded.Metrics.queueDepth))
}
