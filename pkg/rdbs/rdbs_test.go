package rdbs

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theia-log/theia/pkg/model"
	"github.com/theia-log/theia/pkg/storeapi"
)

func newTestStore(t *testing.T) *RelationalEventStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.db")
	store, err := New(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveGetDeleteRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	event := model.NewEvent("evt-1", "src", 42, []string{"a", "b"}, "hello world")
	require.NoError(t, store.Save(ctx, event))

	got, err := store.Get(ctx, "evt-1")
	require.NoError(t, err)
	assert.Equal(t, event.ID, got.ID)
	assert.Equal(t, event.Source, got.Source)
	assert.Equal(t, event.Timestamp, got.Timestamp)
	assert.Equal(t, event.Tags, got.Tags)
	assert.Equal(t, event.Content, got.Content)

	require.NoError(t, store.Delete(ctx, "evt-1"))

	_, err = store.Get(ctx, "evt-1")
	assert.ErrorIs(t, err, storeapi.ErrEventNotFound)

	err = store.Delete(ctx, "evt-1")
	assert.ErrorIs(t, err, storeapi.ErrEventNotFound)
}

func TestSaveUpsertsOnConflict(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, model.NewEvent("evt-1", "src", 1, nil, "first")))
	require.NoError(t, store.Save(ctx, model.NewEvent("evt-1", "src", 2, nil, "second")))

	got, err := store.Get(ctx, "evt-1")
	require.NoError(t, err)
	assert.Equal(t, "second", got.Content)
	assert.Equal(t, float64(2), got.Timestamp)
}

func TestSearchRangeWithTagAndContentFilters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	events := []model.Event{
		model.NewEvent("a", "src", 10, []string{"x"}, "alpha"),
		model.NewEvent("b", "src", 20, []string{"y"}, "beta"),
		model.NewEvent("c", "src", 30, []string{"x"}, "alpha again"),
	}
	for _, e := range events {
		require.NoError(t, store.Save(ctx, e))
	}

	results := drain(t, store.Search(ctx, storeapi.SearchOptions{
		From: 0,
		Tags: []string{"x"},
	}))
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "c", results[1].ID)

	results = drain(t, store.Search(ctx, storeapi.SearchOptions{
		From:    0,
		Content: "beta",
	}))
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].ID)
}

func TestSearchDescendingOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, ts := range []float64{10, 20, 30} {
		require.NoError(t, store.Save(ctx, model.NewEvent("", "src", ts, nil, "c")))
	}

	results := drain(t, store.Search(ctx, storeapi.SearchOptions{From: 0, Order: storeapi.OrderDesc}))
	require.Len(t, results, 3)
	assert.Equal(t, float64(30), results[0].Timestamp)
	assert.Equal(t, float64(10), results[2].Timestamp)
}

func TestSearchBoundedByTo(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, ts := range []float64{10, 20, 30} {
		require.NoError(t, store.Save(ctx, model.NewEvent("", "src", ts, nil, "c")))
	}

	to := float64(25)
	results := drain(t, store.Search(ctx, storeapi.SearchOptions{From: 0, To: &to}))
	require.Len(t, results, 2)
}

func drain(t *testing.T, ch <-chan storeapi.SearchResult) []model.Event {
	t.Helper()
	var events []model.Event
	for r := range ch {
		require.NoError(t, r.Err)
		events = append(events, r.Event)
	}
	return events
}
