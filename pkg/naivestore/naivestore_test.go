package naivestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theia-log/theia/pkg/model"
	"github.com/theia-log/theia/pkg/storeapi"
)

func TestSaveSynchronousFlushProducesPartitionFile(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, 0)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	events := []model.Event{
		model.NewEvent("e1", "src", 10, []string{}, "one"),
		model.NewEvent("e2", "src", 15, []string{}, "two"),
		model.NewEvent("e3", "src", 30, []string{}, "three"),
	}
	for _, e := range events {
		require.NoError(t, store.Save(ctx, e))
	}

	data, err := os.ReadFile(filepath.Join(dir, "10-70"))
	require.NoError(t, err)

	var ser model.EventSerializer
	var want []byte
	for _, e := range events {
		want = append(want, ser.Serialize(e)...)
		want = append(want, '\n')
	}
	assert.Equal(t, string(want), string(data))
}

func TestSearchAscendingAndFilters(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, 0)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, model.NewEvent("a", "s", 1, []string{"1", "2"}, "hello")))
	require.NoError(t, store.Save(ctx, model.NewEvent("b", "s", 2, []string{"1", "2", "3"}, "world")))
	require.NoError(t, store.Save(ctx, model.NewEvent("c", "s", 3, []string{"1"}, "hello world")))

	results := drain(t, store.Search(ctx, storeapi.SearchOptions{From: 0, Tags: []string{"1"}}))
	require.Len(t, results, 3)

	tagged := drain(t, store.Search(ctx, storeapi.SearchOptions{From: 0, Tags: []string{"3"}}))
	require.Len(t, tagged, 1)
	assert.Equal(t, "b", tagged[0].ID)

	byContent := drain(t, store.Search(ctx, storeapi.SearchOptions{From: 0, Content: "hello"}))
	require.Len(t, byContent, 2)
	assert.Equal(t, "a", byContent[0].ID)
	assert.Equal(t, "c", byContent[1].ID)
}

func TestSearchDescReversesWithinPartition(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, 0)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, model.NewEvent("a", "s", 1, nil, "")))
	require.NoError(t, store.Save(ctx, model.NewEvent("b", "s", 2, nil, "")))

	results := drain(t, store.Search(ctx, storeapi.SearchOptions{From: 0, Order: storeapi.OrderDesc}))
	require.Len(t, results, 2)
	assert.Equal(t, "b", results[0].ID)
	assert.Equal(t, "a", results[1].ID)
}

func TestGetDeleteUnsupported(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, 0)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	_, err = store.Get(ctx, "x")
	assert.ErrorIs(t, err, storeapi.ErrUnsupportedOperation)

	err = store.Delete(ctx, "x")
	assert.ErrorIs(t, err, storeapi.ErrUnsupportedOperation)
}

func TestPeriodicFlushFlushesOpenBuffers(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, 20*time.Millisecond)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, model.NewEvent("a", "s", 5, nil, "x")))

	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, "5-65"))
		return err == nil
	}, time.Second, 10*time.Millisecond)
}

func drain(t *testing.T, ch <-chan storeapi.SearchResult) []model.Event {
	t.Helper()
	var out []model.Event
	for r := range ch {
		require.NoError(t, r.Err)
		out = append(out, r.Event)
	}
	return out
}
