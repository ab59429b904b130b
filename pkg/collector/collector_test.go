package collector

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theia-log/theia/pkg/model"
	"github.com/theia-log/theia/pkg/naivestore"
	"github.com/theia-log/theia/pkg/storeapi"
	"github.com/theia-log/theia/pkg/transport"
)

func startTestCollector(t *testing.T, store storeapi.EventStore) (*Collector, string) {
	t.Helper()
	c := New("127.0.0.1:0", store)
	require.NoError(t, c.Run())
	t.Cleanup(func() { c.Stop() })
	return c, fmt.Sprintf("ws://%s", c.server.Addr().String())
}

func recvFrame(t *testing.T, ch chan []byte) []byte {
	t.Helper()
	select {
	case f := <-ch:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return nil
	}
}

func TestEventIsStoredAndPiped(t *testing.T) {
	store, err := naivestore.New(t.TempDir(), 0)
	require.NoError(t, err)
	c, base := startTestCollector(t, store)

	liveFrames := make(chan []byte, 8)
	liveClient := transport.NewClient(base+"/live", func(f []byte) { liveFrames <- f })
	require.NoError(t, liveClient.Connect())
	defer liveClient.Close("done")
	require.NoError(t, liveClient.Send([]byte(`{}`)))
	recvFrame(t, liveFrames) // "ok"

	require.Eventually(t, func() bool { return c.matcher.Count() == 1 }, time.Second, 10*time.Millisecond)

	eventClient := transport.NewClient(base+"/event", func([]byte) {})
	require.NoError(t, eventClient.Connect())
	defer eventClient.Close("done")

	event := model.NewEvent("evt-1", "src", 100, []string{"a"}, "hello")
	require.NoError(t, eventClient.SendEvent(event))

	frame := recvFrame(t, liveFrames)
	var parser model.EventParser
	got, err := parser.ParseEvent(bufio.NewReader(bytes.NewReader(frame)), false)
	require.NoError(t, err)
	assert.Equal(t, "evt-1", got.ID)
	assert.Equal(t, "hello", got.Content)
}

func TestFindStreamsMatchingEvents(t *testing.T) {
	store, err := naivestore.New(t.TempDir(), 0)
	require.NoError(t, err)
	c, base := startTestCollector(t, store)

	for _, e := range []model.Event{
		model.NewEvent("a", "src", 10, nil, "x"),
		model.NewEvent("b", "src", 20, nil, "y"),
	} {
		require.NoError(t, store.Save(context.Background(), e))
	}

	findFrames := make(chan []byte, 8)
	findClient := transport.NewClient(base+"/find", func(f []byte) { findFrames <- f })
	require.NoError(t, findClient.Connect())
	defer findClient.Close("done")

	req, err := json.Marshal(map[string]interface{}{"start": 0})
	require.NoError(t, err)
	require.NoError(t, findClient.Send(req))

	ack := recvFrame(t, findFrames)
	assert.Equal(t, `"ok"`, string(ack))

	first := recvFrame(t, findFrames)
	var parser model.EventParser
	got, err := parser.ParseEvent(bufio.NewReader(bytes.NewReader(first)), false)
	require.NoError(t, err)
	assert.Equal(t, "a", got.ID)

	_ = c
}

func TestFindWithoutStartIsRejected(t *testing.T) {
	store, err := naivestore.New(t.TempDir(), 0)
	require.NoError(t, err)
	_, base := startTestCollector(t, store)

	findFrames := make(chan []byte, 8)
	findClient := transport.NewClient(base+"/find", func(f []byte) { findFrames <- f })
	require.NoError(t, findClient.Connect())
	defer findClient.Close("done")

	require.NoError(t, findClient.Send([]byte(`{}`)))

	frame := recvFrame(t, findFrames)
	assert.Contains(t, string(frame), "error")
}

func TestFindUnavailableWithoutStore(t *testing.T) {
	_, base := startTestCollector(t, nil)

	findFrames := make(chan []byte, 8)
	findClient := transport.NewClient(base+"/find", func(f []byte) { findFrames <- f })
	require.NoError(t, findClient.Connect())
	defer findClient.Close("done")

	require.NoError(t, findClient.Send([]byte(`{"start":0}`)))

	frame := recvFrame(t, findFrames)
	assert.Contains(t, string(frame), "error")
}
