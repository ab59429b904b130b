package live

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theia-log/theia/pkg/model"
	"github.com/theia-log/theia/pkg/transport"
)

type fakeConn struct {
	path      string
	sent      [][]byte
	sendErr   error
	observers []func(code int, reason string)
}

func (f *fakeConn) Path() string              { return f.path }
func (f *fakeConn) Receive() ([]byte, error)  { return nil, nil }
func (f *fakeConn) Close(int, string) error   { return nil }
func (f *fakeConn) OnClose(o func(int, string)) {
	f.observers = append(f.observers, o)
}
func (f *fakeConn) Send(frame []byte) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, frame)
	return nil
}

func TestPipeSendsOnlyToMatchingFilters(t *testing.T) {
	m := NewMatcher()

	tagged, err := model.ParseCriteria(map[string]interface{}{"tags": []interface{}{"3"}})
	require.NoError(t, err)

	subscriber := &fakeConn{path: "/live"}
	m.AddFilter(Filter{Conn: subscriber, Criteria: tagged})

	other := &fakeConn{path: "/live"}
	m.AddFilter(Filter{Conn: other, Criteria: model.Criteria{}})

	events := []model.Event{
		{ID: "1", Tags: []string{"1", "2"}},
		{ID: "2", Tags: []string{"1", "2", "3"}},
		{ID: "3", Tags: []string{"1"}},
	}
	for _, e := range events {
		m.Pipe(e)
	}

	require.Len(t, subscriber.sent, 1)
	require.Len(t, other.sent, 3)
}

func TestPipeRemovesFilterOnConnectionClosed(t *testing.T) {
	m := NewMatcher()
	conn := &fakeConn{path: "/live", sendErr: transport.ErrConnectionClosed}
	m.AddFilter(Filter{Conn: conn, Criteria: model.Criteria{}})

	require.Equal(t, 1, m.Count())
	m.Pipe(model.Event{ID: "x"})
	assert.Equal(t, 0, m.Count())
}

func TestAddFilterReplacesPriorForSameConnection(t *testing.T) {
	m := NewMatcher()
	conn := &fakeConn{path: "/live"}

	c1, err := model.ParseCriteria(map[string]interface{}{"source": "a"})
	require.NoError(t, err)
	c2, err := model.ParseCriteria(map[string]interface{}{"source": "b"})
	require.NoError(t, err)

	m.AddFilter(Filter{Conn: conn, Criteria: c1})
	m.AddFilter(Filter{Conn: conn, Criteria: c2})
	assert.Equal(t, 1, m.Count())

	m.Pipe(model.Event{Source: "a-1"})
	assert.Empty(t, conn.sent)

	m.Pipe(model.Event{Source: "b-1"})
	assert.Len(t, conn.sent, 1)
}
