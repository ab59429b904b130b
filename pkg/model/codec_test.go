package model

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeKnownEvent(t *testing.T) {
	e := Event{
		ID:        "id1",
		Source:    "env1",
		Timestamp: 1491580705.9789374,
		Tags:      []string{"a", "b"},
		Content:   "TEST EVENT",
	}

	out := string(EventSerializer{}.Serialize(e))
	lines := strings.SplitN(out, "\n", 2)
	require.Equal(t, "event: 68 58 10", lines[0])

	rest := lines[1]
	require.Equal(t, "id:id1\ntimestamp: 1491580705.9789374\nsource:env1\ntags:a,b\nTEST EVENT", rest)
}

func TestSerializeParseRoundTrip(t *testing.T) {
	e := Event{
		ID:        "e-1",
		Source:    "agent-a",
		Timestamp: 12345.6789012,
		Tags:      []string{"x", "y", "z"},
		Content:   "hello world\nwith a newline",
	}

	buf := bytes.NewBuffer(EventSerializer{}.Serialize(e))
	buf.WriteByte('\n')

	got, err := EventParser{}.ParseEvent(bufio.NewReader(buf), false)
	require.NoError(t, err)
	assert.Equal(t, e, got)
}

func TestParseEventEOF(t *testing.T) {
	r := bufio.NewReader(strings.NewReader(""))
	_, err := EventParser{}.ParseEvent(r, false)
	require.ErrorIs(t, err, ErrEOF)
}

func TestParseEventMalformedPreamble(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("not-an-event\n"))
	_, err := EventParser{}.ParseEvent(r, false)
	require.ErrorIs(t, err, ErrMalformedFrame)
}

func TestParseEventUnknownHeaderKey(t *testing.T) {
	hdr := "bogus:value\n"
	content := ""
	frame := "event: " + strconv.Itoa(len(hdr)+len(content)) + " " + strconv.Itoa(len(hdr)) + " " + strconv.Itoa(len(content)) + "\n" + hdr + content + "\n"
	r := bufio.NewReader(strings.NewReader(frame))
	_, err := EventParser{}.ParseEvent(r, false)
	require.ErrorIs(t, err, ErrMalformedFrame)
}

func TestParseEventSkipContent(t *testing.T) {
	e := Event{ID: "e-2", Source: "s", Timestamp: 1.0, Tags: []string{}, Content: "discarded content"}
	buf := bytes.NewBuffer(EventSerializer{}.Serialize(e))
	buf.WriteByte('\n')
	buf.WriteString(string(EventSerializer{}.Serialize(e)))
	buf.WriteByte('\n')

	r := bufio.NewReader(buf)
	first, err := EventParser{}.ParseEvent(r, true)
	require.NoError(t, err)
	assert.Equal(t, "", first.Content)
	assert.Equal(t, "e-2", first.ID)

	second, err := EventParser{}.ParseEvent(r, false)
	require.NoError(t, err)
	assert.Equal(t, "discarded content", second.Content)
}
