package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCriteriaUnknownKey(t *testing.T) {
	_, err := ParseCriteria(map[string]interface{}{"bogus": "x"})
	require.ErrorIs(t, err, ErrInvalidCriteria)
}

func TestParseCriteriaWrongType(t *testing.T) {
	_, err := ParseCriteria(map[string]interface{}{"start": "not-a-number"})
	require.ErrorIs(t, err, ErrInvalidCriteria)
}

func TestCriteriaMatchTagsSubset(t *testing.T) {
	c, err := ParseCriteria(map[string]interface{}{"tags": []interface{}{"3"}})
	require.NoError(t, err)

	e1 := Event{Tags: []string{"1", "2"}}
	e2 := Event{Tags: []string{"1", "2", "3"}}
	e3 := Event{Tags: []string{"1"}}

	assert.False(t, c.Match(e1))
	assert.True(t, c.Match(e2))
	assert.False(t, c.Match(e3))
}

func TestCriteriaMissingFieldsAccept(t *testing.T) {
	c := Criteria{}
	assert.True(t, c.Match(Event{ID: "anything", Timestamp: 42}))
}

func TestCriteriaStartEndRange(t *testing.T) {
	c, err := ParseCriteria(map[string]interface{}{"start": float64(10), "end": float64(20)})
	require.NoError(t, err)

	assert.False(t, c.Match(Event{Timestamp: 9}))
	assert.True(t, c.Match(Event{Timestamp: 10}))
	assert.True(t, c.Match(Event{Timestamp: 20}))
	assert.False(t, c.Match(Event{Timestamp: 21}))
}

func TestCriteriaAnchoredAtStart(t *testing.T) {
	c, err := ParseCriteria(map[string]interface{}{"source": "agent"})
	require.NoError(t, err)

	assert.True(t, c.Match(Event{Source: "agent-1"}))
	assert.False(t, c.Match(Event{Source: "my-agent-1"}))
}
