package naivestore

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPeriodicFlusherFirstTickAfterSleep(t *testing.T) {
	var calls int32
	f := NewPeriodicFlusher(30*time.Millisecond, func() { atomic.AddInt32(&calls, 1) })
	f.Start()
	defer func() {
		f.Cancel()
		f.Join()
	}()

	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))

	time.Sleep(40 * time.Millisecond)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(1))
}

func TestPeriodicFlusherSwallowsPanics(t *testing.T) {
	f := NewPeriodicFlusher(10*time.Millisecond, func() { panic("boom") })
	f.Start()
	time.Sleep(30 * time.Millisecond)
	f.Cancel()
	f.Join()
}
