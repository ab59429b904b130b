package retention

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePruner struct {
	mu       sync.Mutex
	cutoffs  []int64
	toRemove int
	err      error
}

func (f *fakePruner) PruneBefore(ctx context.Context, cutoff int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, cutoff)
	return f.toRemove, f.err
}

func (f *fakePruner) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cutoffs)
}

func TestEmptyCronIsNoop(t *testing.T) {
	pruner := &fakePruner{}
	sweeper := NewSweeper("", 7, pruner)
	require.NoError(t, sweeper.Start())
	sweeper.Stop()
	assert.Equal(t, 0, pruner.calls())
}

func TestRunSweepUsesRetainDaysCutoff(t *testing.T) {
	pruner := &fakePruner{toRemove: 3}
	sweeper := NewSweeper("@every 1h", 5, pruner)

	before := time.Now().Add(-5 * 24 * time.Hour).Unix()
	require.NoError(t, sweeper.runSweep(context.Background()))
	after := time.Now().Add(-5 * 24 * time.Hour).Unix()

	require.Len(t, pruner.cutoffs, 1)
	assert.GreaterOrEqual(t, pruner.cutoffs[0], before-1)
	assert.LessOrEqual(t, pruner.cutoffs[0], after+1)
}

func TestRunSweepPropagatesPrunerError(t *testing.T) {
	pruner := &fakePruner{err: assert.AnError}
	sweeper := NewSweeper("@every 1h", 1, pruner)
	err := sweeper.runSweep(context.Background())
	assert.Error(t, err)
}
