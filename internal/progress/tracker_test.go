package progress

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSink captures consumed events for assertions.
type recordingSink struct {
	events []Event
	closed bool
	err    error
}

func (s *recordingSink) Consume(_ context.Context, evt Event) error {
	s.events = append(s.events, evt)
	return s.err
}

func (s *recordingSink) Close(context.Context) error {
	s.closed = true
	return nil
}

func TestTrackerCountsAreCumulativePerDepth(t *testing.T) {
	t.Parallel()

	tracker := NewTracker(uuid.New(), nil)
	ctx := context.Background()

	c := tracker.NodeFound(ctx, 1, "Books", "https://shop.example.com/c/books")
	assert.Equal(t, Counts{Current: 1, Total: 1}, c)

	c = tracker.NodeFound(ctx, 2, "Fiction", "https://shop.example.com/c/fiction")
	assert.Equal(t, Counts{Current: 1, Total: 1}, c)

	// Counters keep growing across siblings; no per-sibling reset.
	c = tracker.NodeFound(ctx, 1, "Games", "https://shop.example.com/c/games")
	assert.Equal(t, Counts{Current: 2, Total: 2}, c)

	snap := tracker.Snapshot()
	assert.Equal(t, Counts{Current: 2, Total: 2}, snap[1])
	assert.Equal(t, Counts{Current: 1, Total: 1}, snap[2])
}

func TestTrackerCountsAreMonotone(t *testing.T) {
	t.Parallel()

	tracker := NewTracker(uuid.New(), nil)
	ctx := context.Background()

	prev := 0
	for i := 0; i < 10; i++ {
		c := tracker.NodeFound(ctx, 1, "node", "https://shop.example.com/c")
		require.Greater(t, c.Total, prev)
		require.Equal(t, c.Current, c.Total)
		prev = c.Total
	}
}

func TestTrackerEmitsLifecycleEvents(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	runID := uuid.New()
	tracker := NewTracker(runID, nil, sink)
	ctx := context.Background()

	tracker.RunStarted(ctx, "https://shop.example.com/gp/bestsellers/")
	tracker.NodeFound(ctx, 1, "Books", "https://shop.example.com/c/books")
	tracker.RunFinished(ctx, nil)

	require.Len(t, sink.events, 3)
	assert.Equal(t, StageRunStart, sink.events[0].Stage)
	assert.Equal(t, runID, sink.events[0].RunID)
	assert.Equal(t, StageNodeFound, sink.events[1].Stage)
	assert.Equal(t, 1, sink.events[1].Depth)
	assert.Equal(t, StageRunDone, sink.events[2].Stage)

	tracker.Close(ctx)
	assert.True(t, sink.closed)
}

func TestTrackerReportsErrorRuns(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	tracker := NewTracker(uuid.New(), nil, sink)

	tracker.RunFinished(context.Background(), errors.New("fetch exhausted"))

	require.Len(t, sink.events, 1)
	assert.Equal(t, StageRunError, sink.events[0].Stage)
	assert.Equal(t, "fetch exhausted", sink.events[0].Note)
}

func TestTrackerToleratesSinkFailure(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{err: errors.New("sink down")}
	tracker := NewTracker(uuid.New(), nil, sink)

	// Must not panic or halt the crawl.
	c := tracker.NodeFound(context.Background(), 1, "Books", "u")
	assert.Equal(t, Counts{Current: 1, Total: 1}, c)
}
