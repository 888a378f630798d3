package progress

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Counts is the running discovery tally for one tree depth. Both fields are
// cumulative for the whole run and only ever grow; Total is a running count
// that understates the final figure until every sibling at that depth has
// been visited.
type Counts struct {
	Current int
	Total   int
}

// Tracker owns the per-depth counters for one crawl run and fans milestone
// events out synchronously to the configured sinks. Counters reset only by
// starting a fresh Tracker for a fresh run. A sink failure is logged and
// never interrupts the crawl.
type Tracker struct {
	runID  uuid.UUID
	sinks  []Sink
	logger *zap.Logger

	mu     sync.Mutex
	counts map[int]Counts
}

// NewTracker builds a Tracker for one run.
func NewTracker(runID uuid.UUID, logger *zap.Logger, sinks ...Sink) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		runID:  runID,
		sinks:  sinks,
		logger: logger,
		counts: make(map[int]Counts),
	}
}

// RunID returns the identifier of the run this tracker belongs to.
func (t *Tracker) RunID() uuid.UUID { return t.runID }

// RunStarted emits the run-start milestone.
func (t *Tracker) RunStarted(ctx context.Context, startURL string) {
	t.emit(ctx, Event{
		RunID: t.runID,
		TS:    time.Now().UTC(),
		Stage: StageRunStart,
		URL:   startURL,
	})
}

// NodeFound increments both counters for depth and reports the new values.
func (t *Tracker) NodeFound(ctx context.Context, depth int, name, url string) Counts {
	t.mu.Lock()
	c := t.counts[depth]
	c.Current++
	c.Total++
	t.counts[depth] = c
	t.mu.Unlock()

	t.emit(ctx, Event{
		RunID:   t.runID,
		TS:      time.Now().UTC(),
		Stage:   StageNodeFound,
		Depth:   depth,
		Name:    name,
		URL:     url,
		Current: c.Current,
		Total:   c.Total,
	})
	return c
}

// RunFinished emits the terminal milestone; err may be nil.
func (t *Tracker) RunFinished(ctx context.Context, err error) {
	evt := Event{
		RunID: t.runID,
		TS:    time.Now().UTC(),
		Stage: StageRunDone,
	}
	if err != nil {
		evt.Stage = StageRunError
		evt.Note = err.Error()
	}
	t.emit(ctx, evt)
}

// Snapshot copies the current per-depth counters.
func (t *Tracker) Snapshot() map[int]Counts {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[int]Counts, len(t.counts))
	for depth, c := range t.counts {
		out[depth] = c
	}
	return out
}

// Close closes every sink.
func (t *Tracker) Close(ctx context.Context) {
	for _, sink := range t.sinks {
		if err := sink.Close(ctx); err != nil {
			t.logger.Warn("progress sink close failed", zap.Error(err))
		}
	}
}

func (t *Tracker) emit(ctx context.Context, evt Event) {
	for _, sink := range t.sinks {
		if err := sink.Consume(ctx, evt); err != nil {
			t.logger.Warn("progress sink failed",
				zap.String("stage", string(evt.Stage)),
				zap.Error(err),
			)
		}
	}
}
