package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmaier/catalog-crawler/internal/progress"
)

func TestPrometheusSinkCountsEvents(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	ctx := context.Background()
	runID := uuid.New()
	start := time.Now().UTC()

	require.NoError(t, sink.Consume(ctx, progress.Event{RunID: runID, TS: start, Stage: progress.StageRunStart}))
	require.NoError(t, sink.Consume(ctx, progress.Event{RunID: runID, TS: start, Stage: progress.StageNodeFound, Depth: 1}))
	require.NoError(t, sink.Consume(ctx, progress.Event{RunID: runID, TS: start, Stage: progress.StageNodeFound, Depth: 1}))
	require.NoError(t, sink.Consume(ctx, progress.Event{RunID: runID, TS: start, Stage: progress.StageNodeFound, Depth: 2}))
	require.NoError(t, sink.Consume(ctx, progress.Event{RunID: runID, TS: start.Add(2 * time.Second), Stage: progress.StageRunDone}))

	assert.Equal(t, 1.0, testutil.ToFloat64(sink.runsStarted))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.runsCompleted.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(sink.nodesDiscovered.WithLabelValues("1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.nodesDiscovered.WithLabelValues("2")))
}

func TestPrometheusSinkLabelsFailedRuns(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	ctx := context.Background()
	runID := uuid.New()
	start := time.Now().UTC()

	require.NoError(t, sink.Consume(ctx, progress.Event{RunID: runID, TS: start, Stage: progress.StageRunStart}))
	require.NoError(t, sink.Consume(ctx, progress.Event{RunID: runID, TS: start.Add(time.Second), Stage: progress.StageRunError, Note: "boom"}))

	assert.Equal(t, 1.0, testutil.ToFloat64(sink.runsCompleted.WithLabelValues("error")))
	assert.Equal(t, 0.0, testutil.ToFloat64(sink.runsCompleted.WithLabelValues("success")))
}

func TestPrometheusSinkRejectsDoubleRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	_, err = NewPrometheusSink(reg)
	require.Error(t, err)
}
