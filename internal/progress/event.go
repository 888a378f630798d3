// Package progress tracks per-depth discovery counts during a catalog crawl
// and fans milestone events out to pluggable sinks.
package progress

import (
	"time"

	"github.com/google/uuid"
)

// Stage denotes the kind of milestone an Event represents.
type Stage string

// Supported progress stages.
const (
	StageRunStart  Stage = "RUN_START"
	StageNodeFound Stage = "NODE_FOUND"
	StageRunDone   Stage = "RUN_DONE"
	StageRunError  Stage = "RUN_ERROR"
)

// Event captures a single crawl milestone.
type Event struct {
	// RunID identifies the crawl run the event belongs to.
	RunID uuid.UUID
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which milestone occurred.
	Stage Stage
	// Depth is the tree level of a discovered node (1 = root's children).
	Depth int
	// Name is the discovered category's display name.
	Name string
	// URL is the start URL for run events, or the node URL for discoveries.
	URL string
	// Current and Total are the running counters for Depth at emit time.
	Current int
	Total   int
	// Note carries low-volume context such as error text.
	Note string
}
