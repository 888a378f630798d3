package progress

import "context"

// Sink consumes progress events. Implementations must tolerate repeated
// calls, honor ctx deadlines, and must not retain the Event past Consume.
type Sink interface {
	Consume(ctx context.Context, evt Event) error
	Close(ctx context.Context) error
}
