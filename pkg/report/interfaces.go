package report

import "context"

// Sink delivers task events to a destination (stdout, webhook, queue, topic).
type Sink interface {
	ID() string
	Type() string
	Send(ctx context.Context, evt Event) error
}

// closer is implemented by sinks that hold network clients.
type closer interface {
	Close() error
}
