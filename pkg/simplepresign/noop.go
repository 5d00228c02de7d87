package simplepresign

import "context"

// NoopEventSink is a no-operation implementation of EventSink
// Useful when metrics are not wired or for testing
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

// PresignIssued does nothing
func (n *NoopEventSink) PresignIssued(ctx context.Context, event IssueEvent) {}

// PresignFailed does nothing
func (n *NoopEventSink) PresignFailed(ctx context.Context, backend string, err error) {}
