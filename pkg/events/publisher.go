package events

import "context"

// EventPublisher publishes operation-completed events.
type EventPublisher interface {
	PublishCompleted(ctx context.Context, event *OperationCompletedEvent) error
}

// NoOpPublisher is an EventPublisher that does nothing (events disabled).
type NoOpPublisher struct{}

// PublishCompleted is a no-op.
func (p *NoOpPublisher) PublishCompleted(_ context.Context, _ *OperationCompletedEvent) error {
	return nil
}

// CallbackPublisher is an EventPublisher that calls a callback function (for testing).
type CallbackPublisher struct {
	callback func(ctx context.Context, event *OperationCompletedEvent) error
}

// NewCallbackPublisher creates a new CallbackPublisher.
func NewCallbackPublisher(cb func(ctx context.Context, event *OperationCompletedEvent) error) *CallbackPublisher {
	return &CallbackPublisher{callback: cb}
}

// PublishCompleted calls the callback.
func (p *CallbackPublisher) PublishCompleted(ctx context.Context, event *OperationCompletedEvent) error {
	return p.callback(ctx, event)
}
