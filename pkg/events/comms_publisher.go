package events

import (
	"context"
	"fmt"
	"log/slog"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/cad-bridge/pkg/commsutil"
)

const commsPublisherLogPrefix = "events:comms_publisher"

// CommsPublisherOpts configures CommsPublisher. Nil or zero values use defaults.
type CommsPublisherOpts struct {
	// EventSubject overrides the global completion subject (BRIDGE_EVENT_SUBJECT).
	EventSubject string
}

// CommsPublisher publishes operation-completed events to COMMS subjects.
type CommsPublisher struct {
	nc           *comms.Conn
	eventSubject string
}

// NewCommsPublisher creates a new CommsPublisher. Pass nil for opts to use defaults.
func NewCommsPublisher(nc *comms.Conn, opts *CommsPublisherOpts) *CommsPublisher {
	subject := commsutil.SubjectEvents
	if opts != nil && opts.EventSubject != "" {
		subject = opts.EventSubject
	}
	return &CommsPublisher{nc: nc, eventSubject: subject}
}

// PublishCompleted publishes event to the operation's granular subject and
// to the global completion subject.
func (p *CommsPublisher) PublishCompleted(_ context.Context, event *OperationCompletedEvent) error {
	data, err := commsutil.EncodePayload(event)
	if err != nil {
		return fmt.Errorf("%s - failed to encode event: %w", commsPublisherLogPrefix, err)
	}

	granular := commsutil.BuildOperationEventSubject(p.eventSubject, event.Operation)
	if err := p.nc.Publish(granular, data); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to publish to %s: %v", commsPublisherLogPrefix, granular, err))
		return err
	}

	if err := p.nc.Publish(p.eventSubject, data); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to publish to %s: %v", commsPublisherLogPrefix, p.eventSubject, err))
		return err
	}

	slog.Debug(fmt.Sprintf("%s - Published completion of %s (request %s)", commsPublisherLogPrefix, event.Operation, event.RequestID))
	return nil
}
