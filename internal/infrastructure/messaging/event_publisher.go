package messaging

import (
	"context"
	"time"

	"github.com/oksasatya/go-user-management/internal/application"
)

// JSONPublisher is satisfied by helpers.RabbitPublisher.
type JSONPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// EventPublisher sends auth events to the events queue.
type EventPublisher struct {
	Pub     JSONPublisher
	Timeout time.Duration
}

func NewEventPublisher(pub JSONPublisher) *EventPublisher {
	return &EventPublisher{Pub: pub, Timeout: 2 * time.Second}
}

// Publish bounds the broker call by Timeout. A nil publisher drops the event.
func (p *EventPublisher) Publish(ctx context.Context, evt application.AuthEvent) error {
	if p == nil || p.Pub == nil {
		return nil
	}
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}
	return p.Pub.PublishJSON(ctx, evt)
}

var _ application.EventPublisher = (*EventPublisher)(nil)
