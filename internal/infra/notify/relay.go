package notify

import (
	"context"

	"github.com/bytedance/sonic"
	"github.com/vocespace/spacekeeper/internal/modules/model"
	"go.uber.org/zap"
)

// Publisher is the broker side of a Relay.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// Relay publishes events to the broker instead of delivering them locally,
// so every instance (this one included) hands them to its own Hub through
// Deliver.
type Relay struct {
	pub Publisher
	hub *Hub
	log *zap.Logger
}

func NewRelay(pub Publisher, hub *Hub, log *zap.Logger) *Relay {
	return &Relay{pub: pub, hub: hub, log: log}
}

// Emit implements service.Notifier. When publishing fails the event is
// delivered to local clients only.
func (r *Relay) Emit(ctx context.Context, ev model.Event) {
	if err := r.pub.PublishJSON(ctx, ev); err != nil {
		r.log.Warn("publish event failed, delivering locally",
			zap.String("event", ev.Name), zap.String("space_id", ev.SpaceID), zap.Error(err))
		r.hub.Emit(ctx, ev)
	}
}

// Deliver decodes a broker message and hands it to the local hub.
func (r *Relay) Deliver(ctx context.Context, body []byte) error {
	var ev model.Event
	if err := sonic.Unmarshal(body, &ev); err != nil {
		return err
	}
	r.hub.Emit(ctx, ev)
	return nil
}
