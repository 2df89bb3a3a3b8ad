package service

import (
	"context"

	"github.com/vocespace/spacekeeper/internal/modules/model"
)

// Notifier delivers events to connected clients. Emit must not block on
// delivery and reports nothing back; transports log their own failures.
type Notifier interface {
	Emit(ctx context.Context, ev model.Event)
}

type nopNotifier struct{}

func (nopNotifier) Emit(context.Context, model.Event) {}

// NopNotifier discards every event.
func NopNotifier() Notifier { return nopNotifier{} }
