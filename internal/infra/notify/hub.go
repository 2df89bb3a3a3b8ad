// Package notify delivers space events to connected websocket clients,
// optionally relayed across instances through the message broker.
package notify

import (
	"context"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/vocespace/spacekeeper/internal/modules/model"
	"go.uber.org/zap"
)

// Hub tracks websocket clients per space and participant.
type Hub struct {
	mu     sync.Mutex
	spaces map[string]map[string][]*client
	log    *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		spaces: make(map[string]map[string][]*client),
		log:    log,
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.spaces[c.spaceID]
	if !ok {
		members = make(map[string][]*client)
		h.spaces[c.spaceID] = members
	}
	members[c.participantID] = append(members[c.participantID], c)
	h.log.Debug("ws client registered",
		zap.String("space_id", c.spaceID),
		zap.String("participant_id", c.participantID),
		zap.Int("connections", len(members[c.participantID])))
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(c)
}

// dropLocked removes c and closes its send channel exactly once.
func (h *Hub) dropLocked(c *client) {
	members, ok := h.spaces[c.spaceID]
	if !ok {
		return
	}
	conns := members[c.participantID]
	for i, cc := range conns {
		if cc != c {
			continue
		}
		conns = append(conns[:i], conns[i+1:]...)
		close(c.send)
		break
	}
	if len(conns) == 0 {
		delete(members, c.participantID)
	} else {
		members[c.participantID] = conns
	}
	if len(members) == 0 {
		delete(h.spaces, c.spaceID)
	}
}

// Emit implements service.Notifier. Clients whose buffer is full are
// disconnected rather than blocking the caller.
func (h *Hub) Emit(_ context.Context, ev model.Event) {
	b, err := sonic.Marshal(ev)
	if err != nil {
		h.log.Error("encode event", zap.String("event", ev.Name), zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.spaces[ev.SpaceID]
	if !ok {
		return
	}
	var targets []*client
	if ev.Recipient != "" {
		targets = append(targets, members[ev.Recipient]...)
	} else {
		for _, conns := range members {
			targets = append(targets, conns...)
		}
	}
	for _, c := range targets {
		select {
		case c.send <- b:
		default:
			h.log.Warn("ws client too slow, dropping",
				zap.String("space_id", c.spaceID), zap.String("participant_id", c.participantID))
			h.dropLocked(c)
		}
	}
}

// Connections returns the number of open connections in a space.
func (h *Hub) Connections(spaceID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, conns := range h.spaces[spaceID] {
		n += len(conns)
	}
	return n
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, members := range h.spaces {
		for _, conns := range members {
			for _, c := range conns {
				close(c.send)
			}
		}
	}
	h.spaces = make(map[string]map[string][]*client)
}
