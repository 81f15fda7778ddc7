// handlers/hub.go
package handlers

import (
	"context"
	"log"
	"sync"
	"sync/atomic"

	"pong-arena/services"
)

// Subscriber receives the events addressed to one player on one connection.
type Subscriber struct {
	Player uint
	C      chan services.Event
}

// Hub fans the engine outbox out to every open connection of the addressed
// players. A subscriber that cannot keep up loses events instead of
// stalling everyone else.
type Hub struct {
	mu      sync.RWMutex
	subs    map[uint]map[*Subscriber]struct{}
	dropped atomic.Int64
}

func NewHub() *Hub {
	return &Hub{subs: make(map[uint]map[*Subscriber]struct{})}
}

func (h *Hub) Subscribe(player uint, buffer int) *Subscriber {
	s := &Subscriber{Player: player, C: make(chan services.Event, buffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.subs[player]
	if !ok {
		m = make(map[*Subscriber]struct{})
		h.subs[player] = m
	}
	m[s] = struct{}{}
	return s
}

func (h *Hub) Unsubscribe(s *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m, ok := h.subs[s.Player]; ok {
		delete(m, s)
		if len(m) == 0 {
			delete(h.subs, s.Player)
		}
	}
}

func (h *Hub) Deliver(ev services.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, p := range ev.To {
		for s := range h.subs[p] {
			select {
			case s.C <- ev:
			default:
				if h.dropped.Add(1)%100 == 1 {
					log.Printf("[Hub] ⚠️ player %d is not keeping up, dropping %s", p, ev.Type)
				}
			}
		}
	}
}

func (h *Hub) Dropped() int64 { return h.dropped.Load() }

func (h *Hub) Run(ctx context.Context, events <-chan services.Event) {
	for {
		select {
		case ev := <-events:
			h.Deliver(ev)
		case <-ctx.Done():
			return
		}
	}
}
