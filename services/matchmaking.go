package services

import (
	"log"
	"time"
)

type queueEntry struct {
	Player     uint
	EnqueuedAt time.Time
}

// Matchmaker keeps one FIFO per game type. A player is in at most one queue.
// It is owned by the engine loop and never locked.
type Matchmaker struct {
	queues map[GameType][]queueEntry
	index  map[uint]GameType
}

func NewMatchmaker(types ...GameType) *Matchmaker {
	m := &Matchmaker{
		queues: make(map[GameType][]queueEntry, len(types)),
		index:  make(map[uint]GameType),
	}
	for _, t := range types {
		m.queues[t] = nil
	}
	return m
}

func (m *Matchmaker) has(t GameType) bool {
	_, ok := m.queues[t]
	return ok
}

// Enqueue drops any previous membership of the player and appends it to the
// tail of the queue for t.
func (m *Matchmaker) Enqueue(player uint, t GameType, now time.Time) error {
	if !m.has(t) {
		return notFound("no queue for game type %q", t)
	}
	m.DequeueAll(player)
	m.queues[t] = append(m.queues[t], queueEntry{Player: player, EnqueuedAt: now})
	m.index[player] = t
	log.Printf("[Matchmaker] ➕ player %d queued for %s (%d waiting)", player, t, len(m.queues[t]))
	return nil
}

// Dequeue is a no-op when the player is not waiting for t.
func (m *Matchmaker) Dequeue(player uint, t GameType) error {
	if !m.has(t) {
		return notFound("no queue for game type %q", t)
	}
	if m.index[player] != t {
		return nil
	}
	m.remove(player, t)
	return nil
}

// DequeueAll removes the player from whatever queue holds it and reports
// whether it was queued.
func (m *Matchmaker) DequeueAll(player uint) bool {
	t, ok := m.index[player]
	if !ok {
		return false
	}
	m.remove(player, t)
	return true
}

func (m *Matchmaker) remove(player uint, t GameType) {
	q := m.queues[t]
	for i, e := range q {
		if e.Player == player {
			m.queues[t] = append(q[:i:i], q[i+1:]...)
			break
		}
	}
	delete(m.index, player)
}

// PopPair takes the two oldest entries of t.
func (m *Matchmaker) PopPair(t GameType) (a, b uint, ok bool) {
	q := m.queues[t]
	if len(q) < 2 {
		return 0, 0, false
	}
	a, b = q[0].Player, q[1].Player
	m.queues[t] = q[2:]
	delete(m.index, a)
	delete(m.index, b)
	return a, b, true
}

// PushFront puts players back at the head of t, keeping their order.
func (m *Matchmaker) PushFront(t GameType, now time.Time, players ...uint) {
	head := make([]queueEntry, 0, len(players)+len(m.queues[t]))
	for _, p := range players {
		m.DequeueAll(p)
		head = append(head, queueEntry{Player: p, EnqueuedAt: now})
		m.index[p] = t
	}
	m.queues[t] = append(head, m.queues[t]...)
}

// Status returns the game type the player waits for.
func (m *Matchmaker) Status(player uint) (GameType, bool) {
	t, ok := m.index[player]
	return t, ok
}

func (m *Matchmaker) Len(t GameType) int {
	return len(m.queues[t])
}

func (m *Matchmaker) Sizes() map[GameType]int {
	out := make(map[GameType]int, len(m.queues))
	for t, q := range m.queues {
		out[t] = len(q)
	}
	return out
}
