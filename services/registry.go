package services

import "sort"

// Registry is the set of live sessions. byPlayer enforces that a player sits
// in at most one live session.
type Registry struct {
	sessions map[string]*Session
	byPlayer map[uint]string
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		byPlayer: make(map[uint]string),
	}
}

func (r *Registry) Add(s *Session) error {
	if s.Players[0] == s.Players[1] {
		return forbidden("a session needs two distinct players")
	}
	for _, p := range s.Players {
		if r.Busy(p) {
			return conflict("player %d is already in a session", p)
		}
	}
	r.sessions[s.ID] = s
	for _, p := range s.Players {
		r.byPlayer[p] = s.ID
	}
	return nil
}

func (r *Registry) Get(id string) (*Session, bool) {
	s, ok := r.sessions[id]
	return s, ok
}

func (r *Registry) ForPlayer(player uint) (*Session, bool) {
	id, ok := r.byPlayer[player]
	if !ok {
		return nil, false
	}
	return r.Get(id)
}

func (r *Registry) Busy(player uint) bool {
	s, ok := r.ForPlayer(player)
	return ok && s.Live()
}

func (r *Registry) Remove(id string) {
	s, ok := r.sessions[id]
	if !ok {
		return
	}
	delete(r.sessions, id)
	for _, p := range s.Players {
		if r.byPlayer[p] == id {
			delete(r.byPlayer, p)
		}
	}
}

// Sessions returns the live sessions oldest first.
func (r *Registry) Sessions() []*Session {
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r *Registry) Len() int {
	return len(r.sessions)
}
