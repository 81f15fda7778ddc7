package services

import (
	"sort"
	"time"
)

type timerKind int

const (
	timerCountdown timerKind = iota
	timerServe
	timerHoleActivate
	timerHoleCooldown
)

type delayed struct {
	session string
	kind    timerKind
	due     time.Time
	fn      func(now time.Time)
}

// timerSet holds the one-shot delayed actions of every session. They are
// checked on each tick and dropped together when a session is torn down.
type timerSet struct {
	pending map[string]map[timerKind]*delayed
}

func newTimerSet() *timerSet {
	return &timerSet{pending: make(map[string]map[timerKind]*delayed)}
}

// schedule replaces any pending action of the same kind for the session.
func (t *timerSet) schedule(session string, kind timerKind, due time.Time, fn func(now time.Time)) {
	m, ok := t.pending[session]
	if !ok {
		m = make(map[timerKind]*delayed)
		t.pending[session] = m
	}
	m[kind] = &delayed{session: session, kind: kind, due: due, fn: fn}
}

func (t *timerSet) cancel(session string) {
	delete(t.pending, session)
}

func (t *timerSet) count(session string) int {
	return len(t.pending[session])
}

// fire runs every action due at now, earliest first. An action cancelled by
// an earlier one in the same pass does not run.
func (t *timerSet) fire(now time.Time) {
	var due []*delayed
	for _, m := range t.pending {
		for _, d := range m {
			if !d.due.After(now) {
				due = append(due, d)
			}
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].due.Equal(due[j].due) {
			if due[i].session == due[j].session {
				return due[i].kind < due[j].kind
			}
			return due[i].session < due[j].session
		}
		return due[i].due.Before(due[j].due)
	})
	for _, d := range due {
		m := t.pending[d.session]
		if m == nil || m[d.kind] != d {
			continue
		}
		delete(m, d.kind)
		if len(m) == 0 {
			delete(t.pending, d.session)
		}
		d.fn(now)
	}
}
