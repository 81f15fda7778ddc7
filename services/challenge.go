package services

import (
	"math"
	"time"
)

type ChallengeRequest struct {
	Challenger uint      `json:"challengerId"`
	Challenged uint      `json:"challengedId"`
	GameType   GameType  `json:"gameType"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ChallengeBook holds at most one request per challenger. Expiry is lazy:
// every read of a request older than the TTL deletes it.
type ChallengeBook struct {
	ttl          time.Duration
	byChallenger map[uint]ChallengeRequest
}

func NewChallengeBook(ttl time.Duration) *ChallengeBook {
	return &ChallengeBook{ttl: ttl, byChallenger: make(map[uint]ChallengeRequest)}
}

func (b *ChallengeBook) ExpiresAt(r ChallengeRequest) time.Time {
	return r.CreatedAt.Add(b.ttl)
}

func (b *ChallengeBook) expired(r ChallengeRequest, now time.Time) bool {
	return !now.Before(b.ExpiresAt(r))
}

// live returns the unexpired request of challenger, dropping a stale one.
func (b *ChallengeBook) live(challenger uint, now time.Time) (ChallengeRequest, bool) {
	r, ok := b.byChallenger[challenger]
	if !ok {
		return r, false
	}
	if b.expired(r, now) {
		delete(b.byChallenger, challenger)
		return r, false
	}
	return r, true
}

// Create stores a new request. The returned replaced request, if any, was a
// live request of the same challenger to somebody else.
func (b *ChallengeBook) Create(challenger, challenged uint, t GameType, now time.Time) (req ChallengeRequest, replaced *ChallengeRequest, err error) {
	if challenger == challenged {
		return req, nil, forbidden("cannot challenge yourself")
	}
	if prev, ok := b.live(challenger, now); ok {
		if prev.Challenged == challenged {
			left := int(math.Ceil(b.ExpiresAt(prev).Sub(now).Seconds()))
			return req, nil, conflict("challenge to player %d already pending, retry in %d seconds", challenged, left)
		}
		replaced = &prev
	}
	for from, r := range b.byChallenger {
		if from == challenger || r.Challenged != challenged {
			continue
		}
		if _, ok := b.live(from, now); ok {
			return req, nil, conflict("player %d already has a pending challenge", challenged)
		}
	}
	req = ChallengeRequest{Challenger: challenger, Challenged: challenged, GameType: t, CreatedAt: now}
	b.byChallenger[challenger] = req
	return req, replaced, nil
}

// Take removes and returns the request challenger sent to challenged. An
// expired request is deleted and reported as Expired.
func (b *ChallengeBook) Take(challenged, challenger uint, now time.Time) (ChallengeRequest, error) {
	r, ok := b.byChallenger[challenger]
	if !ok || r.Challenged != challenged {
		return r, notFound("no pending challenge from player %d", challenger)
	}
	delete(b.byChallenger, challenger)
	if b.expired(r, now) {
		return r, expired("challenge from player %d expired", challenger)
	}
	return r, nil
}

// Cancel withdraws the request of challenger.
func (b *ChallengeBook) Cancel(challenger uint, now time.Time) (ChallengeRequest, error) {
	r, ok := b.live(challenger, now)
	if !ok {
		return r, notFound("no pending challenge to cancel")
	}
	delete(b.byChallenger, challenger)
	return r, nil
}

// Involving returns every live request sent or received by player.
func (b *ChallengeBook) Involving(player uint, now time.Time) []ChallengeRequest {
	var out []ChallengeRequest
	for from := range b.byChallenger {
		r, ok := b.live(from, now)
		if ok && (r.Challenger == player || r.Challenged == player) {
			out = append(out, r)
		}
	}
	return out
}

// Remove drops a request without any check.
func (b *ChallengeBook) Remove(challenger uint) {
	delete(b.byChallenger, challenger)
}

// Sweep deletes every expired request and returns how many went away.
func (b *ChallengeBook) Sweep(now time.Time) int {
	n := 0
	for from, r := range b.byChallenger {
		if b.expired(r, now) {
			delete(b.byChallenger, from)
			n++
		}
	}
	return n
}

func (b *ChallengeBook) Len() int {
	return len(b.byChallenger)
}
