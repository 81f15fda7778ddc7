package services

import (
	"testing"
	"time"
)

func TestChallengeBookLazyExpiry(t *testing.T) {
	b := NewChallengeBook(5 * time.Minute)
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, _, err := b.Create(1, 2, ClassicPong, t0); err != nil {
		t.Fatalf("create: %v", err)
	}

	if got := b.Involving(2, t0.Add(time.Minute)); len(got) != 1 {
		t.Fatalf("live request not listed: %v", got)
	}
	if got := b.Involving(2, t0.Add(5*time.Minute)); len(got) != 0 {
		t.Fatalf("expired request listed: %v", got)
	}
	if b.Len() != 0 {
		t.Fatalf("reading an expired request did not delete it")
	}
}

func TestChallengeBookStaleRequestIsReplaced(t *testing.T) {
	b := NewChallengeBook(5 * time.Minute)
	t0 := time.Now()
	_, _, _ = b.Create(1, 2, ClassicPong, t0)

	_, replaced, err := b.Create(1, 2, SpatialPong, t0.Add(6*time.Minute))
	if err != nil {
		t.Fatalf("re-issue after expiry: %v", err)
	}
	if replaced != nil {
		t.Fatalf("expired request reported as replaced")
	}
	r, err := b.Take(2, 1, t0.Add(7*time.Minute))
	if err != nil || r.GameType != SpatialPong {
		t.Fatalf("take = %+v, %v", r, err)
	}
}

func TestChallengeBookOtherChallengerMayRetryAfterExpiry(t *testing.T) {
	b := NewChallengeBook(time.Minute)
	t0 := time.Now()
	_, _, _ = b.Create(1, 2, ClassicPong, t0)
	if _, _, err := b.Create(3, 2, ClassicPong, t0.Add(30*time.Second)); KindOf(err) != KindConflict {
		t.Fatalf("got %v, want Conflict", err)
	}
	if _, _, err := b.Create(3, 2, ClassicPong, t0.Add(time.Minute)); err != nil {
		t.Fatalf("after expiry: %v", err)
	}
}
