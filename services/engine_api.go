package services

import (
	"context"
	"log"

	"pong-arena/protocol"
)

func (e *Engine) Connect(ctx context.Context, player uint) error {
	return e.call(ctx, func() error {
		e.connect(player)
		return nil
	})
}

// Disconnect dequeues the player, withdraws its challenges and forfeits or
// cancels its session, unless another connection of the player is still open.
func (e *Engine) Disconnect(ctx context.Context, player uint) error {
	return e.call(ctx, func() error {
		e.disconnect(player, e.clock.Now())
		return nil
	})
}

func (e *Engine) Enqueue(ctx context.Context, player uint, gameType string) error {
	return e.call(ctx, func() error {
		return e.enqueue(player, gameType, e.clock.Now())
	})
}

func (e *Engine) Dequeue(ctx context.Context, player uint, gameType string) error {
	return e.call(ctx, func() error {
		return e.dequeue(player, gameType)
	})
}

// QueueStatus returns the game type the player waits for, or "" when it is
// not queued.
func (e *Engine) QueueStatus(ctx context.Context, player uint) (GameType, error) {
	var t GameType
	err := e.call(ctx, func() error {
		t, _ = e.queue.Status(player)
		return nil
	})
	return t, err
}

func (e *Engine) JoinChallengeGame(ctx context.Context, player uint, sessionID string) error {
	return e.call(ctx, func() error {
		return e.joinChallengeGame(player, sessionID)
	})
}

func (e *Engine) PlayerLoaded(ctx context.Context, player uint) error {
	return e.call(ctx, func() error {
		return e.playerLoaded(player, e.clock.Now())
	})
}

func (e *Engine) HandleInput(ctx context.Context, player uint, in protocol.UserInput) error {
	return e.call(ctx, func() error {
		return e.handleInput(player, in)
	})
}

func (e *Engine) Forfeit(ctx context.Context, player uint) error {
	return e.call(ctx, func() error {
		return e.forfeit(player, e.clock.Now())
	})
}

// EndSession force-ends a live session. It is a no-op for a session that is
// already ending. A winner override must be one of the two players.
func (e *Engine) EndSession(ctx context.Context, id string, winnerOverride *uint) error {
	return e.call(ctx, func() error {
		s, ok := e.registry.Get(id)
		if !ok {
			return notFound("session %s not found", id)
		}
		if winnerOverride != nil && s.Index(*winnerOverride) < 0 {
			return forbidden("player %d is not part of session %s", *winnerOverride, id)
		}
		e.endSession(id, winnerOverride, false, e.clock.Now())
		return nil
	})
}

// Challenge checks the block list on the caller's goroutine, since it may hit
// the database, and only then hands the request to the loop.
func (e *Engine) Challenge(ctx context.Context, challenger, challenged uint, gameType string) error {
	t, err := ParseGameType(gameType)
	if err != nil {
		return err
	}
	if challenger == challenged {
		return forbidden("cannot challenge yourself")
	}
	if e.blocks != nil {
		blocked, err := e.blocks.IsBlocked(challenger, challenged)
		if err != nil {
			log.Printf("[Challenge] ❌ block lookup for %d/%d failed: %v", challenger, challenged, err)
			return internal("could not verify relationship")
		}
		if blocked {
			return forbidden("cannot challenge player %d", challenged)
		}
	}
	return e.call(ctx, func() error {
		return e.challenge(challenger, challenged, t, e.clock.Now())
	})
}

func (e *Engine) AcceptChallenge(ctx context.Context, challenged, challenger uint) (string, error) {
	var id string
	err := e.call(ctx, func() error {
		var err error
		id, err = e.acceptChallenge(challenged, challenger, e.clock.Now())
		return err
	})
	return id, err
}

func (e *Engine) DeclineChallenge(ctx context.Context, challenged, challenger uint) error {
	return e.call(ctx, func() error {
		return e.declineChallenge(challenged, challenger, e.clock.Now())
	})
}

func (e *Engine) CancelChallenge(ctx context.Context, challenger uint) error {
	return e.call(ctx, func() error {
		return e.cancelChallenge(challenger, e.clock.Now())
	})
}

func (e *Engine) SweepChallenges(ctx context.Context) (int, error) {
	var n int
	err := e.call(ctx, func() error {
		n = e.sweepChallenges(e.clock.Now())
		return nil
	})
	return n, err
}

func (e *Engine) Session(ctx context.Context, id string) (SessionInfo, error) {
	var info SessionInfo
	err := e.call(ctx, func() error {
		s, ok := e.registry.Get(id)
		if !ok {
			return notFound("session %s not found", id)
		}
		info = s.Info(e.cfg.ScoreLimit)
		return nil
	})
	return info, err
}

func (e *Engine) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := e.call(ctx, func() error {
		st = e.stats()
		return nil
	})
	return st, err
}
