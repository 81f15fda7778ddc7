package services

import (
	"time"

	"pong-arena/physics"
	"pong-arena/protocol"
)

// Event is one outbound notification addressed to a set of players. The
// transport decides how to encode and deliver it.
type Event struct {
	Type      string
	To        []uint
	SessionID string
	Payload   any
}

// GameCreated is handed to the recorder when a session is allocated.
type GameCreated struct {
	ID        string
	Type      GameType
	Players   [2]uint
	Challenge bool
}

// MatchResult is handed to the recorder when a session ends.
type MatchResult struct {
	ID       string
	Type     GameType
	Players  [2]uint
	Score    [2]int
	Duration time.Duration
	WinnerID *uint
	Forfeit  bool
	Stats    [2]physics.PlayerStats
	EndedAt  time.Time
	Summary  protocol.EndGame
}

// Recorder takes persistence work off the engine loop. Implementations must
// not block.
type Recorder interface {
	GameCreated(g GameCreated)
	GameFinished(r MatchResult)
	GameCancelled(id string)
	PresenceChanged(player uint, status Presence)
}

type nopRecorder struct{}

func (nopRecorder) GameCreated(GameCreated)        {}
func (nopRecorder) GameFinished(MatchResult)       {}
func (nopRecorder) GameCancelled(string)           {}
func (nopRecorder) PresenceChanged(uint, Presence) {}
