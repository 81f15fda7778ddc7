package services

import (
	"time"

	"pong-arena/physics"
	"pong-arena/protocol"
)

type GameType string

const (
	ClassicPong GameType = "classicPong"
	SpatialPong GameType = "spatialPong"
)

// GameTypes lists every type a queue exists for.
var GameTypes = []GameType{ClassicPong, SpatialPong}

func ParseGameType(s string) (GameType, error) {
	for _, t := range GameTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", notFound("unknown game type %q", s)
}

func (t GameType) Spatial() bool { return t == SpatialPong }

type SessionState int

const (
	StateCreated SessionState = iota
	StateAwaitingLoad
	StateCountdownReady
	StateRunning
	StateEnding
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateAwaitingLoad:
		return "awaitingLoad"
	case StateCountdownReady:
		return "countdownReady"
	case StateRunning:
		return "running"
	case StateEnding:
		return "ending"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Session is one match between two players. Arena stays nil until both
// players reported they loaded; ChallengeReady is only set for sessions
// created from an accepted challenge.
type Session struct {
	ID             string
	Type           GameType
	Players        [2]uint
	CreatedAt      time.Time
	StartedAt      time.Time
	State          SessionState
	Loaded         [2]bool
	ChallengeReady *[2]bool
	Arena          *physics.Arena
}

// Index returns the seat of player in the session, or -1.
func (s *Session) Index(player uint) int {
	for i, p := range s.Players {
		if p == player {
			return i
		}
	}
	return -1
}

func (s *Session) Opponent(player uint) uint {
	if s.Players[0] == player {
		return s.Players[1]
	}
	return s.Players[0]
}

// Live reports whether the session still holds its players.
func (s *Session) Live() bool {
	return s.State < StateEnding
}

func (s *Session) Score() [2]int {
	if s.Arena == nil {
		return [2]int{}
	}
	return s.Arena.Tracker.Score
}

func (s *Session) Stats() [2]physics.PlayerStats {
	if s.Arena == nil {
		return [2]physics.PlayerStats{}
	}
	return s.Arena.Tracker.Stats
}

// View is the client-facing state. Before the arena exists it shows the
// default placement.
func (s *Session) View(scoreLimit int) protocol.GameState {
	a := s.Arena
	if a == nil {
		a = physics.NewArena(s.Type.Spatial(), scoreLimit)
	}
	st := protocol.GameState{
		Players: s.Players,
		Score:   a.Tracker.Score,
		Ball: protocol.BallView{
			X:      a.Ball.Position.X,
			Y:      a.Ball.Position.Y,
			DirX:   a.Ball.Direction.X,
			DirY:   a.Ball.Direction.Y,
			Speed:  a.Ball.Speed,
			Radius: a.Ball.Radius,
		},
		Running: s.State == StateRunning,
	}
	for i, p := range a.Pads {
		st.Pads[i] = protocol.PadView{X: p.Position.X, Y: p.Position.Y, Width: p.Width, Height: p.Height}
	}
	if a.Holes != nil {
		for _, h := range a.Holes {
			st.BlackHoles = append(st.BlackHoles, protocol.HoleView{
				X:              h.Position.X,
				Y:              h.Position.Y,
				Radius:         h.Radius,
				HasSpawned:     h.HasSpawned,
				HasDisappeared: h.HasDisappeared,
				IsActive:       h.IsActive,
			})
		}
	}
	return st
}

// SessionInfo is a read-only snapshot handed out of the engine loop.
type SessionInfo struct {
	ID        string             `json:"id"`
	Type      GameType           `json:"type"`
	Players   [2]uint            `json:"players"`
	State     string             `json:"state"`
	Challenge bool               `json:"challenge"`
	CreatedAt time.Time          `json:"createdAt"`
	Game      protocol.GameState `json:"game"`
}

func (s *Session) Info(scoreLimit int) SessionInfo {
	return SessionInfo{
		ID:        s.ID,
		Type:      s.Type,
		Players:   s.Players,
		State:     s.State.String(),
		Challenge: s.ChallengeReady != nil,
		CreatedAt: s.CreatedAt,
		Game:      s.View(scoreLimit),
	}
}
