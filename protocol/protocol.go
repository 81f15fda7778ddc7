// Package protocol defines the messages exchanged with game clients and the
// codecs used to put them on the wire.
package protocol

import (
	"encoding/json"

	"pong-arena/physics"
)

// Inbound events.
const (
	EvJoinQueue         = "joinQueue"
	EvLeaveQueue        = "leaveQueue"
	EvJoinChallengeGame = "joinChallengeGame"
	EvUserLoaded        = "userLoaded"
	EvUserInput         = "userInput"
	EvChallengeUser     = "challengeUser"
	EvAcceptChallenge   = "acceptChallenge"
	EvDeclineChallenge  = "declineChallenge"
	EvCancelChallenge   = "cancelChallenge"
)

// Outbound events.
const (
	EvInitGame          = "initGame"
	EvGameReady         = "gameReady"
	EvGameUpdate        = "gameUpdate"
	EvEndGame           = "endGame"
	EvGameCancelled     = "gameCancelled"
	EvChallengeReceived = "challengeReceived"
	EvChallengeUpdate   = "challengeUpdate"
	EvQueueUpdate       = "queueUpdate"
	EvError             = "error"
)

// Envelope is what a client sends: an event name and its raw payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type JoinQueue struct {
	Type string `json:"type"`
}

type JoinChallengeGame struct {
	GameID string `json:"gameId"`
}

type UserInput struct {
	IsMovingUp   bool `json:"isMovingUp"`
	IsMovingDown bool `json:"isMovingDown"`
}

type ChallengeUser struct {
	UserID   uint   `json:"userId"`
	GameType string `json:"gameType"`
}

// ChallengeReply answers (accept/decline) the challenge sent by UserID.
type ChallengeReply struct {
	UserID uint `json:"userId"`
}

type PadView struct {
	X      float64 `json:"x" msgpack:"x"`
	Y      float64 `json:"y" msgpack:"y"`
	Width  float64 `json:"width" msgpack:"width"`
	Height float64 `json:"height" msgpack:"height"`
}

type BallView struct {
	X      float64 `json:"x" msgpack:"x"`
	Y      float64 `json:"y" msgpack:"y"`
	DirX   float64 `json:"dirX" msgpack:"dirX"`
	DirY   float64 `json:"dirY" msgpack:"dirY"`
	Speed  float64 `json:"speed" msgpack:"speed"`
	Radius float64 `json:"radius" msgpack:"radius"`
}

type HoleView struct {
	X              float64 `json:"x" msgpack:"x"`
	Y              float64 `json:"y" msgpack:"y"`
	Radius         float64 `json:"radius" msgpack:"radius"`
	HasSpawned     bool    `json:"hasSpawned" msgpack:"hasSpawned"`
	HasDisappeared bool    `json:"hasDisappeared" msgpack:"hasDisappeared"`
	IsActive       bool    `json:"isActive" msgpack:"isActive"`
}

// GameState is the client-facing state of a session. Pad intent flags and
// session bookkeeping never appear here.
type GameState struct {
	Players    [2]uint    `json:"players" msgpack:"players"`
	Score      [2]int     `json:"score" msgpack:"score"`
	Pads       [2]PadView `json:"pads" msgpack:"pads"`
	Ball       BallView   `json:"ball" msgpack:"ball"`
	BlackHoles []HoleView `json:"blackHoles,omitempty" msgpack:"blackHoles,omitempty"`
	Running    bool       `json:"running" msgpack:"running"`
}

type InitGame struct {
	GameID    string `json:"gameId" msgpack:"gameId"`
	Type      string `json:"type" msgpack:"type"`
	Challenge bool   `json:"challenge" msgpack:"challenge"`
	CreatedAt int64  `json:"createdAt" msgpack:"createdAt"`
	GameState
}

type GameReady struct {
	GameID         string `json:"gameId" msgpack:"gameId"`
	StartTimestamp int64  `json:"startTimestamp" msgpack:"startTimestamp"`
}

type Participant struct {
	ID              uint                `json:"id" msgpack:"id"`
	Score           int                 `json:"score" msgpack:"score"`
	ExperienceDelta int64               `json:"experienceDelta" msgpack:"experienceDelta"`
	Stats           physics.PlayerStats `json:"stats" msgpack:"stats"`
}

type EndGame struct {
	GameID       string        `json:"gameId" msgpack:"gameId"`
	Type         string        `json:"type" msgpack:"type"`
	Score        [2]int        `json:"score" msgpack:"score"`
	Duration     int64         `json:"duration" msgpack:"duration"` // milliseconds
	WinnerID     *uint         `json:"winnerId" msgpack:"winnerId"`
	Forfeit      bool          `json:"forfeit" msgpack:"forfeit"`
	Participants []Participant `json:"participants" msgpack:"participants"`
}

type GameCancelled struct {
	GameID string `json:"gameId" msgpack:"gameId"`
	Reason string `json:"reason" msgpack:"reason"`
}

type ChallengeReceived struct {
	ChallengerID uint   `json:"challengerId" msgpack:"challengerId"`
	GameType     string `json:"gameType" msgpack:"gameType"`
	ExpiresAt    int64  `json:"expiresAt" msgpack:"expiresAt"`
}

type ChallengeUpdate struct {
	ChallengerID uint   `json:"challengerId" msgpack:"challengerId"`
	ChallengedID uint   `json:"challengedId" msgpack:"challengedId"`
	Status       string `json:"status" msgpack:"status"`
	GameID       string `json:"gameId,omitempty" msgpack:"gameId,omitempty"`
}

type QueueUpdate struct {
	Type   string `json:"type" msgpack:"type"`
	Queued bool   `json:"queued" msgpack:"queued"`
}

type ErrorMessage struct {
	Kind    string `json:"kind" msgpack:"kind"`
	Message string `json:"message" msgpack:"message"`
	Event   string `json:"event,omitempty" msgpack:"event,omitempty"`
}
