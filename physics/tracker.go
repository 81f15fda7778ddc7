package physics

// PlayerStats is what one player accumulated during a session.
type PlayerStats struct {
	Bounces   int     `json:"bounces" msgpack:"bounces"`
	Teleports int     `json:"teleports" msgpack:"teleports"`
	Points    int     `json:"points" msgpack:"points"`
	MaxSpeed  float64 `json:"maxSpeed" msgpack:"maxSpeed"`
}

// Tracker keeps the turn, the score and the per-player statistics of a session.
// Turn is the index of the player whose pad must register the next bounce.
type Tracker struct {
	Turn             int
	Score            [2]int
	Stats            [2]PlayerStats
	Limit            int
	PendingTeleports int
}

func NewTracker(limit, turn int) Tracker {
	return Tracker{Turn: turn, Limit: limit}
}

// Bounce records a successful hit by player and hands the turn over.
// It reports whether speed is a new high for that player.
func (t *Tracker) Bounce(player int, speed float64) bool {
	t.Stats[player].Bounces++
	t.Turn = 1 - player
	if speed > t.Stats[player].MaxSpeed {
		t.Stats[player].MaxSpeed = speed
		return true
	}
	return false
}

// Teleport counts a wormhole pass. It is credited when the next point is scored.
func (t *Tracker) Teleport() {
	t.PendingTeleports++
}

// Point awards a point to the player who is not on turn and returns its index.
// Pending teleports go to the previous turn holder, which is the scorer.
func (t *Tracker) Point() int {
	scorer := 1 - t.Turn
	if t.Score[scorer] < t.Limit {
		t.Score[scorer]++
		t.Stats[scorer].Points++
	}
	t.Stats[scorer].Teleports += t.PendingTeleports
	t.PendingTeleports = 0
	return scorer
}

// Reached reports whether either score hit the limit.
func (t *Tracker) Reached() bool {
	return t.Score[0] >= t.Limit || t.Score[1] >= t.Limit
}

// Leader returns the index of the higher score, or -1 on a tie.
func (t *Tracker) Leader() int {
	switch {
	case t.Score[0] > t.Score[1]:
		return 0
	case t.Score[1] > t.Score[0]:
		return 1
	}
	return -1
}
