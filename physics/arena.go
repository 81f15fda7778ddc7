package physics

import (
	"math"

	"golang.org/x/exp/rand"
)

// Arena is the authoritative physical state of one session. Holes is nil for
// classic games and holds the wormhole pair for spatial ones.
type Arena struct {
	Pads    [2]Pad
	Ball    Ball
	Holes   *[2]BlackHole
	Tracker Tracker
	Paused  bool
}

// Outcome tells the caller what happened during Resolve so it can schedule
// the delayed follow-ups (serve, hole activation, hole cooldown).
type Outcome struct {
	Scored       bool
	Scorer       int
	Teleported   bool
	HolesSpawned bool
}

// NewArena lays out a fresh board. The ball waits paused in the middle until
// Serve is called.
func NewArena(spatial bool, scoreLimit int) *Arena {
	a := &Arena{
		Pads:    [2]Pad{NewPad(0), NewPad(1)},
		Ball:    NewBall(),
		Tracker: NewTracker(scoreLimit, 0),
		Paused:  true,
	}
	if spatial {
		a.Holes = &[2]BlackHole{{Radius: HoleRadius}, {Radius: HoleRadius}}
	}
	return a
}

// Serve puts the ball back in the middle at base speed, heading towards the
// given player, who then holds the turn.
func (a *Arena) Serve(toward int, rng *rand.Rand) {
	dx := 1.0
	if toward == 0 {
		dx = -1
	}
	dy := 0.0
	if rng != nil {
		dy = rng.Float64() - 0.5
	}
	a.Ball.Position = Vec2{}
	a.Ball.Direction = Vec2{X: dx, Y: dy}.Normalized()
	a.Ball.Speed = BallBaseSpeed
	a.Tracker.Turn = toward
	a.Paused = false
}

// ResetPads recenters both pads.
func (a *Arena) ResetPads() {
	a.Pads[0].Reset()
	a.Pads[1].Reset()
}

// Resolve detects and resolves every collision for this tick. It must run
// before Integrate since integration consumes the adjusted direction and speed.
func (a *Arena) Resolve(rng *rand.Rand) Outcome {
	var out Outcome
	if a.Holes != nil && rng != nil {
		out.HolesSpawned = a.trySpawnHoles(rng)
	}
	if a.Paused {
		return out
	}
	if a.Holes != nil {
		out.Teleported = a.teleport()
	}
	a.bounceWalls()
	for i := range a.Pads {
		if a.hitsPad(i) {
			a.bounceOffPad(i)
			break
		}
	}
	if a.exitedSide() {
		a.Ball.Speed = 0
		a.Paused = true
		a.ResetPads()
		out.Scored = true
		out.Scorer = a.Tracker.Point()
	}
	return out
}

// Integrate advances the ball and both pads by one tick.
func (a *Arena) Integrate() {
	if !a.Paused {
		a.Ball.Update()
	}
	a.Pads[0].Update()
	a.Pads[1].Update()
}

func (a *Arena) bounceWalls() {
	b := &a.Ball
	if b.Position.Y+b.Radius >= HalfHeight && b.Direction.Y > 0 {
		b.Direction.Y = -b.Direction.Y
		b.Position.Y = HalfHeight - b.Radius
	}
	if b.Position.Y-b.Radius <= -HalfHeight && b.Direction.Y < 0 {
		b.Direction.Y = -b.Direction.Y
		b.Position.Y = -HalfHeight + b.Radius
	}
}

// hitsPad runs the frontal test and the corner test for pad i. Both only
// apply on that pad's turn so a ball already leaving cannot be caught again.
func (a *Arena) hitsPad(i int) bool {
	if a.Tracker.Turn != i {
		return false
	}
	p := &a.Pads[i]
	b := &a.Ball
	front := p.Front()

	var behindFront bool
	if i == 0 {
		behindFront = b.Position.X-b.Radius <= front
	} else {
		behindFront = b.Position.X+b.Radius >= front
	}
	if behindFront && math.Abs(b.Position.Y-p.Position.Y) <= p.Height/2 {
		return true
	}

	top := Vec2{X: front, Y: p.Position.Y + p.Height/2}
	bottom := Vec2{X: front, Y: p.Position.Y - p.Height/2}
	return b.Position.Dist(top) <= b.Radius || b.Position.Dist(bottom) <= b.Radius
}

func (a *Arena) bounceOffPad(i int) {
	p := &a.Pads[i]
	b := &a.Ball

	d := b.Direction
	if p.MovingUp {
		d.Y += PadNudge
	}
	if p.MovingDown {
		d.Y -= PadNudge
	}
	d.Y = clamp(d.Y, -MaxVertical, MaxVertical)
	d.X = -d.X
	b.Direction = d.Normalized()

	// keep the ball in front of the pad so the next tick starts clean
	if i == 0 {
		b.Position.X = math.Max(b.Position.X, p.Front()+b.Radius)
	} else {
		b.Position.X = math.Min(b.Position.X, p.Front()-b.Radius)
	}

	b.Speed = math.Min(b.Speed*BounceRatio, BallMaxSpeed)
	a.Tracker.Bounce(i, b.Speed)
}

func (a *Arena) exitedSide() bool {
	b := &a.Ball
	return b.Position.X-b.Radius < -HalfWidth || b.Position.X+b.Radius > HalfWidth
}

// teleport moves the ball through an active pair and disables both ends.
func (a *Arena) teleport() bool {
	h := a.Holes
	if !h[0].IsActive || !h[1].IsActive || h[0].HasDisappeared || h[1].HasDisappeared {
		return false
	}
	for k := range h {
		if h[k].Contains(a.Ball.Position) {
			a.Ball.Position = h[1-k].Position
			for j := range h {
				h[j].IsActive = false
				h[j].HasDisappeared = true
			}
			a.Tracker.Teleport()
			return true
		}
	}
	return false
}

func (a *Arena) holesDormant() bool {
	return !a.Holes[0].HasSpawned && !a.Holes[1].HasSpawned
}

// trySpawnHoles re-arms a dormant pair with probability 1/SpawnChance. The
// entry lands on the left half and the exit on the right half, away from the
// pads and the center line.
func (a *Arena) trySpawnHoles(rng *rand.Rand) bool {
	if !a.holesDormant() || rng.Intn(SpawnChance) != 0 {
		return false
	}
	for k := range a.Holes {
		x := HalfWidth*0.15 + rng.Float64()*HalfWidth*0.35
		if k == 0 {
			x = -x
		}
		y := (rng.Float64()*2 - 1) * HalfHeight * 0.6
		a.Holes[k] = BlackHole{
			Position:   Vec2{X: x, Y: y},
			Radius:     HoleRadius,
			HasSpawned: true,
		}
	}
	return true
}

// ActivateHoles opens a spawned pair. It is a no-op once the pair was used.
func (a *Arena) ActivateHoles() {
	if a.Holes == nil {
		return
	}
	for k := range a.Holes {
		if a.Holes[k].HasSpawned && !a.Holes[k].HasDisappeared {
			a.Holes[k].IsActive = true
		}
	}
}

// RetireHoles returns a used pair to dormant so it can spawn again.
func (a *Arena) RetireHoles() {
	if a.Holes == nil {
		return
	}
	for k := range a.Holes {
		a.Holes[k] = BlackHole{Radius: HoleRadius}
	}
}
