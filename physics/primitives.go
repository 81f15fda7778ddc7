// Package physics holds the per-session game objects of a pong match and the
// rules that move them one tick at a time. Nothing in here knows about time,
// players or networking; the session layer drives it.
package physics

import "math"

// Board geometry, in board units. The origin is the center of the board.
const (
	BoardWidth  = 40.0
	BoardHeight = 20.0
	HalfWidth   = BoardWidth / 2
	HalfHeight  = BoardHeight / 2

	PadWidth  = 1.0
	PadHeight = 4.0
	PadSpeed  = 0.35
	PadInset  = 1.5 // distance from the side wall to the pad center

	BallRadius    = 0.4
	BallBaseSpeed = 0.25
	BounceRatio   = 1.04
	BallMaxSpeed  = PadWidth * 2

	// vertical nudge applied by a moving pad, and the cap on |direction.y|
	PadNudge    = 0.35
	MaxVertical = 0.8

	HoleRadius = 1.0
	// a dormant pair re-arms with probability 1/SpawnChance per tick
	SpawnChance = 300
)

type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (v Vec2) Add(o Vec2) Vec2      { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2      { return Vec2{v.X - o.X, v.Y - o.Y} }
func (v Vec2) Scale(s float64) Vec2 { return Vec2{v.X * s, v.Y * s} }
func (v Vec2) Len() float64         { return math.Hypot(v.X, v.Y) }
func (v Vec2) Dist(o Vec2) float64  { return v.Sub(o).Len() }
func (v Vec2) Normalized() Vec2 {
	l := v.Len()
	if l == 0 {
		return v
	}
	return Vec2{v.X / l, v.Y / l}
}

// Pad is one player's paddle. Owner 0 defends the left side, owner 1 the right.
type Pad struct {
	Position   Vec2
	Width      float64
	Height     float64
	Speed      float64
	MovingUp   bool
	MovingDown bool
	Owner      int
}

func NewPad(owner int) Pad {
	p := Pad{
		Width:  PadWidth,
		Height: PadHeight,
		Speed:  PadSpeed,
		Owner:  owner,
	}
	p.Reset()
	return p
}

// Reset puts the pad back in the middle of its side and clears its intent.
func (p *Pad) Reset() {
	x := -(HalfWidth - PadInset)
	if p.Owner == 1 {
		x = HalfWidth - PadInset
	}
	p.Position = Vec2{X: x, Y: 0}
	p.MovingUp, p.MovingDown = false, false
}

// Update moves the pad along its intent and keeps it on the board.
func (p *Pad) Update() {
	if p.MovingUp {
		p.Position.Y += p.Speed
	}
	if p.MovingDown {
		p.Position.Y -= p.Speed
	}
	limit := HalfHeight - p.Height/2
	p.Position.Y = clamp(p.Position.Y, -limit, limit)
}

// Front is the x coordinate of the face turned towards the center.
func (p *Pad) Front() float64 {
	if p.Owner == 0 {
		return p.Position.X + p.Width/2
	}
	return p.Position.X - p.Width/2
}

type Ball struct {
	Position  Vec2
	Direction Vec2
	Speed     float64
	Radius    float64
}

func NewBall() Ball {
	return Ball{
		Direction: Vec2{X: 1},
		Speed:     BallBaseSpeed,
		Radius:    BallRadius,
	}
}

func (b *Ball) Update() {
	b.Position = b.Position.Add(b.Direction.Scale(b.Speed))
}

// BlackHole is one end of a wormhole. A pair goes dormant → spawned →
// active → disappeared → dormant.
type BlackHole struct {
	Position       Vec2
	Radius         float64
	HasSpawned     bool
	HasDisappeared bool
	IsActive       bool
}

func (h *BlackHole) Contains(p Vec2) bool {
	return h.Position.Dist(p) <= h.Radius
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
