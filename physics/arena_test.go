package physics

import (
	"math"
	"testing"

	"golang.org/x/exp/rand"
)

func servedArena(t *testing.T, spatial bool, toward int) *Arena {
	t.Helper()
	a := NewArena(spatial, 5)
	a.Serve(toward, nil)
	return a
}

func TestServeHeadsTowardsReceiver(t *testing.T) {
	tests := []struct {
		name   string
		toward int
		wantX  float64
	}{
		{name: "left", toward: 0, wantX: -1},
		{name: "right", toward: 1, wantX: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewArena(false, 5)
			a.Serve(tt.toward, rand.New(rand.NewSource(7)))
			if math.Signbit(a.Ball.Direction.X) != math.Signbit(tt.wantX) {
				t.Fatalf("direction.x = %f, want sign of %f", a.Ball.Direction.X, tt.wantX)
			}
			if a.Tracker.Turn != tt.toward {
				t.Fatalf("turn = %d, want %d", a.Tracker.Turn, tt.toward)
			}
			if a.Ball.Speed != BallBaseSpeed {
				t.Fatalf("speed = %f, want %f", a.Ball.Speed, BallBaseSpeed)
			}
			if a.Paused {
				t.Fatalf("expected arena to be running after serve")
			}
		})
	}
}

func TestWallCollisionOnlyFlipsVertical(t *testing.T) {
	a := servedArena(t, false, 1)
	a.Ball.Position = Vec2{X: 0, Y: HalfHeight - BallRadius/2}
	a.Ball.Direction = Vec2{X: 0.6, Y: 0.8}

	a.Resolve(nil)

	if a.Ball.Direction.Y != -0.8 {
		t.Fatalf("direction.y = %f, want -0.8", a.Ball.Direction.Y)
	}
	if a.Ball.Direction.X != 0.6 {
		t.Fatalf("direction.x changed to %f", a.Ball.Direction.X)
	}

	a.Ball.Position = Vec2{X: 0, Y: -HalfHeight}
	a.Ball.Direction = Vec2{X: -0.6, Y: -0.8}
	a.Resolve(nil)
	if a.Ball.Direction.Y != 0.8 || a.Ball.Direction.X != -0.6 {
		t.Fatalf("bottom wall bounce gave %+v", a.Ball.Direction)
	}
}

func TestFrontalPadCollisionReversesHorizontal(t *testing.T) {
	for owner := 0; owner < 2; owner++ {
		a := servedArena(t, false, owner)
		pad := a.Pads[owner]
		x := pad.Front() + BallRadius/2
		if owner == 1 {
			x = pad.Front() - BallRadius/2
		}
		a.Ball.Position = Vec2{X: x, Y: pad.Position.Y + 0.5}
		before := a.Ball.Direction.X
		speed := a.Ball.Speed

		a.Resolve(nil)

		if math.Signbit(a.Ball.Direction.X) == math.Signbit(before) {
			t.Fatalf("owner %d: direction.x did not reverse (%f → %f)", owner, before, a.Ball.Direction.X)
		}
		if a.Tracker.Turn != 1-owner {
			t.Fatalf("owner %d: turn = %d, want %d", owner, a.Tracker.Turn, 1-owner)
		}
		if a.Tracker.Stats[owner].Bounces != 1 {
			t.Fatalf("owner %d: bounces = %d, want 1", owner, a.Tracker.Stats[owner].Bounces)
		}
		if got, want := a.Ball.Speed, speed*BounceRatio; math.Abs(got-want) > 1e-9 {
			t.Fatalf("owner %d: speed = %f, want %f", owner, got, want)
		}
		if a.Tracker.Stats[owner].MaxSpeed != a.Ball.Speed {
			t.Fatalf("owner %d: max speed stat = %f, want %f", owner, a.Tracker.Stats[owner].MaxSpeed, a.Ball.Speed)
		}
	}
}

func TestPadIgnoresBallOffTurn(t *testing.T) {
	a := servedArena(t, false, 1)
	pad := a.Pads[0]
	a.Ball.Position = Vec2{X: pad.Front() + BallRadius/2, Y: pad.Position.Y}
	a.Ball.Direction = Vec2{X: 1}

	a.Resolve(nil)

	if a.Ball.Direction.X != 1 {
		t.Fatalf("ball leaving pad 0 was bounced again: %+v", a.Ball.Direction)
	}
	if a.Tracker.Stats[0].Bounces != 0 {
		t.Fatalf("unexpected bounce recorded")
	}
}

func TestCornerGrazeCountsAsHit(t *testing.T) {
	a := servedArena(t, false, 0)
	pad := a.Pads[0]
	corner := Vec2{X: pad.Front(), Y: pad.Position.Y + pad.Height/2}
	a.Ball.Position = Vec2{X: corner.X + 0.2, Y: corner.Y + 0.2}

	a.Resolve(nil)

	if a.Ball.Direction.X <= 0 {
		t.Fatalf("corner graze did not send the ball back, direction %+v", a.Ball.Direction)
	}
}

func TestMovingPadNudgesVertical(t *testing.T) {
	a := servedArena(t, false, 0)
	a.Ball.Direction = Vec2{X: -1}
	a.Pads[0].MovingUp = true
	a.Ball.Position = Vec2{X: a.Pads[0].Front(), Y: 0}

	a.Resolve(nil)

	if a.Ball.Direction.Y <= 0 {
		t.Fatalf("expected upward nudge, got %+v", a.Ball.Direction)
	}
	if l := a.Ball.Direction.Len(); math.Abs(l-1) > 1e-9 {
		t.Fatalf("direction not normalized, len %f", l)
	}
}

func TestSpeedIsCapped(t *testing.T) {
	a := servedArena(t, false, 0)
	for i := 0; i < 200; i++ {
		owner := a.Tracker.Turn
		pad := a.Pads[owner]
		a.Ball.Position = Vec2{X: pad.Front(), Y: pad.Position.Y}
		a.Resolve(nil)
	}
	if a.Ball.Speed != BallMaxSpeed {
		t.Fatalf("speed = %f, want cap %f", a.Ball.Speed, BallMaxSpeed)
	}
}

func TestSideExitScoresAndResets(t *testing.T) {
	a := servedArena(t, false, 0)
	a.Pads[0].Position.Y = HalfHeight - PadHeight/2
	a.Pads[1].Position.Y = -3
	a.Ball.Speed = 1.2
	a.Ball.Position = Vec2{X: -HalfWidth, Y: -HalfHeight + 1}

	out := a.Resolve(nil)

	if !out.Scored || out.Scorer != 1 {
		t.Fatalf("outcome = %+v, want point for player 1", out)
	}
	if a.Tracker.Score != [2]int{0, 1} {
		t.Fatalf("score = %v", a.Tracker.Score)
	}
	if !a.Paused || a.Ball.Speed != 0 {
		t.Fatalf("ball should be stopped after a point")
	}
	for i, p := range a.Pads {
		if p.Position.Y != 0 {
			t.Fatalf("pad %d not recentered: y=%f", i, p.Position.Y)
		}
	}

	a.Serve(0, nil)
	if a.Ball.Speed != BallBaseSpeed {
		t.Fatalf("speed after serve = %f, want base %f", a.Ball.Speed, BallBaseSpeed)
	}
}

func TestScoreNeverExceedsLimit(t *testing.T) {
	tr := NewTracker(5, 0)
	for i := 0; i < 10; i++ {
		tr.Point()
	}
	if tr.Score[1] != 5 {
		t.Fatalf("score = %d, want 5", tr.Score[1])
	}
	if !tr.Reached() {
		t.Fatalf("expected limit to be reached")
	}
}

func TestPadStaysOnBoard(t *testing.T) {
	p := NewPad(0)
	p.MovingUp = true
	for i := 0; i < 100; i++ {
		p.Update()
	}
	if want := HalfHeight - PadHeight/2; p.Position.Y != want {
		t.Fatalf("pad y = %f, want %f", p.Position.Y, want)
	}
}

func TestWormholeTeleportsAndCreditsOnNextPoint(t *testing.T) {
	a := servedArena(t, true, 0)
	a.Holes[0] = BlackHole{Position: Vec2{X: -5, Y: 0}, Radius: HoleRadius, HasSpawned: true, IsActive: true}
	a.Holes[1] = BlackHole{Position: Vec2{X: 5, Y: 2}, Radius: HoleRadius, HasSpawned: true, IsActive: true}
	a.Ball.Position = Vec2{X: -5.2, Y: 0.1}

	out := a.Resolve(nil)

	if !out.Teleported {
		t.Fatalf("expected teleport")
	}
	if a.Ball.Position != a.Holes[1].Position {
		t.Fatalf("ball at %+v, want exit hole %+v", a.Ball.Position, a.Holes[1].Position)
	}
	for k, h := range a.Holes {
		if h.IsActive || !h.HasDisappeared {
			t.Fatalf("hole %d still usable: %+v", k, h)
		}
	}
	if a.Tracker.Stats[0].Teleports != 0 || a.Tracker.Stats[1].Teleports != 0 {
		t.Fatalf("teleport credited before the point")
	}

	// a second pass through the disabled pair does nothing
	a.Ball.Position = a.Holes[0].Position
	if out := a.Resolve(nil); out.Teleported {
		t.Fatalf("disabled pair teleported again")
	}

	// player 1 lets the ball through on their turn; player 0 scores and gets the credit
	a.Tracker.Turn = 1
	a.Ball.Position = Vec2{X: HalfWidth, Y: HalfHeight - 0.5}
	a.Pads[1].Position.Y = -HalfHeight + PadHeight/2
	out = a.Resolve(nil)
	if !out.Scored || out.Scorer != 0 {
		t.Fatalf("outcome = %+v, want point for player 0", out)
	}
	if a.Tracker.Stats[0].Teleports != 1 {
		t.Fatalf("teleports credited = %d, want 1", a.Tracker.Stats[0].Teleports)
	}

	a.RetireHoles()
	if !a.holesDormant() {
		t.Fatalf("pair should be dormant after retiring")
	}
}

func TestHolesSpawnThenActivate(t *testing.T) {
	a := NewArena(true, 5)
	rng := rand.New(rand.NewSource(1))
	spawned := false
	for i := 0; i < SpawnChance*50 && !spawned; i++ {
		spawned = a.Resolve(rng).HolesSpawned
	}
	if !spawned {
		t.Fatalf("pair never spawned")
	}
	for k, h := range a.Holes {
		if !h.HasSpawned || h.IsActive {
			t.Fatalf("hole %d in wrong state after spawn: %+v", k, h)
		}
		if math.Abs(h.Position.X) > HalfWidth*0.5+1e-9 || math.Abs(h.Position.Y) > HalfHeight*0.6+1e-9 {
			t.Fatalf("hole %d spawned out of range: %+v", k, h.Position)
		}
	}
	if a.Holes[0].Position.X >= 0 || a.Holes[1].Position.X <= 0 {
		t.Fatalf("holes on the wrong halves: %+v", a.Holes)
	}

	// a spawned pair never spawns again before it was retired
	for i := 0; i < SpawnChance*5; i++ {
		if a.Resolve(rng).HolesSpawned {
			t.Fatalf("spawned twice")
		}
	}

	a.ActivateHoles()
	if !a.Holes[0].IsActive || !a.Holes[1].IsActive {
		t.Fatalf("pair not active after activation")
	}
}

func TestClassicArenaHasNoHoles(t *testing.T) {
	a := NewArena(false, 5)
	if a.Holes != nil {
		t.Fatalf("classic arena carries black holes")
	}
	a.ActivateHoles()
	a.RetireHoles()
}
