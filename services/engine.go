package services

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"pong-arena/physics"
	"pong-arena/protocol"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/exp/rand"
)

type EngineConfig struct {
	TickRate     int
	ScoreLimit   int
	ChallengeTTL time.Duration
	Countdown    time.Duration // informational 3 s plus a buffer
	ServeDelay   time.Duration
	HoleDelay    time.Duration // spawn → active
	HoleCooldown time.Duration // teleport → dormant
	InboxSize    int
	OutboxSize   int
	Seed         uint64 // 0 seeds from the clock
}

// maxBacklog bounds the lifecycle events held back while the outbox is full.
const maxBacklog = 1 << 14

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		TickRate:     60,
		ScoreLimit:   5,
		ChallengeTTL: 5 * time.Minute,
		Countdown:    3500 * time.Millisecond,
		ServeDelay:   time.Second,
		HoleDelay:    500 * time.Millisecond,
		HoleCooldown: time.Second,
		InboxSize:    256,
		OutboxSize:   4096,
	}
}

// Engine is the single owner of the queues, the challenge book, the session
// registry and all physics. Every exported method hands a closure to the
// loop started by Run and waits for its result, so state is never touched
// in the middle of a tick.
type Engine struct {
	cfg      EngineConfig
	clock    clockwork.Clock
	rng      *rand.Rand
	recorder Recorder
	blocks   BlockChecker

	inbox   chan func()
	outbox  chan Event
	backlog []Event // lifecycle events waiting for outbox room
	stopped chan struct{}
	started atomic.Bool
	dropped atomic.Int64

	queue      *Matchmaker
	challenges *ChallengeBook
	registry   *Registry
	presence   *PresenceBook
	timers     *timerSet
}

// NewEngine wires the engine. recorder and blocks may be nil.
func NewEngine(cfg EngineConfig, clock clockwork.Clock, recorder Recorder, blocks BlockChecker) *Engine {
	def := DefaultEngineConfig()
	if cfg.TickRate <= 0 {
		cfg.TickRate = def.TickRate
	}
	if cfg.ScoreLimit <= 0 {
		cfg.ScoreLimit = def.ScoreLimit
	}
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = def.InboxSize
	}
	if cfg.OutboxSize <= 0 {
		cfg.OutboxSize = def.OutboxSize
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(clock.Now().UnixNano())
	}
	return &Engine{
		cfg:        cfg,
		clock:      clock,
		rng:        rand.New(rand.NewSource(seed)),
		recorder:   recorder,
		blocks:     blocks,
		inbox:      make(chan func(), cfg.InboxSize),
		outbox:     make(chan Event, cfg.OutboxSize),
		stopped:    make(chan struct{}),
		queue:      NewMatchmaker(GameTypes...),
		challenges: NewChallengeBook(cfg.ChallengeTTL),
		registry:   NewRegistry(),
		presence:   NewPresenceBook(),
		timers:     newTimerSet(),
	}
}

func (e *Engine) Config() EngineConfig { return e.cfg }

// Events is the outbound stream consumed by the transport hub.
func (e *Engine) Events() <-chan Event { return e.outbox }

// Run drives the simulation clock and serves calls until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	if !e.started.CompareAndSwap(false, true) {
		return internal("engine already running")
	}
	defer close(e.stopped)

	ticker := e.clock.NewTicker(time.Second / time.Duration(e.cfg.TickRate))
	defer ticker.Stop()

	log.Printf("[Engine] ✅ simulation running at %d Hz (score limit %d)", e.cfg.TickRate, e.cfg.ScoreLimit)
	for {
		select {
		case <-ctx.Done():
			log.Println("[Engine] ⏹️ simulation stopped")
			return ctx.Err()
		case job := <-e.inbox:
			job()
		case <-ticker.Chan():
			e.tick(e.clock.Now())
		}
	}
}

func (e *Engine) call(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	job := func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[Engine] 💥 call panicked: %v", r)
				done <- internal("engine failure")
			}
		}()
		done <- fn()
	}
	select {
	case e.inbox <- job:
	case <-e.stopped:
		return ErrEngineStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-done:
		return err
	case <-e.stopped:
		return ErrEngineStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// emit never blocks the loop. Frame updates are dropped when the outbox is
// full; every other event waits in the backlog, in order, for the next flush.
func (e *Engine) emit(ev Event) {
	e.flushBacklog()
	if ev.Type == protocol.EvGameUpdate {
		if len(e.backlog) > 0 {
			e.dropFrame(ev)
			return
		}
		select {
		case e.outbox <- ev:
		default:
			e.dropFrame(ev)
		}
		return
	}
	if len(e.backlog) == 0 {
		select {
		case e.outbox <- ev:
			return
		default:
		}
	}
	if len(e.backlog) >= maxBacklog {
		e.dropped.Add(1)
		log.Printf("[Engine] ❌ backlog full, dropping %s for %v", ev.Type, ev.To)
		return
	}
	e.backlog = append(e.backlog, ev)
}

func (e *Engine) flushBacklog() {
	sent := 0
flush:
	for _, ev := range e.backlog {
		select {
		case e.outbox <- ev:
			sent++
		default:
			break flush
		}
	}
	if sent > 0 {
		e.backlog = append(e.backlog[:0], e.backlog[sent:]...)
	}
}

func (e *Engine) dropFrame(ev Event) {
	if n := e.dropped.Add(1); n%100 == 1 {
		log.Printf("[Engine] ⚠️ outbox full, dropped %d events so far (last: %s)", n, ev.Type)
	}
}

func (e *Engine) emitTo(event string, payload any, sessionID string, to ...uint) {
	e.emit(Event{Type: event, To: to, SessionID: sessionID, Payload: payload})
}

// ---- simulation clock ----

func (e *Engine) tick(now time.Time) {
	e.flushBacklog()
	e.timers.fire(now)
	for _, s := range e.registry.Sessions() {
		if s.State == StateRunning {
			e.step(s, now)
		}
	}
}

// step advances one session: terminal check, collisions, integration and
// broadcast, in that order.
func (e *Engine) step(s *Session, now time.Time) {
	defer e.recoverSession(s.ID, now)

	a := s.Arena
	if a == nil {
		panic(internal("running session %s has no arena", s.ID))
	}
	if a.Tracker.Reached() {
		e.endSession(s.ID, nil, false, now)
		return
	}

	out := a.Resolve(e.rng)
	if out.HolesSpawned {
		e.after(s.ID, timerHoleActivate, now.Add(e.cfg.HoleDelay), func(time.Time) {
			a.ActivateHoles()
		})
	}
	if out.Teleported {
		e.after(s.ID, timerHoleCooldown, now.Add(e.cfg.HoleCooldown), func(time.Time) {
			a.RetireHoles()
		})
	}
	if out.Scored {
		log.Printf("[Engine] 🏓 %s point for player %d (%d-%d)",
			s.ID, s.Players[out.Scorer], a.Tracker.Score[0], a.Tracker.Score[1])
		if !a.Tracker.Reached() {
			conceder := 1 - out.Scorer
			e.after(s.ID, timerServe, now.Add(e.cfg.ServeDelay), func(time.Time) {
				a.Serve(conceder, e.rng)
			})
		}
	}
	a.Integrate()

	e.emitTo(protocol.EvGameUpdate, s.View(e.cfg.ScoreLimit), s.ID, s.Players[0], s.Players[1])
}

// after schedules a delayed action that is guarded like a tick.
func (e *Engine) after(id string, kind timerKind, due time.Time, fn func(now time.Time)) {
	e.timers.schedule(id, kind, due, func(now time.Time) {
		defer e.recoverSession(id, now)
		fn(now)
	})
}

func (e *Engine) recoverSession(id string, now time.Time) {
	r := recover()
	if r == nil {
		return
	}
	log.Printf("[Engine] 💥 session %s failed: %v, forcing end", id, r)
	e.forceEnd(id, now)
}

func (e *Engine) forceEnd(id string, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Engine] 💥 session %s failed while ending: %v", id, r)
		}
		if s, ok := e.registry.Get(id); ok {
			e.release(s)
		}
	}()
	e.endSession(id, nil, false, now)
}

// ---- session lifecycle ----

func (e *Engine) createSession(p1, p2 uint, t GameType, challenge bool, now time.Time) (*Session, error) {
	s := &Session{
		ID:        uuid.NewString(),
		Type:      t,
		Players:   [2]uint{p1, p2},
		CreatedAt: now,
		State:     StateAwaitingLoad,
	}
	if challenge {
		s.State = StateCreated
		s.ChallengeReady = &[2]bool{}
	}
	if err := e.registry.Add(s); err != nil {
		return nil, err
	}
	for _, p := range s.Players {
		e.queue.DequeueAll(p)
		e.setInGame(p, true)
	}

	e.recorder.GameCreated(GameCreated{ID: s.ID, Type: t, Players: s.Players, Challenge: challenge})
	e.emitTo(protocol.EvInitGame, protocol.InitGame{
		GameID:    s.ID,
		Type:      string(t),
		Challenge: challenge,
		CreatedAt: now.UnixMilli(),
		GameState: s.View(e.cfg.ScoreLimit),
	}, s.ID, p1, p2)

	log.Printf("[Engine] 🎮 session %s created (%s) for players %d and %d", s.ID, t, p1, p2)
	return s, nil
}

func (e *Engine) joinChallengeGame(player uint, id string) error {
	s, ok := e.registry.Get(id)
	if !ok {
		return notFound("session %s not found", id)
	}
	idx := s.Index(player)
	if idx < 0 {
		return forbidden("player %d is not part of session %s", player, id)
	}
	if s.ChallengeReady == nil {
		return conflict("session %s was not created from a challenge", id)
	}
	if s.State != StateCreated {
		return nil
	}
	s.ChallengeReady[idx] = true
	if s.ChallengeReady[0] && s.ChallengeReady[1] {
		s.State = StateAwaitingLoad
		log.Printf("[Engine] 🤝 challenge session %s ready, waiting for clients to load", id)
	}
	return nil
}

func (e *Engine) playerLoaded(player uint, now time.Time) error {
	s, ok := e.registry.ForPlayer(player)
	if !ok || !s.Live() {
		return notFound("player %d is not in a session", player)
	}
	switch s.State {
	case StateCreated:
		return conflict("session %s waits for both players to join", s.ID)
	case StateAwaitingLoad:
	default:
		return nil
	}
	s.Loaded[s.Index(player)] = true
	if s.Loaded[0] && s.Loaded[1] {
		e.startCountdown(s, now)
	}
	return nil
}

// startCountdown builds the arena now that both clients are ready and
// schedules the switch to running.
func (e *Engine) startCountdown(s *Session, now time.Time) {
	s.State = StateCountdownReady
	s.Arena = physics.NewArena(s.Type.Spatial(), e.cfg.ScoreLimit)

	start := now.Add(e.cfg.Countdown)
	e.emitTo(protocol.EvGameReady, protocol.GameReady{GameID: s.ID, StartTimestamp: start.UnixMilli()},
		s.ID, s.Players[0], s.Players[1])

	id := s.ID
	e.after(id, timerCountdown, start, func(now time.Time) {
		if s.State != StateCountdownReady {
			return
		}
		s.State = StateRunning
		s.StartedAt = now
		s.Arena.Serve(e.rng.Intn(2), e.rng)
		log.Printf("[Engine] ▶️ session %s running", id)
	})
}

func (e *Engine) handleInput(player uint, in protocol.UserInput) error {
	s, ok := e.registry.ForPlayer(player)
	if !ok || !s.Live() {
		return forbidden("player %d is not in a session", player)
	}
	if s.Arena == nil {
		return nil
	}
	pad := &s.Arena.Pads[s.Index(player)]
	pad.MovingUp = in.IsMovingUp
	pad.MovingDown = in.IsMovingDown
	return nil
}

func (e *Engine) forfeit(player uint, now time.Time) error {
	s, ok := e.registry.ForPlayer(player)
	if !ok {
		return notFound("player %d is not in a session", player)
	}
	if s.State != StateRunning {
		return nil
	}
	winner := s.Opponent(player)
	log.Printf("[Engine] 🏳️ player %d forfeits session %s", player, s.ID)
	e.endSession(s.ID, &winner, true, now)
	return nil
}

// endSession closes a session once. Without an override the winner is the
// score leader; a tie has no winner.
func (e *Engine) endSession(id string, winnerOverride *uint, forfeit bool, now time.Time) {
	s, ok := e.registry.Get(id)
	if !ok || !s.Live() {
		return
	}
	s.State = StateEnding
	e.timers.cancel(id)

	duration := now.Sub(s.CreatedAt)
	if duration < 0 {
		duration = 0
	}
	score := s.Score()
	stats := s.Stats()

	var winner *uint
	if winnerOverride != nil {
		w := *winnerOverride
		winner = &w
	} else if s.Arena != nil {
		if l := s.Arena.Tracker.Leader(); l >= 0 {
			w := s.Players[l]
			winner = &w
		}
	}

	summary := protocol.EndGame{
		GameID:   s.ID,
		Type:     string(s.Type),
		Score:    score,
		Duration: duration.Milliseconds(),
		WinnerID: winner,
		Forfeit:  forfeit,
	}
	for i, p := range s.Players {
		summary.Participants = append(summary.Participants, protocol.Participant{
			ID:              p,
			Score:           score[i],
			ExperienceDelta: ExperienceDelta(score[i], score[1-i]),
			Stats:           stats[i],
		})
	}
	e.emitTo(protocol.EvEndGame, summary, s.ID, s.Players[0], s.Players[1])

	e.recorder.GameFinished(MatchResult{
		ID:       s.ID,
		Type:     s.Type,
		Players:  s.Players,
		Score:    score,
		Duration: duration,
		WinnerID: winner,
		Forfeit:  forfeit,
		Stats:    stats,
		EndedAt:  now,
		Summary:  summary,
	})
	e.release(s)
	log.Printf("[Engine] 🏁 session %s ended %d-%d after %s", s.ID, score[0], score[1], duration.Round(time.Millisecond))
}

// cancelSession drops a session that never started playing.
func (e *Engine) cancelSession(s *Session, reason string) {
	if !s.Live() {
		return
	}
	s.State = StateEnding
	e.timers.cancel(s.ID)
	e.emitTo(protocol.EvGameCancelled, protocol.GameCancelled{GameID: s.ID, Reason: reason},
		s.ID, s.Players[0], s.Players[1])
	e.recorder.GameCancelled(s.ID)
	e.release(s)
	log.Printf("[Engine] ❌ session %s cancelled: %s", s.ID, reason)
}

func (e *Engine) release(s *Session) {
	e.timers.cancel(s.ID)
	e.registry.Remove(s.ID)
	for _, p := range s.Players {
		e.setInGame(p, false)
	}
	s.State = StateClosed
}

func (e *Engine) setInGame(player uint, in bool) {
	e.presence.SetInGame(player, in)
	if st := e.presence.Status(player); st != PresenceOffline {
		e.recorder.PresenceChanged(player, st)
	}
}

// ---- connections ----

func (e *Engine) connect(player uint) {
	if e.presence.Connect(player) {
		e.recorder.PresenceChanged(player, e.presence.Status(player))
		log.Printf("[Engine] 🔌 player %d online", player)
	}
}

// disconnect only acts on the last open connection of the player.
func (e *Engine) disconnect(player uint, now time.Time) {
	if !e.presence.Disconnect(player) {
		return
	}
	e.queue.DequeueAll(player)
	for _, r := range e.challenges.Involving(player, now) {
		e.challenges.Remove(r.Challenger)
		other := r.Challenged
		if other == player {
			other = r.Challenger
		}
		e.emitTo(protocol.EvChallengeUpdate, protocol.ChallengeUpdate{
			ChallengerID: r.Challenger,
			ChallengedID: r.Challenged,
			Status:       "cancelled",
		}, "", other)
	}
	if s, ok := e.registry.ForPlayer(player); ok && s.Live() {
		if s.State == StateRunning {
			if err := e.forfeit(player, now); err != nil {
				log.Printf("[Engine] ❌ forfeit of player %d failed: %v", player, err)
			}
		} else {
			e.cancelSession(s, "opponent disconnected")
		}
	}
	e.recorder.PresenceChanged(player, PresenceOffline)
	log.Printf("[Engine] 🔌 player %d offline", player)
}

// ---- queue ----

func (e *Engine) enqueue(player uint, gameType string, now time.Time) error {
	t, err := ParseGameType(gameType)
	if err != nil {
		return err
	}
	if e.registry.Busy(player) {
		return conflict("player %d is already in a session", player)
	}
	if err := e.queue.Enqueue(player, t, now); err != nil {
		return err
	}
	e.emitTo(protocol.EvQueueUpdate, protocol.QueueUpdate{Type: string(t), Queued: true}, "", player)
	e.pairingCheck(t, now)
	return nil
}

func (e *Engine) dequeue(player uint, gameType string) error {
	t, err := ParseGameType(gameType)
	if err != nil {
		return err
	}
	if cur, queued := e.queue.Status(player); !queued || cur != t {
		return nil
	}
	if err := e.queue.Dequeue(player, t); err != nil {
		return err
	}
	e.emitTo(protocol.EvQueueUpdate, protocol.QueueUpdate{Type: string(t), Queued: false}, "", player)
	return nil
}

// pairingCheck turns the two oldest entries into a session for as long as
// the queue holds a pair.
func (e *Engine) pairingCheck(t GameType, now time.Time) {
	for e.queue.Len(t) >= 2 {
		a, b, _ := e.queue.PopPair(t)
		if _, err := e.createSession(a, b, t, false, now); err != nil {
			log.Printf("[Matchmaker] ⚠️ could not pair %d and %d: %v", a, b, err)
			var back []uint
			for _, p := range []uint{a, b} {
				if !e.registry.Busy(p) {
					back = append(back, p)
				}
			}
			e.queue.PushFront(t, now, back...)
			if len(back) == 2 {
				return
			}
		}
	}
}

// ---- challenges ----

func (e *Engine) challenge(challenger, challenged uint, t GameType, now time.Time) error {
	if challenger == challenged {
		return forbidden("cannot challenge yourself")
	}
	if !e.presence.Available(challenger) {
		return conflict("player %d is not available", challenger)
	}
	if !e.presence.Available(challenged) {
		return conflict("player %d is not available", challenged)
	}
	req, replaced, err := e.challenges.Create(challenger, challenged, t, now)
	if err != nil {
		return err
	}
	if replaced != nil {
		e.emitTo(protocol.EvChallengeUpdate, protocol.ChallengeUpdate{
			ChallengerID: replaced.Challenger,
			ChallengedID: replaced.Challenged,
			Status:       "cancelled",
		}, "", replaced.Challenged)
	}
	e.emitTo(protocol.EvChallengeReceived, protocol.ChallengeReceived{
		ChallengerID: challenger,
		GameType:     string(t),
		ExpiresAt:    e.challenges.ExpiresAt(req).UnixMilli(),
	}, "", challenged)
	e.emitTo(protocol.EvChallengeUpdate, protocol.ChallengeUpdate{
		ChallengerID: challenger,
		ChallengedID: challenged,
		Status:       "pending",
	}, "", challenger)
	log.Printf("[Challenge] 📨 %d challenged %d to %s", challenger, challenged, t)
	return nil
}

func (e *Engine) acceptChallenge(challenged, challenger uint, now time.Time) (string, error) {
	req, err := e.challenges.Take(challenged, challenger, now)
	if err != nil {
		return "", err
	}
	if !e.presence.Available(challenged) {
		return "", conflict("player %d is not available", challenged)
	}
	if !e.presence.Available(challenger) {
		return "", conflict("player %d is no longer available", challenger)
	}
	s, err := e.createSession(challenger, challenged, req.GameType, true, now)
	if err != nil {
		return "", err
	}
	e.emitTo(protocol.EvChallengeUpdate, protocol.ChallengeUpdate{
		ChallengerID: challenger,
		ChallengedID: challenged,
		Status:       "accepted",
		GameID:       s.ID,
	}, s.ID, challenger, challenged)
	return s.ID, nil
}

func (e *Engine) declineChallenge(challenged, challenger uint, now time.Time) error {
	if _, err := e.challenges.Take(challenged, challenger, now); err != nil {
		return err
	}
	e.emitTo(protocol.EvChallengeUpdate, protocol.ChallengeUpdate{
		ChallengerID: challenger,
		ChallengedID: challenged,
		Status:       "declined",
	}, "", challenger)
	return nil
}

func (e *Engine) cancelChallenge(challenger uint, now time.Time) error {
	r, err := e.challenges.Cancel(challenger, now)
	if err != nil {
		return err
	}
	e.emitTo(protocol.EvChallengeUpdate, protocol.ChallengeUpdate{
		ChallengerID: challenger,
		ChallengedID: r.Challenged,
		Status:       "cancelled",
	}, "", r.Challenged)
	return nil
}

func (e *Engine) sweepChallenges(now time.Time) int {
	n := e.challenges.Sweep(now)
	if n > 0 {
		log.Printf("[Challenge] 🧹 swept %d expired challenges", n)
	}
	return n
}

// ---- read models ----

type Stats struct {
	Sessions   int              `json:"sessions"`
	Running    int              `json:"running"`
	Queues     map[GameType]int `json:"queues"`
	Challenges int              `json:"challenges"`
	Online     int              `json:"online"`
	Dropped    int64            `json:"droppedEvents"`
	Backlog    int              `json:"backlog"`
}

func (e *Engine) stats() Stats {
	st := Stats{
		Sessions:   e.registry.Len(),
		Queues:     e.queue.Sizes(),
		Challenges: e.challenges.Len(),
		Online:     e.presence.Online(),
		Dropped:    e.dropped.Load(),
		Backlog:    len(e.backlog),
	}
	for _, s := range e.registry.Sessions() {
		if s.State == StateRunning {
			st.Running++
		}
	}
	return st
}
