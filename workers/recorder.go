// workers/recorder.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"pong-arena/services"
	"pong-arena/utils"
)

// Archiver keeps a copy of every finished match outside the database.
type Archiver interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

type job struct {
	name string
	run  func(ctx context.Context) error
}

// Recorder writes engine outcomes to the store on its own goroutine so the
// game loop never waits on the database. Jobs run in the order the engine
// produced them.
type Recorder struct {
	store   services.Store
	archive Archiver // optional
	jobs    chan job
	done    chan struct{}
	dropped atomic.Int64
	timeout time.Duration
}

func NewRecorder(store services.Store, archive Archiver, size int) *Recorder {
	if size <= 0 {
		size = 1024
	}
	return &Recorder{
		store:   store,
		archive: archive,
		jobs:    make(chan job, size),
		done:    make(chan struct{}),
		timeout: 10 * time.Second,
	}
}

func (r *Recorder) Start(ctx context.Context) {
	log.Println("🔁 Starting match recorder…")
	go r.run(ctx)
}

// Done is closed once the recorder has flushed its backlog after shutdown.
func (r *Recorder) Done() <-chan struct{} { return r.done }

func (r *Recorder) Dropped() int64 { return r.dropped.Load() }

func (r *Recorder) run(ctx context.Context) {
	defer close(r.done)
	for {
		select {
		case j := <-r.jobs:
			r.process(ctx, j)
		case <-ctx.Done():
			// the engine is gone too, so nothing new arrives; flush what is buffered
			n := r.drain(context.Background())
			log.Printf("⏹️ Match recorder stopped (%d jobs flushed)", n)
			return
		}
	}
}

// drain runs every buffered job and returns how many it ran.
func (r *Recorder) drain(ctx context.Context) int {
	n := 0
	for {
		select {
		case j := <-r.jobs:
			r.process(ctx, j)
			n++
		default:
			return n
		}
	}
}

func (r *Recorder) process(ctx context.Context, j job) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := j.run(ctx); err != nil {
		log.Printf("[Recorder] ❌ %s failed: %v", j.name, err)
	}
}

func (r *Recorder) enqueue(name string, fn func(ctx context.Context) error) {
	select {
	case r.jobs <- job{name: name, run: fn}:
	default:
		r.dropped.Add(1)
		log.Printf("[Recorder] ⚠️ queue full, dropping %s", name)
	}
}

func (r *Recorder) GameCreated(g services.GameCreated) {
	r.enqueue("create game "+g.ID, func(context.Context) error {
		_, err := r.store.CreateGameRecord(g.ID, g.Players, g.Type, g.Challenge)
		return err
	})
}

// GameFinished persists the result, both stat lines and both experience
// updates, then archives the summary when an archive is configured.
func (r *Recorder) GameFinished(res services.MatchResult) {
	r.enqueue("finish game "+res.ID, func(ctx context.Context) error {
		if err := r.store.UpdateGameRecord(res.ID, res.Score, res.Duration, res.WinnerID); err != nil {
			return err
		}
		for i, p := range res.Players {
			if err := r.store.RecordPlayerStats(p, res.ID, res.Stats[i]); err != nil {
				return err
			}
		}
		for i, p := range res.Players {
			if _, err := r.store.UpdatePlayerExperience(p, res.Score[i], res.Score[1-i], res.WinnerID); err != nil {
				return err
			}
		}
		if r.archive == nil {
			return nil
		}

		body, err := json.Marshal(res.Summary)
		if err != nil {
			return fmt.Errorf("encode summary: %w", err)
		}
		url, err := r.archive.Upload(ctx, utils.MatchKey(string(res.Type), res.EndedAt, res.ID), body, "application/json")
		if err != nil {
			return err
		}
		log.Printf("[Recorder] 📦 archived %s → %s", res.ID, url)
		return nil
	})
}

func (r *Recorder) GameCancelled(id string) {
	r.enqueue("cancel game "+id, func(context.Context) error {
		return r.store.CancelGameRecord(id)
	})
}

func (r *Recorder) PresenceChanged(player uint, status services.Presence) {
	r.enqueue(fmt.Sprintf("presence %d", player), func(context.Context) error {
		return r.store.UpdatePlayerPresence(player, status)
	})
}
