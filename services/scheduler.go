package services

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartMaintenance runs the housekeeping jobs next to the engine loop: the
// challenge sweep and a gauge line in the log. Callers shut the returned
// scheduler down.
func (e *Engine) StartMaintenance(ctx context.Context, sweepEvery, gaugeEvery time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	// Every 30s: drop challenges nobody will ever read again
	_, err = sched.NewJob(
		gocron.DurationJob(sweepEvery),
		gocron.NewTask(func() {
			if _, err := e.SweepChallenges(ctx); err != nil {
				log.Printf("[Scheduler] challenge sweep failed: %v", err)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, err
	}

	// Every minute: live gauges
	_, err = sched.NewJob(
		gocron.DurationJob(gaugeEvery),
		gocron.NewTask(func() {
			st, err := e.Stats(ctx)
			if err != nil {
				log.Printf("[Scheduler] stats failed: %v", err)
				return
			}
			log.Printf("[Scheduler] 📊 sessions=%d running=%d queued=%v challenges=%d online=%d dropped=%d backlog=%d",
				st.Sessions, st.Running, st.Queues, st.Challenges, st.Online, st.Dropped, st.Backlog)
		}),
	)
	if err != nil {
		return nil, err
	}

	sched.Start()
	return sched, nil
}
