package job

import (
	"context"
	"fmt"
	"time"

	"backend-strideup/internal/logger"

	"github.com/go-co-op/gocron/v2"
)

const sweepJobName = "idle_session_sweep_job"

// Sweeper evicts in-memory session state that has gone idle.
type Sweeper interface {
	SweepIdle(ttl time.Duration) int
}

type Scheduler struct {
	scheduler gocron.Scheduler
	log       logger.Logger
}

func New(log logger.Logger) (*Scheduler, error) {
	if log == nil {
		log = logger.Noop()
	}
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &Scheduler{scheduler: scheduler, log: log}, nil
}

// ScheduleSweep runs sweeper every interval, evicting sessions idle for
// longer than ttl. A run still in progress delays the next one.
func (s *Scheduler) ScheduleSweep(ctx context.Context, sweeper Sweeper, interval, ttl time.Duration) error {
	task := func(ctx context.Context) {
		if n := sweeper.SweepIdle(ttl); n > 0 {
			s.log.Info(ctx, "idle sessions evicted", logger.Int("count", n))
		}
	}
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithContext(ctx),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName(sweepJobName),
	)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", sweepJobName, err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.scheduler.Start()
}

func (s *Scheduler) Shutdown() error {
	return s.scheduler.Shutdown()
}
