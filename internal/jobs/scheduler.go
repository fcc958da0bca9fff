package jobs

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/flowery-users/internal/application"
)

const sweepLockKey = "jobs:sweep-inactive:lock"

// Sweeper is the part of the user service the scheduler drives.
type Sweeper interface {
	SweepInactiveUsers(ctx context.Context) ([]application.UserBriefDTO, error)
}

// Scheduler runs the inactivity sweep on a cron spec. With Redis configured
// only one instance runs a given tick.
type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	lock    *redis.Client
	log     *logrus.Logger
	timeout time.Duration
}

// Parser accepts standard five-field specs, an optional leading seconds
// field, and descriptors such as @daily.
var Parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

func NewScheduler(sweeper Sweeper, lock *redis.Client, log *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithParser(Parser)),
		sweeper: sweeper,
		lock:    lock,
		log:     log,
		timeout: 5 * time.Minute,
	}
}

// Start registers the sweep under spec and starts the cron loop. An empty
// spec disables scheduling.
func (s *Scheduler) Start(spec string) error {
	if spec == "" {
		return nil
	}
	if _, err := s.cron.AddFunc(spec, s.runSweep); err != nil {
		return err
	}
	s.cron.Start()
	s.log.WithField("spec", spec).Info("inactivity sweep scheduled")
	return nil
}

// Stop stops the loop and waits for a running sweep, up to ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if s.lock != nil {
		ok, err := s.lock.SetNX(ctx, sweepLockKey, time.Now().UTC().Format(time.RFC3339), s.timeout).Result()
		if err != nil {
			s.log.WithError(err).Warn("sweep lock failed")
			return
		}
		if !ok {
			s.log.Debug("sweep already running elsewhere")
			return
		}
		defer s.lock.Del(context.Background(), sweepLockKey)
	}

	swept, err := s.sweeper.SweepInactiveUsers(ctx)
	if err != nil {
		s.log.WithError(err).Error("scheduled sweep failed")
		return
	}
	s.log.WithField("count", len(swept)).Info("scheduled sweep finished")
}
