package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler triggers discovery runs on a standard five-field cron expression.
type Scheduler struct {
	cron   *cron.Cron
	runner *Runner
	logger *zap.Logger
}

// New parses schedule and registers the discovery job. It does not start the scheduler.
func New(runner *Runner, schedule string, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return nil, fmt.Errorf("invalid discovery schedule %q: %w", schedule, err)
	}

	s := &Scheduler{
		cron:   cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger))),
		runner: runner,
		logger: logger,
	}
	if _, err := s.cron.AddFunc(schedule, s.tick); err != nil {
		return nil, fmt.Errorf("failed to schedule discovery: %w", err)
	}
	return s, nil
}

func (s *Scheduler) tick() {
	id, err := s.runner.Trigger("")
	switch {
	case errors.Is(err, ErrRunInProgress):
		s.logger.Info("skipping scheduled discovery, previous run still active", zap.String("run_id", id))
	case err != nil:
		s.logger.Error("scheduled discovery failed to start", zap.Error(err))
	default:
		s.logger.Info("scheduled discovery started", zap.String("run_id", id))
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		s.logger.Info("discovery scheduled", zap.Time("next_run", e.Next))
	}
}

// Stop prevents new runs and returns a context done once any running job func returns.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
