package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"StrategyDesk/internal/model"
)

// UserHydrator is the part of the user store the refresh task drives.
type UserHydrator interface {
	Identity() model.Identity
	FetchUser(ctx context.Context)
	FetchUserStrategies(ctx context.Context) []model.Strategy
}

// CatalogueHydrator is the part of the strategies store the refresh task
// drives.
type CatalogueHydrator interface {
	FetchStrategies(ctx context.Context)
}

// Scheduler re-hydrates the stores on a cron schedule.
type Scheduler struct {
	Cron       *cron.Cron
	User       UserHydrator
	Strategies CatalogueHydrator
	Ctx        context.Context
	Log        *zap.Logger

	// OnRefresh, if set, runs after every refresh.
	OnRefresh func()

	mu sync.Mutex
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, user UserHydrator, strategies CatalogueHydrator, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		Cron:       cron.New(cron.WithSeconds()),
		User:       user,
		Strategies: strategies,
		Ctx:        ctx,
		Log:        logger,
	}
}

// RegisterAll registers the refresh task.
func (s *Scheduler) RegisterAll(refreshCron string) error {
	if _, err := s.Cron.AddFunc(refreshCron, s.refreshTask); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Log.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for a running refresh to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Log.Info("scheduler stopped")
}

// RunNow executes the refresh task immediately.
func (s *Scheduler) RunNow() {
	s.refreshTask()
}

// refreshTask hydrates the public catalogue and, when an identity is set,
// the user's profile and holdings. Overlapping runs are serialized.
func (s *Scheduler) refreshTask() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Log.Debug("running refresh task")
	s.Strategies.FetchStrategies(s.Ctx)

	id := s.User.Identity()
	if id.Ready() {
		s.User.FetchUser(s.Ctx)
		s.User.FetchUserStrategies(s.Ctx)
	} else {
		s.Log.Debug("skipping user refresh, not signed in")
	}

	if s.OnRefresh != nil {
		s.OnRefresh()
	}
}
