package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"StrategyDesk/internal/model"
)

type fakeUser struct {
	id         model.Identity
	users      atomic.Int32
	strategies atomic.Int32
}

func (f *fakeUser) Identity() model.Identity { return f.id }

func (f *fakeUser) FetchUser(context.Context) { f.users.Add(1) }

func (f *fakeUser) FetchUserStrategies(context.Context) []model.Strategy {
	f.strategies.Add(1)
	return nil
}

type fakeCatalogue struct{ calls atomic.Int32 }

func (f *fakeCatalogue) FetchStrategies(context.Context) { f.calls.Add(1) }

func TestRunNow_SignedOut(t *testing.T) {
	u := &fakeUser{id: model.Identity{UserID: model.UnsetUserID}}
	c := &fakeCatalogue{}
	s := NewScheduler(context.Background(), u, c, nil)

	s.RunNow()

	if c.calls.Load() != 1 {
		t.Errorf("expected 1 catalogue fetch, got %d", c.calls.Load())
	}
	if u.users.Load() != 0 || u.strategies.Load() != 0 {
		t.Error("user endpoints must not be hit without an identity")
	}
}

func TestRunNow_SignedIn(t *testing.T) {
	u := &fakeUser{id: model.Identity{UserID: 4, Token: "tok"}}
	c := &fakeCatalogue{}
	s := NewScheduler(context.Background(), u, c, nil)
	refreshed := 0
	s.OnRefresh = func() { refreshed++ }

	s.RunNow()

	if u.users.Load() != 1 || u.strategies.Load() != 1 {
		t.Errorf("expected one user and one holdings fetch, got %d and %d", u.users.Load(), u.strategies.Load())
	}
	if refreshed != 1 {
		t.Errorf("expected OnRefresh once, got %d", refreshed)
	}
}

func TestRegisterAll_BadSpec(t *testing.T) {
	s := NewScheduler(context.Background(), &fakeUser{}, &fakeCatalogue{}, nil)
	if err := s.RegisterAll("not a cron"); err == nil {
		t.Fatal("expected error for invalid cron spec")
	}
}

func TestCron_FiresAndStopsCleanly(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := &fakeCatalogue{}
	s := NewScheduler(context.Background(), &fakeUser{}, c, nil)
	if err := s.RegisterAll("* * * * * *"); err != nil {
		t.Fatalf("register: %v", err)
	}
	s.Start()

	deadline := time.Now().Add(3 * time.Second)
	for c.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	s.Stop()

	if c.calls.Load() == 0 {
		t.Fatal("refresh task never fired")
	}
}
