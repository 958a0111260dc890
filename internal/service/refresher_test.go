package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/azkafin/finmate-bfa-go/internal/domain"
	"github.com/azkafin/finmate-bfa-go/internal/infra/bus"
	"github.com/azkafin/finmate-bfa-go/internal/infra/observability"
	"github.com/azkafin/finmate-bfa-go/internal/service"

	"go.uber.org/zap"
)

func newRefresherFixture(t *testing.T, interval time.Duration) (*service.Refresher, *mockBudgetStore, *observability.Metrics) {
	t.Helper()
	events := bus.New()
	t.Cleanup(events.Close)
	metrics := observability.NewMetrics()
	state := newTestState(t)
	gam := service.NewGamificationService(state, events, metrics, zap.NewNop())

	store := &mockBudgetStore{
		categories: []domain.BudgetCategorySummary{
			{ID: "c1", Name: "Groceries", Allocated: dec("300"), Spent: dec("150")},
		},
	}
	budgets := service.NewBudgetService(store, events, metrics, zap.NewNop())
	reminders := service.NewReminderService(&mockReminderStore{}, &mockScheduleFetcher{}, store, state, gam, events, metrics, zap.NewNop())

	return service.NewRefresher(budgets, reminders, interval, metrics, zap.NewNop()), store, metrics
}

func TestRefresher_PollsTrackedUsers(t *testing.T) {
	refresher, store, _ := newRefresherFixture(t, 5*time.Millisecond)
	refresher.Track("user@x.io")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go refresher.Run(ctx)

	deadline := time.After(time.Second)
	for store.summaryCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("expected at least one refresh fetch")
		case <-time.After(5 * time.Millisecond):
		}
	}

	refresher.Stop()
}

func TestRefresher_UntrackedUserNotPolled(t *testing.T) {
	refresher, store, _ := newRefresherFixture(t, 5*time.Millisecond)
	refresher.Track("user@x.io")
	refresher.Untrack("user@x.io")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go refresher.Run(ctx)

	time.Sleep(30 * time.Millisecond)
	refresher.Stop()

	if n := store.summaryCount(); n != 0 {
		t.Errorf("expected no fetches for an untracked user, got %d", n)
	}
}

func TestRefresher_StopWaitsForLoop(t *testing.T) {
	refresher, _, _ := newRefresherFixture(t, time.Hour)
	go refresher.Run(context.Background())

	done := make(chan struct{})
	go func() {
		refresher.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after the loop exited")
	}
}

func TestRefresher_ContextCancelStopsLoop(t *testing.T) {
	refresher, _, _ := newRefresherFixture(t, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	exited := make(chan struct{})
	go func() {
		refresher.Run(ctx)
		close(exited)
	}()

	cancel()
	select {
	case <-exited:
	case <-time.After(time.Second):
		t.Fatal("Run did not exit on context cancellation")
	}
}

func TestRefresher_CountsRuns(t *testing.T) {
	refresher, _, metrics := newRefresherFixture(t, 5*time.Millisecond)
	refresher.Track("user@x.io")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go refresher.Run(ctx)

	deadline := time.After(time.Second)
	for metrics.GetRefreshSnapshot().Runs == 0 {
		select {
		case <-deadline:
			t.Fatal("expected the run counter to move")
		case <-time.After(5 * time.Millisecond):
		}
	}

	refresher.Stop()
}
