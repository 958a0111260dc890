package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/azkafin/finmate-bfa-go/internal/domain"
	"github.com/azkafin/finmate-bfa-go/internal/infra/bus"
	"github.com/azkafin/finmate-bfa-go/internal/infra/cache"
	"github.com/azkafin/finmate-bfa-go/internal/infra/localstate"
	"github.com/azkafin/finmate-bfa-go/internal/infra/observability"
	"github.com/azkafin/finmate-bfa-go/internal/port"
	"github.com/azkafin/finmate-bfa-go/internal/service"

	"go.uber.org/zap"
)

// --- Mocks ---

type mockGoalStore struct {
	goals     []domain.Goal
	listErr   error
	created   *domain.Goal
	allocated *domain.Goal
	allocErr  error

	listCalls   int
	createCalls int
	allocCalls  int
	deleteCalls int
}

func (m *mockGoalStore) ListGoals(_ context.Context, _ string) ([]domain.Goal, error) {
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.goals, nil
}

func (m *mockGoalStore) CreateGoal(_ context.Context, _ string, req domain.GoalRequest) (*domain.Goal, error) {
	m.createCalls++
	if m.created != nil {
		return m.created, nil
	}
	return &domain.Goal{ID: "goal-new", Name: req.Name, TargetAmount: req.TargetAmount, Deadline: req.Deadline}, nil
}

func (m *mockGoalStore) UpdateGoal(_ context.Context, id string, req domain.GoalRequest) (*domain.Goal, error) {
	return &domain.Goal{ID: id, Name: req.Name, TargetAmount: req.TargetAmount}, nil
}

func (m *mockGoalStore) DeleteGoal(_ context.Context, _ string) error {
	m.deleteCalls++
	return nil
}

func (m *mockGoalStore) Allocate(_ context.Context, _ string, req domain.AllocationRequest) (*domain.Goal, error) {
	m.allocCalls++
	if m.allocErr != nil {
		return nil, m.allocErr
	}
	if m.allocated != nil {
		return m.allocated, nil
	}
	return &domain.Goal{ID: req.GoalID, CurrentAmount: req.Amount, TargetAmount: dec("1000")}, nil
}

var _ port.GoalStore = (*mockGoalStore)(nil)

type mockBalanceFetcher struct {
	summary *domain.BalanceSummary
	err     error
	calls   int
}

func (m *mockBalanceFetcher) GetBalance(_ context.Context, _ string) (*domain.BalanceSummary, error) {
	m.calls++
	return m.summary, m.err
}

var _ port.BalanceFetcher = (*mockBalanceFetcher)(nil)

func newTestState(t *testing.T) *localstate.Store {
	t.Helper()
	st, err := localstate.New(t.TempDir()+"/state.json", zap.NewNop())
	if err != nil {
		t.Fatalf("localstate init failed: %v", err)
	}
	return st
}

func newGoalService(t *testing.T, store port.GoalStore, balance port.BalanceFetcher) (*service.GoalService, *bus.Bus) {
	t.Helper()
	events := bus.New()
	t.Cleanup(events.Close)
	metrics := observability.NewMetrics()
	gam := service.NewGamificationService(newTestState(t), events, metrics, zap.NewNop())
	balanceCache := cache.New[*domain.BalanceSummary](time.Minute)
	t.Cleanup(balanceCache.Close)
	return service.NewGoalService(store, balance, balanceCache, gam, events, metrics, zap.NewNop()), events
}

// --- Tests ---

func TestCreateGoal_Validation(t *testing.T) {
	store := &mockGoalStore{}
	svc, _ := newGoalService(t, store, &mockBalanceFetcher{})
	future := time.Now().AddDate(0, 1, 0)

	tests := []struct {
		name string
		req  domain.GoalRequest
	}{
		{"empty name", domain.GoalRequest{Name: "  ", TargetAmount: dec("500"), Deadline: future}},
		{"digits-only name", domain.GoalRequest{Name: "12345", TargetAmount: dec("500"), Deadline: future}},
		{"target exactly 1", domain.GoalRequest{Name: "Vacation", TargetAmount: dec("1"), Deadline: future}},
		{"target below 1", domain.GoalRequest{Name: "Vacation", TargetAmount: dec("0.5"), Deadline: future}},
		{"past deadline", domain.GoalRequest{Name: "Vacation", TargetAmount: dec("500"), Deadline: time.Now().AddDate(0, 0, -2)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateGoal(context.Background(), "user@x.io", tt.req)
			var ve *domain.ErrValidation
			if !errors.As(err, &ve) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}

	if store.createCalls != 0 {
		t.Errorf("expected no create calls for invalid requests, got %d", store.createCalls)
	}
}

func TestCreateGoal_TodayDeadlineAccepted(t *testing.T) {
	store := &mockGoalStore{}
	svc, _ := newGoalService(t, store, &mockBalanceFetcher{})

	_, err := svc.CreateGoal(context.Background(), "user@x.io", domain.GoalRequest{
		Name:         "Vacation",
		TargetAmount: dec("500"),
		Deadline:     time.Now(),
	})
	if err != nil {
		t.Fatalf("a deadline of today must be accepted, got %v", err)
	}
}

func TestUpdateGoal_TargetBelowSavedRejected(t *testing.T) {
	store := &mockGoalStore{
		goals: []domain.Goal{
			{ID: "g1", Name: "Vacation", TargetAmount: dec("500"), CurrentAmount: dec("300")},
		},
	}
	svc, _ := newGoalService(t, store, &mockBalanceFetcher{})

	_, err := svc.UpdateGoal(context.Background(), "user@x.io", "g1", domain.GoalRequest{
		Name:         "Vacation",
		TargetAmount: dec("200"),
	})
	var ve *domain.ErrValidation
	if !errors.As(err, &ve) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestUpdateGoal_UnknownGoal(t *testing.T) {
	svc, _ := newGoalService(t, &mockGoalStore{}, &mockBalanceFetcher{})

	_, err := svc.UpdateGoal(context.Background(), "user@x.io", "missing", domain.GoalRequest{
		Name:         "Vacation",
		TargetAmount: dec("500"),
	})
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAllocate_ExceedsTargetRejectedWithoutNetworkCall(t *testing.T) {
	store := &mockGoalStore{
		goals: []domain.Goal{
			{ID: "g1", Name: "Vacation", TargetAmount: dec("500"), CurrentAmount: dec("500")},
		},
	}
	balance := &mockBalanceFetcher{summary: &domain.BalanceSummary{Available: dec("10000")}}
	svc, _ := newGoalService(t, store, balance)

	_, err := svc.Allocate(context.Background(), "user@x.io", domain.AllocationRequest{
		GoalID: "g1",
		Amount: dec("10"),
	})

	var exceeds *domain.ErrAllocationExceedsTarget
	if !errors.As(err, &exceeds) {
		t.Fatalf("expected ErrAllocationExceedsTarget, got %v", err)
	}
	if err.Error() != "Cannot allocate more than target goal" {
		t.Errorf("unexpected rejection message: %q", err.Error())
	}
	if store.allocCalls != 0 {
		t.Errorf("expected no allocation call, got %d", store.allocCalls)
	}
	if balance.calls != 0 {
		t.Errorf("target headroom must be checked before the balance, got %d balance calls", balance.calls)
	}
}

func TestAllocate_InsufficientFunds(t *testing.T) {
	store := &mockGoalStore{
		goals: []domain.Goal{
			{ID: "g1", Name: "Vacation", TargetAmount: dec("1000"), CurrentAmount: dec("100")},
		},
	}
	balance := &mockBalanceFetcher{summary: &domain.BalanceSummary{Available: dec("50")}}
	svc, _ := newGoalService(t, store, balance)

	_, err := svc.Allocate(context.Background(), "user@x.io", domain.AllocationRequest{
		GoalID: "g1",
		Amount: dec("200"),
	})

	var insufficient *domain.ErrInsufficientFunds
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if store.allocCalls != 0 {
		t.Errorf("expected no allocation call, got %d", store.allocCalls)
	}
}

func TestAllocate_NonPositiveAmount(t *testing.T) {
	svc, _ := newGoalService(t, &mockGoalStore{}, &mockBalanceFetcher{})

	for _, amount := range []string{"0", "-10"} {
		_, err := svc.Allocate(context.Background(), "user@x.io", domain.AllocationRequest{
			GoalID: "g1",
			Amount: dec(amount),
		})
		var ve *domain.ErrValidation
		if !errors.As(err, &ve) {
			t.Errorf("amount %s: expected ErrValidation, got %v", amount, err)
		}
	}
}

func TestAllocate_SuccessInvalidatesBalanceCacheAndPublishes(t *testing.T) {
	store := &mockGoalStore{
		goals: []domain.Goal{
			{ID: "g1", Name: "Vacation", TargetAmount: dec("1000"), CurrentAmount: dec("100")},
		},
	}
	balance := &mockBalanceFetcher{summary: &domain.BalanceSummary{Available: dec("5000")}}
	svc, events := newGoalService(t, store, balance)

	ch, cancel := events.Subscribe(bus.TopicGoalsUpdated)
	defer cancel()

	// Warm the balance cache, then allocate.
	if _, err := svc.AvailableBalance(context.Background(), "user@x.io"); err != nil {
		t.Fatalf("balance fetch failed: %v", err)
	}
	if _, err := svc.Allocate(context.Background(), "user@x.io", domain.AllocationRequest{
		GoalID: "g1",
		Amount: dec("200"),
	}); err != nil {
		t.Fatalf("allocation failed: %v", err)
	}

	// The next balance read must hit the fetcher again.
	before := balance.calls
	if _, err := svc.AvailableBalance(context.Background(), "user@x.io"); err != nil {
		t.Fatalf("balance fetch failed: %v", err)
	}
	if balance.calls != before+1 {
		t.Errorf("expected the cached balance to be invalidated after allocation")
	}

	select {
	case e := <-ch:
		if e.Topic != bus.TopicGoalsUpdated {
			t.Errorf("expected goals_updated topic, got %s", e.Topic)
		}
	default:
		t.Fatal("expected a published goal event")
	}
}

func TestAllocate_ReachingTargetAwardsCompletion(t *testing.T) {
	store := &mockGoalStore{
		goals: []domain.Goal{
			{ID: "g1", Name: "Vacation", TargetAmount: dec("500"), CurrentAmount: dec("400")},
		},
		allocated: &domain.Goal{ID: "g1", TargetAmount: dec("500"), CurrentAmount: dec("500")},
	}
	balance := &mockBalanceFetcher{summary: &domain.BalanceSummary{Available: dec("5000")}}

	events := bus.New()
	t.Cleanup(events.Close)
	metrics := observability.NewMetrics()
	state := newTestState(t)
	gam := service.NewGamificationService(state, events, metrics, zap.NewNop())
	balanceCache := cache.New[*domain.BalanceSummary](time.Minute)
	t.Cleanup(balanceCache.Close)
	svc := service.NewGoalService(store, balance, balanceCache, gam, events, metrics, zap.NewNop())

	if _, err := svc.Allocate(context.Background(), "user@x.io", domain.AllocationRequest{
		GoalID: "g1",
		Amount: dec("100"),
	}); err != nil {
		t.Fatalf("allocation failed: %v", err)
	}

	profile := gam.Profile("user@x.io")
	if profile.XP != domain.XPGoalCompleted+domain.XPGoalAllocation {
		t.Errorf("expected completion plus allocation XP, got %d", profile.XP)
	}
	if !profile.HasBadge(domain.BadgeGoalFinisher) {
		t.Error("expected the goal finisher badge")
	}
}

func TestDeleteGoal_RequiresConfirmation(t *testing.T) {
	store := &mockGoalStore{}
	svc, _ := newGoalService(t, store, &mockBalanceFetcher{})

	err := svc.DeleteGoal(context.Background(), "user@x.io", "g1", false)
	var confirm *domain.ErrConfirmationRequired
	if !errors.As(err, &confirm) {
		t.Fatalf("expected ErrConfirmationRequired, got %v", err)
	}
	if store.deleteCalls != 0 {
		t.Errorf("expected no delete call, got %d", store.deleteCalls)
	}
}
