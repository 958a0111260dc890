package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/azkafin/finmate-bfa-go/internal/domain"
	"github.com/azkafin/finmate-bfa-go/internal/handler"
	"github.com/azkafin/finmate-bfa-go/internal/infra/bus"
	"github.com/azkafin/finmate-bfa-go/internal/infra/cache"
	"github.com/azkafin/finmate-bfa-go/internal/infra/localstate"
	"github.com/azkafin/finmate-bfa-go/internal/infra/observability"
	"github.com/azkafin/finmate-bfa-go/internal/service"
	"github.com/azkafin/finmate-bfa-go/internal/types"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// --- Port stubs ---

type stubBudgetStore struct {
	categories []domain.BudgetCategorySummary
}

func (s *stubBudgetStore) GetMonthSummary(_ context.Context, _ string, _ types.Month) ([]domain.BudgetCategorySummary, error) {
	return s.categories, nil
}

func (s *stubBudgetStore) CreateCategory(_ context.Context, _ string, req domain.CreateCategoryRequest) (*domain.BudgetCategorySummary, error) {
	return &domain.BudgetCategorySummary{ID: "cat-new", Name: req.CategoryRef, Allocated: req.Allocated}, nil
}

func (s *stubBudgetStore) UpdateAllocation(_ context.Context, id string, amount decimal.Decimal) (*domain.BudgetCategorySummary, error) {
	return &domain.BudgetCategorySummary{ID: id, Allocated: amount}, nil
}

func (s *stubBudgetStore) DeleteCategory(_ context.Context, _ string) error { return nil }

type stubGoalStore struct {
	goals []domain.Goal
}

func (s *stubGoalStore) ListGoals(_ context.Context, _ string) ([]domain.Goal, error) {
	return s.goals, nil
}

func (s *stubGoalStore) CreateGoal(_ context.Context, _ string, req domain.GoalRequest) (*domain.Goal, error) {
	return &domain.Goal{ID: "goal-new", Name: req.Name, TargetAmount: req.TargetAmount}, nil
}

func (s *stubGoalStore) UpdateGoal(_ context.Context, id string, req domain.GoalRequest) (*domain.Goal, error) {
	return &domain.Goal{ID: id, Name: req.Name, TargetAmount: req.TargetAmount}, nil
}

func (s *stubGoalStore) DeleteGoal(_ context.Context, _ string) error { return nil }

func (s *stubGoalStore) Allocate(_ context.Context, _ string, req domain.AllocationRequest) (*domain.Goal, error) {
	return &domain.Goal{ID: req.GoalID, CurrentAmount: req.Amount, TargetAmount: dec("1000")}, nil
}

type stubBalanceFetcher struct {
	summary domain.BalanceSummary
}

func (s *stubBalanceFetcher) GetBalance(_ context.Context, _ string) (*domain.BalanceSummary, error) {
	out := s.summary
	return &out, nil
}

type stubReminderStore struct {
	reminders []domain.Reminder
}

func (s *stubReminderStore) ListReminders(_ context.Context, _ string) ([]domain.Reminder, error) {
	return s.reminders, nil
}

func (s *stubReminderStore) CompleteReminder(_ context.Context, _ string) error { return nil }
func (s *stubReminderStore) DeleteReminder(_ context.Context, _ string) error   { return nil }

type stubScheduleFetcher struct{}

func (s *stubScheduleFetcher) ListActiveSchedules(_ context.Context, _ string) ([]domain.Schedule, error) {
	return nil, nil
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

// --- Fixture ---

type fixture struct {
	router  http.Handler
	budgets *stubBudgetStore
	goals   *stubGoalStore
	balance *stubBalanceFetcher
	state   *localstate.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	events := bus.New()
	t.Cleanup(events.Close)

	state, err := localstate.New(t.TempDir()+"/state.json", logger)
	if err != nil {
		t.Fatalf("localstate init failed: %v", err)
	}

	budgetStore := &stubBudgetStore{}
	goalStore := &stubGoalStore{}
	balance := &stubBalanceFetcher{summary: domain.BalanceSummary{Available: dec("5000")}}
	balanceCache := cache.New[*domain.BalanceSummary](time.Minute)
	t.Cleanup(balanceCache.Close)

	gamification := service.NewGamificationService(state, events, metrics, logger)
	budgets := service.NewBudgetService(budgetStore, events, metrics, logger)
	goals := service.NewGoalService(goalStore, balance, balanceCache, gamification, events, metrics, logger)
	reminders := service.NewReminderService(&stubReminderStore{}, &stubScheduleFetcher{}, budgetStore, state, gamification, events, metrics, logger)
	zakat := service.NewZakatService(balance, gamification, dec("5000"), metrics, logger)

	router := handler.NewRouter(handler.Services{
		Budgets:      budgets,
		Goals:        goals,
		Reminders:    reminders,
		Zakat:        zakat,
		Gamification: gamification,
		Events:       events,
		State:        state,
	}, metrics, logger)

	return &fixture{
		router:  router,
		budgets: budgetStore,
		goals:   goalStore,
		balance: balance,
		state:   state,
	}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

// --- Probes ---

func TestHealthz(t *testing.T) {
	rec := newFixture(t).do(t, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestReadyz(t *testing.T) {
	rec := newFixture(t).do(t, http.MethodGet, "/readyz", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	rec := newFixture(t).do(t, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

// --- Budgets ---

func TestBudgetOverviewEndpoint(t *testing.T) {
	f := newFixture(t)
	f.budgets.categories = []domain.BudgetCategorySummary{
		{ID: "c1", Name: "Groceries", Allocated: dec("200"), Spent: dec("100")},
	}

	rec := f.do(t, http.MethodGet, "/v1/users/u@x.io/budgets/overview?month=2026-09", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Overview struct {
			UsagePercent float64 `json:"usage_percent"`
			Level        struct {
				Level int    `json:"level"`
				Name  string `json:"name"`
			} `json:"level"`
		} `json:"overview"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Overview.UsagePercent != 50 {
		t.Errorf("expected 50%% usage, got %f", resp.Overview.UsagePercent)
	}
	if resp.Overview.Level.Level != 3 {
		t.Errorf("expected level 3, got %d", resp.Overview.Level.Level)
	}
}

func TestBudgetOverviewRejectsBadMonth(t *testing.T) {
	rec := newFixture(t).do(t, http.MethodGet, "/v1/users/u@x.io/budgets/overview?month=2026-13", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for an invalid month, got %d", rec.Code)
	}
}

func TestCreateCategoryRejectsDuplicate(t *testing.T) {
	f := newFixture(t)
	f.budgets.categories = []domain.BudgetCategorySummary{
		{ID: "c1", Name: "Groceries", Allocated: dec("200")},
	}

	rec := f.do(t, http.MethodPost, "/v1/users/u@x.io/budgets/categories", map[string]any{
		"category_ref": "GROCERIES",
		"allocated":    "100",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 for a duplicate name, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestDeleteCategoryRequiresConfirm(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodDelete, "/v1/users/u@x.io/budgets/categories/c1", nil)
	if rec.Code != http.StatusPreconditionRequired {
		t.Errorf("expected 428 without confirm, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodDelete, "/v1/users/u@x.io/budgets/categories/c1?confirm=true", nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204 with confirm, got %d", rec.Code)
	}
}

func TestLevelEndpoint(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/v1/budgets/level?percent=50", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var level struct {
		Level int `json:"level"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &level); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if level.Level != 3 {
		t.Errorf("expected level 3 for 50%%, got %d", level.Level)
	}

	rec = f.do(t, http.MethodGet, "/v1/budgets/level?percent=abc", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a bad percent, got %d", rec.Code)
	}
}

// --- Goals ---

func TestCreateGoalValidation(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/users/u@x.io/goals", map[string]any{
		"name":          "12345",
		"target_amount": "500",
		"deadline":      time.Now().AddDate(0, 1, 0).Format(time.RFC3339),
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a digits-only name, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAllocateExceedsTargetResponse(t *testing.T) {
	f := newFixture(t)
	f.goals.goals = []domain.Goal{
		{ID: "g1", Name: "Vacation", TargetAmount: dec("500"), CurrentAmount: dec("500")},
	}

	rec := f.do(t, http.MethodPost, "/v1/users/u@x.io/goals/allocate", map[string]any{
		"goal_id": "g1",
		"amount":  "10",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error != "Cannot allocate more than target goal" {
		t.Errorf("unexpected error message: %q", resp.Error)
	}
}

func TestBalanceEndpoint(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/v1/users/u@x.io/balance", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var summary domain.BalanceSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !summary.Available.Equal(dec("5000")) {
		t.Errorf("expected 5000 available, got %s", summary.Available)
	}
}

// --- Reminders & preferences ---

func TestReminderFeedEndpoint(t *testing.T) {
	f := newFixture(t)
	f.budgets.categories = []domain.BudgetCategorySummary{
		{ID: "c1", Name: "Dining", Allocated: dec("100"), Spent: dec("120")},
	}

	rec := f.do(t, http.MethodGet, "/v1/users/u@x.io/reminders", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Reminders []domain.Reminder `json:"reminders"`
		Count     int               `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 1 {
		t.Fatalf("expected one reminder, got %d", resp.Count)
	}
	if resp.Reminders[0].ID != "budget_critical_c1" {
		t.Errorf("expected the critical alert, got %s", resp.Reminders[0].ID)
	}
}

func TestDismissThenFeedOmits(t *testing.T) {
	f := newFixture(t)
	f.budgets.categories = []domain.BudgetCategorySummary{
		{ID: "c1", Name: "Dining", Allocated: dec("100"), Spent: dec("120")},
	}

	rec := f.do(t, http.MethodPost, "/v1/users/u@x.io/reminders/budget_critical_c1/dismiss", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/v1/users/u@x.io/reminders", nil)
	var resp struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 0 {
		t.Errorf("expected the dismissed alert to be gone, got %d items", resp.Count)
	}
}

func TestPreferencesRoundTrip(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPut, "/v1/users/u@x.io/preferences", map[string]bool{
		"budget": false, "goal": true, "zakat": true, "schedule": true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/v1/users/u@x.io/preferences", nil)
	var prefs domain.NotificationPreferences
	if err := json.Unmarshal(rec.Body.Bytes(), &prefs); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if prefs.Budget || !prefs.Goal {
		t.Errorf("unexpected stored preferences: %+v", prefs)
	}
}

// --- Zakat & profile ---

func TestZakatEndpoint(t *testing.T) {
	f := newFixture(t)
	f.balance.summary = domain.BalanceSummary{
		TotalIncome:   dec("50000"),
		TotalExpenses: dec("20000"),
	}

	rec := f.do(t, http.MethodGet, "/v1/users/u@x.io/zakat", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var assessment domain.ZakatAssessment
	if err := json.Unmarshal(rec.Body.Bytes(), &assessment); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !assessment.Eligible {
		t.Error("expected eligibility above the nisab")
	}
	if !assessment.Due.Equal(dec("750")) {
		t.Errorf("expected 750 due, got %s", assessment.Due)
	}
}

func TestProfileEndpoint(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/v1/users/u@x.io/profile", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var profile domain.GamificationProfile
	if err := json.Unmarshal(rec.Body.Bytes(), &profile); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if profile.Level != 1 {
		t.Errorf("expected level 1 default, got %d", profile.Level)
	}
}

func TestOnboardingRoundTrip(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/v1/users/u@x.io/onboarding", nil)
	var seen struct {
		Seen bool `json:"seen"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &seen); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if seen.Seen {
		t.Error("expected onboarding unseen by default")
	}

	if rec := f.do(t, http.MethodPost, "/v1/users/u@x.io/onboarding", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/v1/users/u@x.io/onboarding", nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &seen); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !seen.Seen {
		t.Error("expected onboarding marked seen")
	}
}

// --- Refresh snapshot ---

func TestRefreshMetricsEndpoint(t *testing.T) {
	rec := newFixture(t).do(t, http.MethodGet, "/v1/metrics/refresh", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var snapshot observability.RefreshSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snapshot); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}
