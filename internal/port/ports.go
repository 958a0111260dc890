// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the service
// layer from the concrete finance server clients.
package port

import (
	"context"

	"github.com/azkafin/finmate-bfa-go/internal/domain"
	"github.com/azkafin/finmate-bfa-go/internal/types"

	"github.com/shopspring/decimal"
)

// BudgetStore talks to the finance server's budget endpoints.
type BudgetStore interface {
	// GetMonthSummary fetches the per-category allocation/spend summary
	// for one month.
	GetMonthSummary(ctx context.Context, user string, month types.Month) ([]domain.BudgetCategorySummary, error)

	// CreateCategory creates a budget category. Implementations try the
	// primary endpoint and fall back to the legacy-shaped one before
	// surfacing an error.
	CreateCategory(ctx context.Context, user string, req domain.CreateCategoryRequest) (*domain.BudgetCategorySummary, error)

	// UpdateAllocation changes the allocated amount only; the category
	// name is immutable after creation.
	UpdateAllocation(ctx context.Context, id string, amount decimal.Decimal) (*domain.BudgetCategorySummary, error)

	DeleteCategory(ctx context.Context, id string) error
}

// GoalStore talks to the finance server's goal endpoints.
type GoalStore interface {
	ListGoals(ctx context.Context, user string) ([]domain.Goal, error)
	CreateGoal(ctx context.Context, user string, req domain.GoalRequest) (*domain.Goal, error)
	UpdateGoal(ctx context.Context, id string, req domain.GoalRequest) (*domain.Goal, error)
	DeleteGoal(ctx context.Context, id string) error

	// Allocate moves funds from the available balance to a goal. The
	// server performs the race-safe bounds check; client-side prechecks
	// are advisory only.
	Allocate(ctx context.Context, user string, req domain.AllocationRequest) (*domain.Goal, error)
}

// BalanceFetcher retrieves the user's income/expense balance summary.
type BalanceFetcher interface {
	GetBalance(ctx context.Context, user string) (*domain.BalanceSummary, error)
}

// ReminderStore talks to the finance server's persisted reminders.
// Synthetic reminders (budget alerts, schedule projections) never reach
// these methods.
type ReminderStore interface {
	ListReminders(ctx context.Context, user string) ([]domain.Reminder, error)
	CompleteReminder(ctx context.Context, id string) error
	DeleteReminder(ctx context.Context, id string) error
}

// ScheduleFetcher retrieves active recurring schedules for a user.
type ScheduleFetcher interface {
	ListActiveSchedules(ctx context.Context, user string) ([]domain.Schedule, error)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
