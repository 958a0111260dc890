// Package domain defines the core business entities for the FinMate BFA.
// These models are independent of the upstream finance server and represent
// the canonical data structures used throughout the aggregation layer.
package domain

import (
	"strings"
	"time"

	"github.com/azkafin/finmate-bfa-go/internal/types"
	"github.com/shopspring/decimal"
)

// ============================================================
// Budgets
// ============================================================

// BudgetCategorySummary is the per-category allocation/spend summary for
// one viewed month, as reported by the finance server. Spent may exceed
// Allocated: over-budget is a valid, displayed state.
type BudgetCategorySummary struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Allocated      decimal.Decimal `json:"allocated"`
	Spent          decimal.Decimal `json:"spent"`
	Source         string          `json:"source"` // always "budget"
	DurationMonths int             `json:"duration_months,omitempty"`
	StartMonth     *types.Month    `json:"start_month,omitempty"`
}

// UsagePercent returns spent/allocated as a percentage. Categories with
// zero allocation report 0, never NaN or Inf.
func (b BudgetCategorySummary) UsagePercent() float64 {
	if !b.Allocated.IsPositive() {
		return 0
	}
	pct, _ := b.Spent.Div(b.Allocated).Mul(decimal.NewFromInt(100)).Float64()
	return pct
}

// Remaining returns allocated minus spent. Negative when over budget.
func (b BudgetCategorySummary) Remaining() decimal.Decimal {
	return b.Allocated.Sub(b.Spent)
}

// BudgetOverview is the derived aggregate over all categories of a month.
type BudgetOverview struct {
	Month          types.Month             `json:"month"`
	Categories     []BudgetCategorySummary `json:"categories"`
	TotalAllocated decimal.Decimal         `json:"total_allocated"`
	TotalSpent     decimal.Decimal         `json:"total_spent"`
	UsagePercent   float64                 `json:"usage_percent"`
	Level          Level                   `json:"level"`
}

// CreateCategoryRequest is the payload for creating a budget category.
type CreateCategoryRequest struct {
	CategoryRef    string          `json:"category_ref"`
	Allocated      decimal.Decimal `json:"allocated"`
	DurationMonths int             `json:"duration_months,omitempty"`
	StartMonth     *types.Month    `json:"start_month,omitempty"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
}

// ============================================================
// Goals
// ============================================================

// Goal is a savings goal tracked by the finance server.
type Goal struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	TargetAmount  decimal.Decimal `json:"target_amount"`
	CurrentAmount decimal.Decimal `json:"current_amount"`
	Deadline      time.Time       `json:"deadline"`
	Category      string          `json:"category"`
}

// ProgressPercent returns current/target as a percentage, clamped to
// [0,100] for display. Target is always > 1 for a valid goal.
func (g Goal) ProgressPercent() float64 {
	if !g.TargetAmount.IsPositive() {
		return 0
	}
	pct, _ := g.CurrentAmount.Div(g.TargetAmount).Mul(decimal.NewFromInt(100)).Float64()
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// RemainingAmount returns how much is still missing to reach the target.
func (g Goal) RemainingAmount() decimal.Decimal {
	r := g.TargetAmount.Sub(g.CurrentAmount)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// GoalRequest is the payload for creating or updating a goal.
type GoalRequest struct {
	Name         string          `json:"name"`
	TargetAmount decimal.Decimal `json:"target_amount"`
	Deadline     time.Time       `json:"deadline"`
	Category     string          `json:"category"`
}

// AllocationRequest moves funds from the available balance to a goal.
type AllocationRequest struct {
	GoalID         string          `json:"goal_id"`
	Amount         decimal.Decimal `json:"amount"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
}

// BalanceSummary is the user's income/expense totals as reported by the
// finance server. Available is clamped to zero client-side; it is never
// treated as authoritative after a mutation.
type BalanceSummary struct {
	TotalIncome   decimal.Decimal `json:"total_income"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	Available     decimal.Decimal `json:"available"`
}

// ============================================================
// Schedules
// ============================================================

// Schedule is a recurring payment/income schedule owned by the finance
// server; the BFA only reads it to synthesize reminders.
type Schedule struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Type      string          `json:"type"` // expense | income
	Amount    decimal.Decimal `json:"amount"`
	NextRunAt time.Time       `json:"next_run_at"`
	Active    bool            `json:"active"`
}

// ============================================================
// Reminders
// ============================================================

// Reminder type discriminators.
const (
	ReminderTypeBudget   = "budget"
	ReminderTypeGoal     = "goal"
	ReminderTypeZakat    = "zakat"
	ReminderTypeSchedule = "schedule"
)

// Reminder statuses. Overdue is derived at read time (pending AND the
// date has passed), never stored.
const (
	ReminderStatusPending   = "pending"
	ReminderStatusCompleted = "completed"
	ReminderStatusOverdue   = "overdue"
	ReminderStatusInfo      = "info"
	ReminderStatusInactive  = "inactive"
)

// Reminder is the unified notification entity produced by merging
// persisted reminders, recurring schedules and computed budget alerts.
// It is never persisted in this shape; id prefixes ("budget_",
// "schedule_") disambiguate provenance for dismiss/complete routing.
type Reminder struct {
	ID          string           `json:"id"`
	Type        string           `json:"type"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Date        time.Time        `json:"date"`
	Status      string           `json:"status"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	AlertTier   AlertTier        `json:"alert_tier,omitempty"`
}

// Synthetic reports whether the reminder was derived from schedules or
// budget alerts rather than persisted by the finance server. Dismissing
// or completing a synthetic reminder is a purely local operation.
func (r Reminder) Synthetic() bool {
	return SyntheticReminderID(r.ID)
}

// SyntheticReminderID reports whether a reminder id belongs to a
// synthesized item (budget alert or schedule projection).
func SyntheticReminderID(id string) bool {
	return strings.HasPrefix(id, "budget_") || strings.HasPrefix(id, "schedule_")
}

// Feed sort orders.
const (
	SortByDate     = "date"
	SortByStatus   = "status"
	SortByCategory = "category"
)

// FeedQuery selects and orders the unified reminder feed.
type FeedQuery struct {
	Tab    string // all | budget | goal | zakat | schedule
	SortBy string // date | status | category
}

// ============================================================
// Preferences
// ============================================================

// NotificationPreferences gates which reminder types are fetched and
// displayed. Stored per user in the local state store.
type NotificationPreferences struct {
	Budget   bool `json:"budget"`
	Goal     bool `json:"goal"`
	Zakat    bool `json:"zakat"`
	Schedule bool `json:"schedule"`
}

// DefaultPreferences enables every reminder type.
func DefaultPreferences() NotificationPreferences {
	return NotificationPreferences{Budget: true, Goal: true, Zakat: true, Schedule: true}
}

// Enabled reports whether the given reminder type is switched on.
func (p NotificationPreferences) Enabled(reminderType string) bool {
	switch reminderType {
	case ReminderTypeBudget:
		return p.Budget
	case ReminderTypeGoal:
		return p.Goal
	case ReminderTypeZakat:
		return p.Zakat
	case ReminderTypeSchedule:
		return p.Schedule
	}
	return false
}
