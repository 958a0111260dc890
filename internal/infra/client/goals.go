package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/azkafin/finmate-bfa-go/internal/domain"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

// ListGoals fetches all savings goals for a user.
func (c *FinanceClient) ListGoals(ctx context.Context, user string) ([]domain.Goal, error) {
	ctx, span := tracer.Start(ctx, "FinanceClient.ListGoals")
	defer span.End()

	var goals []domain.Goal
	if err := c.get(ctx, "goals", "/goals/"+url.PathEscape(user), &goals); err != nil {
		return nil, err
	}
	return goals, nil
}

// CreateGoal creates a savings goal.
func (c *FinanceClient) CreateGoal(ctx context.Context, user string, req domain.GoalRequest) (*domain.Goal, error) {
	ctx, span := tracer.Start(ctx, "FinanceClient.CreateGoal")
	defer span.End()

	payload := goalPayload{
		UserEmail:    user,
		Name:         req.Name,
		TargetAmount: req.TargetAmount.String(),
		Deadline:     req.Deadline.Format("2006-01-02"),
		Category:     req.Category,
	}

	var goal domain.Goal
	if err := c.mutate(ctx, "goals", http.MethodPost, "/goals", payload, &goal); err != nil {
		return nil, err
	}
	return &goal, nil
}

// UpdateGoal replaces a goal's editable fields.
func (c *FinanceClient) UpdateGoal(ctx context.Context, id string, req domain.GoalRequest) (*domain.Goal, error) {
	ctx, span := tracer.Start(ctx, "FinanceClient.UpdateGoal")
	defer span.End()
	span.SetAttributes(attribute.String("goal.id", id))

	payload := goalPayload{
		Name:         req.Name,
		TargetAmount: req.TargetAmount.String(),
		Deadline:     req.Deadline.Format("2006-01-02"),
		Category:     req.Category,
	}

	var goal domain.Goal
	if err := c.mutate(ctx, "goals", http.MethodPut, "/goals/"+url.PathEscape(id), payload, &goal); err != nil {
		return nil, err
	}
	return &goal, nil
}

// DeleteGoal removes a goal.
func (c *FinanceClient) DeleteGoal(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "FinanceClient.DeleteGoal")
	defer span.End()

	return c.mutate(ctx, "goals", http.MethodDelete, "/goals/"+url.PathEscape(id), nil, nil)
}

// Allocate moves funds from the available balance to a goal. The server
// performs the authoritative, race-safe bounds check.
func (c *FinanceClient) Allocate(ctx context.Context, user string, req domain.AllocationRequest) (*domain.Goal, error) {
	ctx, span := tracer.Start(ctx, "FinanceClient.Allocate")
	defer span.End()
	span.SetAttributes(attribute.String("goal.id", req.GoalID))

	payload := map[string]string{
		"userEmail":      user,
		"goalId":         req.GoalID,
		"amount":         req.Amount.String(),
		"idempotencyKey": req.IdempotencyKey,
	}

	var goal domain.Goal
	if err := c.mutate(ctx, "goals", http.MethodPost, "/api/goals/allocate", payload, &goal); err != nil {
		return nil, err
	}
	return &goal, nil
}

// GetBalance fetches the user's income/expense totals. Available is
// clamped to zero here so a negative balance never reaches allocation
// prechecks.
func (c *FinanceClient) GetBalance(ctx context.Context, user string) (*domain.BalanceSummary, error) {
	ctx, span := tracer.Start(ctx, "FinanceClient.GetBalance")
	defer span.End()

	var balance domain.BalanceSummary
	if err := c.get(ctx, "balance", "/api/balance?userEmail="+url.QueryEscape(user), &balance); err != nil {
		return nil, err
	}

	available := balance.TotalIncome.Sub(balance.TotalExpenses)
	if available.IsNegative() {
		available = decimal.Zero
	}
	balance.Available = available
	return &balance, nil
}

// goalPayload is the wire shape shared by goal create and update.
type goalPayload struct {
	UserEmail    string `json:"userEmail,omitempty"`
	Name         string `json:"name"`
	TargetAmount string `json:"targetAmount"`
	Deadline     string `json:"deadline"`
	Category     string `json:"category"`
}
