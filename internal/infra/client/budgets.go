package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/azkafin/finmate-bfa-go/internal/domain"
	"github.com/azkafin/finmate-bfa-go/internal/types"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// GetMonthSummary fetches the per-category allocation/spend summary for
// one month.
func (c *FinanceClient) GetMonthSummary(ctx context.Context, user string, month types.Month) ([]domain.BudgetCategorySummary, error) {
	ctx, span := tracer.Start(ctx, "FinanceClient.GetMonthSummary")
	defer span.End()
	span.SetAttributes(attribute.String("budget.month", month.String()))

	path := fmt.Sprintf("/api/budgets/summary?userEmail=%s&year=%d&month=%d",
		url.QueryEscape(user), month.Year(), int(month.Month()))

	var summaries []domain.BudgetCategorySummary
	if err := c.get(ctx, "budgets", path, &summaries); err != nil {
		return nil, err
	}
	return summaries, nil
}

// CreateCategory creates a budget category. The primary endpoint is
// tried first; on any failure the legacy-shaped endpoint is attempted
// before surfacing an error. This dual-endpoint chain tolerates the
// finance server's in-progress contract migration; it is not a
// transient-failure retry.
func (c *FinanceClient) CreateCategory(ctx context.Context, user string, req domain.CreateCategoryRequest) (*domain.BudgetCategorySummary, error) {
	ctx, span := tracer.Start(ctx, "FinanceClient.CreateCategory")
	defer span.End()

	payload := createCategoryPayload{
		UserEmail:      user,
		Category:       req.CategoryRef,
		Allocated:      req.Allocated,
		DurationMonths: req.DurationMonths,
		StartMonth:     req.StartMonth,
		IdempotencyKey: req.IdempotencyKey,
	}

	var created domain.BudgetCategorySummary
	primaryErr := c.mutate(ctx, "budgets", http.MethodPost, "/api/budgets/category", payload, &created)
	if primaryErr == nil {
		return &created, nil
	}

	c.logger.Warn("budget create: primary endpoint failed, trying legacy",
		zap.String("category", req.CategoryRef),
		zap.Error(primaryErr),
	)
	span.SetAttributes(attribute.Bool("budget.create_fallback", true))

	if err := c.mutate(ctx, "budgets", http.MethodPost, "/api/budgets/categories", payload, &created); err != nil {
		// Surface the primary error; the legacy path is best-effort.
		return nil, primaryErr
	}
	c.metrics.IncrFallbackCreate()
	return &created, nil
}

// UpdateAllocation changes a category's allocated amount. The name is
// immutable after creation, so the payload carries the amount only.
func (c *FinanceClient) UpdateAllocation(ctx context.Context, id string, amount decimal.Decimal) (*domain.BudgetCategorySummary, error) {
	ctx, span := tracer.Start(ctx, "FinanceClient.UpdateAllocation")
	defer span.End()

	payload := map[string]decimal.Decimal{"allocated": amount}

	var updated domain.BudgetCategorySummary
	if err := c.mutate(ctx, "budgets", http.MethodPatch, "/api/budgets/categories/"+url.PathEscape(id), payload, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteCategory removes a budget category.
func (c *FinanceClient) DeleteCategory(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "FinanceClient.DeleteCategory")
	defer span.End()

	return c.mutate(ctx, "budgets", http.MethodDelete, "/api/budgets/categories/"+url.PathEscape(id), nil, nil)
}

// createCategoryPayload matches both create endpoint shapes; the legacy
// endpoint ignores the fields it does not know.
type createCategoryPayload struct {
	UserEmail      string          `json:"userEmail"`
	Category       string          `json:"category"`
	Allocated      decimal.Decimal `json:"allocated"`
	DurationMonths int             `json:"durationMonths,omitempty"`
	StartMonth     *types.Month    `json:"startMonth,omitempty"`
	IdempotencyKey string          `json:"idempotencyKey,omitempty"`
}
