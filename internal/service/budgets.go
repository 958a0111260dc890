package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/azkafin/finmate-bfa-go/internal/domain"
	"github.com/azkafin/finmate-bfa-go/internal/infra/bus"
	"github.com/azkafin/finmate-bfa-go/internal/infra/observability"
	"github.com/azkafin/finmate-bfa-go/internal/port"
	"github.com/azkafin/finmate-bfa-go/internal/types"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var budgetTracer = otel.Tracer("service/budgets")

// viewKey identifies one user's view of one month.
type viewKey struct {
	user  string
	month string
}

// BudgetService aggregates per-category budget summaries into the
// derived overview (totals, usage percentage, level) and manages the
// per-user viewed month.
type BudgetService struct {
	store   port.BudgetStore
	events  *bus.Bus
	metrics *observability.Metrics
	logger  *zap.Logger

	mu sync.Mutex
	// lastGood holds the most recent successfully fetched overview per
	// view; a failed re-fetch leaves it untouched so the view degrades
	// to the prior list instead of a partial merge.
	lastGood map[viewKey]*domain.BudgetOverview
	// viewed tracks each user's currently viewed month for ShiftMonth.
	viewed map[string]types.Month
	// generation invalidates in-flight loads that were superseded by a
	// newer one for the same view (e.g. rapid month switching).
	generation map[viewKey]uint64
}

// NewBudgetService creates the budget aggregator.
func NewBudgetService(store port.BudgetStore, events *bus.Bus, metrics *observability.Metrics, logger *zap.Logger) *BudgetService {
	return &BudgetService{
		store:      store,
		events:     events,
		metrics:    metrics,
		logger:     logger,
		lastGood:   make(map[viewKey]*domain.BudgetOverview),
		viewed:     make(map[string]types.Month),
		generation: make(map[viewKey]uint64),
	}
}

// Overview fetches the month's categories and derives the aggregate
// view. On failure the previous overview for the same view is returned
// alongside the error, so callers can render stale data with a message.
func (s *BudgetService) Overview(ctx context.Context, user string, month types.Month) (*domain.BudgetOverview, error) {
	ctx, span := budgetTracer.Start(ctx, "BudgetService.Overview")
	defer span.End()
	span.SetAttributes(attribute.String("budget.month", month.String()))

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("budget_overview", time.Since(start))
	}()

	key := viewKey{user: user, month: month.String()}

	s.mu.Lock()
	s.generation[key]++
	gen := s.generation[key]
	s.viewed[user] = month
	s.mu.Unlock()

	categories, err := s.store.GetMonthSummary(ctx, user, month)
	if err != nil {
		s.logger.Warn("budget overview fetch failed, keeping prior state",
			zap.String("user", user),
			zap.String("month", month.String()),
			zap.Error(err),
		)
		s.mu.Lock()
		prior := s.lastGood[key]
		s.mu.Unlock()
		return prior, err
	}

	overview := deriveOverview(month, categories)

	s.mu.Lock()
	// A newer load for this view started while we were in flight; its
	// result wins regardless of arrival order.
	if s.generation[key] == gen {
		s.lastGood[key] = overview
	} else {
		s.metrics.IncrRefresh("superseded")
	}
	s.mu.Unlock()

	return overview, nil
}

// deriveOverview computes totals, usage percentage and level.
func deriveOverview(month types.Month, categories []domain.BudgetCategorySummary) *domain.BudgetOverview {
	totalAllocated := decimal.Zero
	totalSpent := decimal.Zero
	for _, c := range categories {
		totalAllocated = totalAllocated.Add(c.Allocated)
		totalSpent = totalSpent.Add(c.Spent)
	}

	usage := float64(0)
	if totalAllocated.IsPositive() {
		usage, _ = totalSpent.Div(totalAllocated).Mul(decimal.NewFromInt(100)).Float64()
	}

	return &domain.BudgetOverview{
		Month:          month,
		Categories:     categories,
		TotalAllocated: totalAllocated,
		TotalSpent:     totalSpent,
		UsagePercent:   usage,
		Level:          domain.LevelForPercent(usage),
	}
}

// ShiftMonth moves the user's viewed month by delta (negative for the
// past) and re-loads the overview for the new month. Year rollover is
// handled by the Month type.
func (s *BudgetService) ShiftMonth(ctx context.Context, user string, delta int) (*domain.BudgetOverview, error) {
	ctx, span := budgetTracer.Start(ctx, "BudgetService.ShiftMonth")
	defer span.End()

	s.mu.Lock()
	current, ok := s.viewed[user]
	if !ok {
		current = types.MonthOf(time.Now())
	}
	target := current.AddMonths(delta)
	s.mu.Unlock()

	return s.Overview(ctx, user, target)
}

// ViewedMonth returns the user's currently viewed month, defaulting to
// the present one.
func (s *BudgetService) ViewedMonth(user string) types.Month {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m, ok := s.viewed[user]; ok {
		return m
	}
	return types.MonthOf(time.Now())
}

// AddCategory validates and creates a budget category. A category whose
// name maps (case-insensitively) to an existing row for the target month
// is rejected before any network call.
func (s *BudgetService) AddCategory(ctx context.Context, user string, req domain.CreateCategoryRequest) (*domain.BudgetCategorySummary, error) {
	ctx, span := budgetTracer.Start(ctx, "BudgetService.AddCategory")
	defer span.End()

	if strings.TrimSpace(req.CategoryRef) == "" {
		return nil, &domain.ErrValidation{Field: "category_ref", Message: "required"}
	}
	if req.Allocated.IsNegative() {
		return nil, &domain.ErrValidation{Field: "allocated", Message: "must not be negative"}
	}

	month := s.ViewedMonth(user)
	if req.StartMonth != nil {
		month = *req.StartMonth
	}

	existing, err := s.store.GetMonthSummary(ctx, user, month)
	if err != nil {
		return nil, err
	}
	for _, c := range existing {
		if strings.EqualFold(c.Name, req.CategoryRef) {
			return nil, &domain.ErrDuplicate{Resource: "budget category", Key: c.Name}
		}
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.NewString()
	}

	created, err := s.store.CreateCategory(ctx, user, req)
	if err != nil {
		s.logger.Error("budget category create failed",
			zap.String("user", user),
			zap.String("category", req.CategoryRef),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("budget category created",
		zap.String("user", user),
		zap.String("category_id", created.ID),
		zap.String("name", created.Name),
	)
	s.publish(user, created.ID)

	return created, nil
}

// UpdateAllocation changes a category's allocated amount. Names are
// immutable after creation, so the amount is the only editable field.
func (s *BudgetService) UpdateAllocation(ctx context.Context, user, id string, amount decimal.Decimal) (*domain.BudgetCategorySummary, error) {
	ctx, span := budgetTracer.Start(ctx, "BudgetService.UpdateAllocation")
	defer span.End()

	if amount.IsNegative() {
		return nil, &domain.ErrValidation{Field: "allocated", Message: "must not be negative"}
	}

	updated, err := s.store.UpdateAllocation(ctx, id, amount)
	if err != nil {
		return nil, err
	}

	s.publish(user, id)
	return updated, nil
}

// DeleteCategory removes a category. The handler enforces the explicit
// confirmation step before this is reached; confirmed is asserted here
// again so no internal caller can skip it.
func (s *BudgetService) DeleteCategory(ctx context.Context, user, id string, confirmed bool) error {
	ctx, span := budgetTracer.Start(ctx, "BudgetService.DeleteCategory")
	defer span.End()

	if !confirmed {
		return &domain.ErrConfirmationRequired{Action: "delete budget category"}
	}

	if err := s.store.DeleteCategory(ctx, id); err != nil {
		return err
	}

	s.logger.Info("budget category deleted", zap.String("user", user), zap.String("category_id", id))
	s.publish(user, id)
	return nil
}

// publish drops the cached views for the user and signals the change.
// The caller's own response already reflects the mutation; subscribers
// re-fetch on their own schedule.
func (s *BudgetService) publish(user, categoryID string) {
	s.mu.Lock()
	for key := range s.lastGood {
		if key.user == user {
			delete(s.lastGood, key)
		}
	}
	s.mu.Unlock()

	s.events.Publish(bus.Event{
		Topic:   bus.TopicBudgetsUpdated,
		User:    user,
		Payload: map[string]string{"category_id": categoryID},
	})
	s.metrics.IncrEventPublished(string(bus.TopicBudgetsUpdated))
}
