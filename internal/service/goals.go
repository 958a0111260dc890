package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/azkafin/finmate-bfa-go/internal/domain"
	"github.com/azkafin/finmate-bfa-go/internal/infra/bus"
	"github.com/azkafin/finmate-bfa-go/internal/infra/observability"
	"github.com/azkafin/finmate-bfa-go/internal/port"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var goalTracer = otel.Tracer("service/goals")

// minTarget is the exclusive lower bound for goal targets.
var minTarget = decimal.NewFromInt(1)

// GoalService manages savings goals and balance allocations. All
// persisted state lives on the finance server; the prechecks here are
// advisory UX guards, the server's own check is the race-safe arbiter.
type GoalService struct {
	store        port.GoalStore
	balance      port.BalanceFetcher
	balanceCache port.Cache[*domain.BalanceSummary]
	gamification *GamificationService
	events       *bus.Bus
	metrics      *observability.Metrics
	logger       *zap.Logger
}

// NewGoalService creates the goal tracker.
func NewGoalService(store port.GoalStore, balance port.BalanceFetcher, balanceCache port.Cache[*domain.BalanceSummary], gamification *GamificationService, events *bus.Bus, metrics *observability.Metrics, logger *zap.Logger) *GoalService {
	return &GoalService{
		store:        store,
		balance:      balance,
		balanceCache: balanceCache,
		gamification: gamification,
		events:       events,
		metrics:      metrics,
		logger:       logger,
	}
}

// ListGoals fetches all goals for a user.
func (s *GoalService) ListGoals(ctx context.Context, user string) ([]domain.Goal, error) {
	ctx, span := goalTracer.Start(ctx, "GoalService.ListGoals")
	defer span.End()

	return s.store.ListGoals(ctx, user)
}

// AvailableBalance returns the user's available balance, cached between
// mutations. Never negative.
func (s *GoalService) AvailableBalance(ctx context.Context, user string) (*domain.BalanceSummary, error) {
	ctx, span := goalTracer.Start(ctx, "GoalService.AvailableBalance")
	defer span.End()

	key := "balance:" + user
	if cached, ok := s.balanceCache.Get(key); ok {
		s.metrics.IncrCacheHit("balance")
		return cached, nil
	}
	s.metrics.IncrCacheMiss("balance")

	summary, err := s.balance.GetBalance(ctx, user)
	if err != nil {
		return nil, err
	}
	s.balanceCache.Set(key, summary)
	return summary, nil
}

// validateGoalRequest applies the creation rules: a meaningful name (not
// digits only), a target above 1, a deadline not in the past
// (date-only comparison).
func validateGoalRequest(req domain.GoalRequest) error {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return &domain.ErrValidation{Field: "name", Message: "required"}
	}
	if isDigitsOnly(name) {
		return &domain.ErrValidation{Field: "name", Message: "cannot be only digits"}
	}
	if req.TargetAmount.LessThanOrEqual(minTarget) {
		return &domain.ErrValidation{Field: "target_amount", Message: "must be greater than 1"}
	}

	today := time.Now().Truncate(24 * time.Hour)
	deadline := req.Deadline.Truncate(24 * time.Hour)
	if deadline.Before(today) {
		return &domain.ErrValidation{Field: "deadline", Message: "cannot be in the past"}
	}
	return nil
}

func isDigitsOnly(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// CreateGoal validates and creates a savings goal.
func (s *GoalService) CreateGoal(ctx context.Context, user string, req domain.GoalRequest) (*domain.Goal, error) {
	ctx, span := goalTracer.Start(ctx, "GoalService.CreateGoal")
	defer span.End()

	if err := validateGoalRequest(req); err != nil {
		return nil, err
	}

	goal, err := s.store.CreateGoal(ctx, user, req)
	if err != nil {
		s.logger.Error("goal create failed", zap.String("user", user), zap.Error(err))
		return nil, err
	}

	s.logger.Info("goal created",
		zap.String("user", user),
		zap.String("goal_id", goal.ID),
		zap.String("target", goal.TargetAmount.String()),
	)
	s.gamification.RecordGoalCreated(user)
	s.publish(user, goal.ID)

	return goal, nil
}

// UpdateGoal validates and updates a goal. The new target must stay
// above 1 and must not fall below the amount already saved.
func (s *GoalService) UpdateGoal(ctx context.Context, user, id string, req domain.GoalRequest) (*domain.Goal, error) {
	ctx, span := goalTracer.Start(ctx, "GoalService.UpdateGoal")
	defer span.End()
	span.SetAttributes(attribute.String("goal.id", id))

	if req.TargetAmount.LessThanOrEqual(minTarget) {
		return nil, &domain.ErrValidation{Field: "target_amount", Message: "must be greater than 1"}
	}

	goals, err := s.store.ListGoals(ctx, user)
	if err != nil {
		return nil, err
	}
	var current *domain.Goal
	for i := range goals {
		if goals[i].ID == id {
			current = &goals[i]
			break
		}
	}
	if current == nil {
		return nil, &domain.ErrNotFound{Resource: "goal", ID: id}
	}
	if req.TargetAmount.LessThan(current.CurrentAmount) {
		return nil, &domain.ErrValidation{
			Field:   "target_amount",
			Message: fmt.Sprintf("cannot be below the %s already saved", current.CurrentAmount),
		}
	}

	updated, err := s.store.UpdateGoal(ctx, id, req)
	if err != nil {
		return nil, err
	}

	s.publish(user, id)
	return updated, nil
}

// Allocate moves funds from the available balance toward a goal. The
// prechecks reject obviously invalid amounts without a network call;
// the server re-verifies under its own lock.
func (s *GoalService) Allocate(ctx context.Context, user string, req domain.AllocationRequest) (*domain.Goal, error) {
	ctx, span := goalTracer.Start(ctx, "GoalService.Allocate")
	defer span.End()
	span.SetAttributes(attribute.String("goal.id", req.GoalID))

	if !req.Amount.IsPositive() {
		return nil, &domain.ErrValidation{Field: "amount", Message: "must be positive"}
	}

	goals, err := s.store.ListGoals(ctx, user)
	if err != nil {
		return nil, err
	}
	var goal *domain.Goal
	for i := range goals {
		if goals[i].ID == req.GoalID {
			goal = &goals[i]
			break
		}
	}
	if goal == nil {
		return nil, &domain.ErrNotFound{Resource: "goal", ID: req.GoalID}
	}

	// Target headroom first: this rejection applies even when the
	// balance would cover the amount.
	if req.Amount.GreaterThan(goal.RemainingAmount()) {
		return nil, &domain.ErrAllocationExceedsTarget{GoalID: req.GoalID}
	}

	balance, err := s.AvailableBalance(ctx, user)
	if err != nil {
		return nil, err
	}
	if req.Amount.GreaterThan(balance.Available) {
		return nil, &domain.ErrInsufficientFunds{
			Available: balance.Available.String(),
			Required:  req.Amount.String(),
		}
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.NewString()
	}

	updated, err := s.store.Allocate(ctx, user, req)
	if err != nil {
		s.logger.Error("goal allocation failed",
			zap.String("user", user),
			zap.String("goal_id", req.GoalID),
			zap.Error(err),
		)
		return nil, err
	}

	// The cached balance is no longer authoritative after any mutation.
	s.balanceCache.Delete("balance:" + user)

	s.logger.Info("goal allocation succeeded",
		zap.String("user", user),
		zap.String("goal_id", req.GoalID),
		zap.String("amount", req.Amount.String()),
	)

	s.gamification.RecordAllocation(user)
	if updated.CurrentAmount.GreaterThanOrEqual(updated.TargetAmount) {
		s.gamification.RecordGoalCompleted(user)
	}
	s.publish(user, req.GoalID)

	return updated, nil
}

// DeleteGoal removes a goal after the explicit confirmation step.
func (s *GoalService) DeleteGoal(ctx context.Context, user, id string, confirmed bool) error {
	ctx, span := goalTracer.Start(ctx, "GoalService.DeleteGoal")
	defer span.End()

	if !confirmed {
		return &domain.ErrConfirmationRequired{Action: "delete goal"}
	}

	if err := s.store.DeleteGoal(ctx, id); err != nil {
		return err
	}

	s.logger.Info("goal deleted", zap.String("user", user), zap.String("goal_id", id))
	s.publish(user, id)
	return nil
}

// publish signals a goal change. The caller's response already reflects
// the mutation; other views re-fetch when they see the event, mirroring
// how a second browser tab reacted to the goalsUpdated storage key.
func (s *GoalService) publish(user, goalID string) {
	s.events.Publish(bus.Event{
		Topic:   bus.TopicGoalsUpdated,
		User:    user,
		Payload: map[string]string{"goal_id": goalID},
	})
	s.metrics.IncrEventPublished(string(bus.TopicGoalsUpdated))
}
