package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/azkafin/finmate-bfa-go/internal/domain"
	"github.com/azkafin/finmate-bfa-go/internal/infra/bus"
	"github.com/azkafin/finmate-bfa-go/internal/infra/localstate"
	"github.com/azkafin/finmate-bfa-go/internal/infra/observability"
	"github.com/azkafin/finmate-bfa-go/internal/port"
	"github.com/azkafin/finmate-bfa-go/internal/types"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var reminderTracer = otel.Tracer("service/reminders")

// ReminderService merges persisted reminders, recurring schedules and
// computed budget alerts into one unified feed, overlaid with the
// locally tracked dismissed/completed sets.
type ReminderService struct {
	reminders    port.ReminderStore
	schedules    port.ScheduleFetcher
	budgets      port.BudgetStore
	state        *localstate.Store
	gamification *GamificationService
	events       *bus.Bus
	metrics      *observability.Metrics
	logger       *zap.Logger
	now          func() time.Time
}

// NewReminderService creates the reminder aggregator.
func NewReminderService(reminders port.ReminderStore, schedules port.ScheduleFetcher, budgets port.BudgetStore, state *localstate.Store, gamification *GamificationService, events *bus.Bus, metrics *observability.Metrics, logger *zap.Logger) *ReminderService {
	return &ReminderService{
		reminders:    reminders,
		schedules:    schedules,
		budgets:      budgets,
		state:        state,
		gamification: gamification,
		events:       events,
		metrics:      metrics,
		logger:       logger,
		now:          time.Now,
	}
}

// Feed builds the unified reminder feed for a user. The three sources
// are fetched concurrently; a source gated off by the user's
// notification preferences is skipped entirely, not fetched and hidden.
func (s *ReminderService) Feed(ctx context.Context, user string, query domain.FeedQuery) ([]domain.Reminder, error) {
	ctx, span := reminderTracer.Start(ctx, "ReminderService.Feed")
	defer span.End()

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("reminder_feed", time.Since(start))
	}()

	prefs := s.state.Preferences(user)

	var (
		persisted []domain.Reminder
		schedules []domain.Schedule
		budgets   []domain.BudgetCategorySummary
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		items, err := s.reminders.ListReminders(gCtx, user)
		if err != nil {
			return fmt.Errorf("reminders fetch: %w", err)
		}
		persisted = items
		return nil
	})

	if prefs.Schedule {
		g.Go(func() error {
			items, err := s.schedules.ListActiveSchedules(gCtx, user)
			if err != nil {
				return fmt.Errorf("schedules fetch: %w", err)
			}
			schedules = items
			return nil
		})
	}

	if prefs.Budget {
		g.Go(func() error {
			items, err := s.budgets.GetMonthSummary(gCtx, user, types.MonthOf(s.now()))
			if err != nil {
				return fmt.Errorf("budget summary fetch: %w", err)
			}
			budgets = items
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.logger.Warn("reminder feed degraded", zap.String("user", user), zap.Error(err))
		return nil, err
	}

	s.metrics.ObserveFeedSize("persisted", len(persisted))
	s.metrics.ObserveFeedSize("schedules", len(schedules))
	s.metrics.ObserveFeedSize("budgets", len(budgets))

	merged := persisted
	for _, sched := range schedules {
		merged = append(merged, scheduleReminder(sched))
	}
	for _, cat := range budgets {
		if r, ok := budgetReminder(cat, s.now()); ok {
			merged = append(merged, r)
		}
	}

	merged = s.overlay(user, merged)
	merged = filterFeed(merged, prefs, query.Tab)
	sortFeed(merged, query.SortBy)

	return merged, nil
}

// scheduleReminder maps an active schedule to a synthetic reminder with
// a stable schedule_-prefixed id.
func scheduleReminder(sched domain.Schedule) domain.Reminder {
	amount := sched.Amount
	return domain.Reminder{
		ID:          "schedule_" + sched.ID,
		Type:        domain.ReminderTypeSchedule,
		Title:       sched.Title,
		Description: fmt.Sprintf("Recurring %s of %s", sched.Type, sched.Amount),
		Date:        sched.NextRunAt,
		Status:      domain.ReminderStatusPending,
		Amount:      &amount,
	}
}

// budgetReminder maps a budget category to its alert-tier reminder.
// Categories without a positive allocation produce nothing. The id is
// stable per (tier, category) so a re-fetch reproduces it and the
// dismissed overlay keeps holding.
func budgetReminder(cat domain.BudgetCategorySummary, now time.Time) (domain.Reminder, bool) {
	tier, ok := domain.ClassifyAlertTier(cat.Spent, cat.Allocated)
	if !ok {
		return domain.Reminder{}, false
	}

	title, body, status := tier.CopyFor()
	spent := cat.Spent

	return domain.Reminder{
		ID:          fmt.Sprintf("budget_%s_%s", tier, cat.ID),
		Type:        domain.ReminderTypeBudget,
		Title:       title,
		Description: fmt.Sprintf(body, cat.Name),
		Date:        now,
		Status:      status,
		Amount:      &spent,
		AlertTier:   tier,
	}, true
}

// overlay drops dismissed items, applies the locally-completed set and
// derives the overdue display status.
func (s *ReminderService) overlay(user string, items []domain.Reminder) []domain.Reminder {
	dismissed := s.state.DismissedSet(user)
	completed := s.state.CompletedSet(user)
	now := s.now()

	out := items[:0]
	for _, r := range items {
		if _, gone := dismissed[r.ID]; gone {
			continue
		}
		if _, done := completed[r.ID]; done {
			r.Status = domain.ReminderStatusCompleted
		}
		if r.Status == domain.ReminderStatusPending && !r.Date.After(now) {
			r.Status = domain.ReminderStatusOverdue
		}
		out = append(out, r)
	}
	return out
}

// filterFeed keeps items whose type is enabled, then applies the tab.
func filterFeed(items []domain.Reminder, prefs domain.NotificationPreferences, tab string) []domain.Reminder {
	out := items[:0]
	for _, r := range items {
		if !prefs.Enabled(r.Type) {
			continue
		}
		if tab != "" && tab != "all" && r.Type != tab {
			continue
		}
		out = append(out, r)
	}
	return out
}

// sortFeed orders the feed. Date ascending is the default; status and
// category (type) sort lexicographically with date as tie-breaker.
func sortFeed(items []domain.Reminder, sortBy string) {
	switch sortBy {
	case domain.SortByStatus:
		sort.SliceStable(items, func(i, j int) bool {
			if items[i].Status != items[j].Status {
				return items[i].Status < items[j].Status
			}
			return items[i].Date.Before(items[j].Date)
		})
	case domain.SortByCategory:
		sort.SliceStable(items, func(i, j int) bool {
			if items[i].Type != items[j].Type {
				return items[i].Type < items[j].Type
			}
			return items[i].Date.Before(items[j].Date)
		})
	default:
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].Date.Before(items[j].Date)
		})
	}
}

// Dismiss removes a reminder from the user's view. Synthetic ids
// (budget_/schedule_ prefixes) are dismissed locally only: they have no
// server row, and a reload would lawfully rebuild them. True reminder
// ids are deleted on the finance server as well.
func (s *ReminderService) Dismiss(ctx context.Context, user, id string) error {
	ctx, span := reminderTracer.Start(ctx, "ReminderService.Dismiss")
	defer span.End()

	s.state.DismissReminder(user, id)

	if !domain.SyntheticReminderID(id) {
		if err := s.reminders.DeleteReminder(ctx, id); err != nil {
			// Fire-and-forget contract: the local dismissal stands, the
			// failure is surfaced once and never retried.
			s.logger.Warn("reminder server delete failed",
				zap.String("user", user),
				zap.String("reminder_id", id),
				zap.Error(err),
			)
			return err
		}
	}

	s.publish(user, id)
	return nil
}

// Complete marks a reminder done. Synthetic ids get a local overlay;
// true reminder ids are patched on the finance server.
func (s *ReminderService) Complete(ctx context.Context, user, id string) error {
	ctx, span := reminderTracer.Start(ctx, "ReminderService.Complete")
	defer span.End()

	if domain.SyntheticReminderID(id) {
		s.state.CompleteReminderLocal(user, id)
	} else if err := s.reminders.CompleteReminder(ctx, id); err != nil {
		s.logger.Warn("reminder server complete failed",
			zap.String("user", user),
			zap.String("reminder_id", id),
			zap.Error(err),
		)
		return err
	}

	s.gamification.RecordReminderCompleted(user)
	s.publish(user, id)
	return nil
}

// Preferences returns the user's notification preferences.
func (s *ReminderService) Preferences(user string) domain.NotificationPreferences {
	return s.state.Preferences(user)
}

// SetPreferences stores the preferences and signals the change so open
// views drop reminder types that were just switched off.
func (s *ReminderService) SetPreferences(user string, prefs domain.NotificationPreferences) {
	s.state.SetPreferences(user, prefs)

	s.events.Publish(bus.Event{
		Topic:   bus.TopicPreferencesChanged,
		User:    user,
		Payload: prefs,
	})
	s.metrics.IncrEventPublished(string(bus.TopicPreferencesChanged))
}

func (s *ReminderService) publish(user, id string) {
	s.events.Publish(bus.Event{
		Topic:   bus.TopicRemindersUpdated,
		User:    user,
		Payload: map[string]string{"reminder_id": id},
	})
	s.metrics.IncrEventPublished(string(bus.TopicRemindersUpdated))
}
