package service

import (
	"github.com/azkafin/finmate-bfa-go/internal/domain"
	"github.com/azkafin/finmate-bfa-go/internal/infra/bus"
	"github.com/azkafin/finmate-bfa-go/internal/infra/localstate"
	"github.com/azkafin/finmate-bfa-go/internal/infra/observability"

	"go.uber.org/zap"
)

// GamificationService maintains the per-user XP/level/badge profile in
// the local state store. Awards are side effects of the other services'
// operations; nothing here touches the finance server.
type GamificationService struct {
	state   *localstate.Store
	events  *bus.Bus
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewGamificationService creates the gamification layer.
func NewGamificationService(state *localstate.Store, events *bus.Bus, metrics *observability.Metrics, logger *zap.Logger) *GamificationService {
	return &GamificationService{state: state, events: events, metrics: metrics, logger: logger}
}

// Profile returns the user's current gamification profile.
func (s *GamificationService) Profile(user string) domain.GamificationProfile {
	return s.state.Profile(user)
}

// RecordGoalCreated awards the first-goal badge on the user's first
// goal. Creation itself grants no XP.
func (s *GamificationService) RecordGoalCreated(user string) {
	s.award(user, 0, domain.BadgeFirstGoal)
}

// RecordGoalCompleted awards completion XP and the finisher badge.
func (s *GamificationService) RecordGoalCompleted(user string) {
	s.award(user, domain.XPGoalCompleted, domain.BadgeGoalFinisher)
}

// RecordAllocation awards a small amount of XP for moving money toward
// a goal.
func (s *GamificationService) RecordAllocation(user string) {
	s.award(user, domain.XPGoalAllocation, "")
}

// RecordReminderCompleted awards XP for settling a reminder.
func (s *GamificationService) RecordReminderCompleted(user string) {
	s.award(user, domain.XPReminderCompleted, "")
}

// RecordUnderBudgetMonth awards XP and the budget-keeper badge when a
// month closes with every category within its allocation.
func (s *GamificationService) RecordUnderBudgetMonth(user string) {
	s.award(user, domain.XPUnderBudgetMonth, domain.BadgeBudgetKeeper)
}

// RecordZakatPaid awards the zakat badge.
func (s *GamificationService) RecordZakatPaid(user string) {
	s.award(user, 0, domain.BadgeZakatPaid)
}

// award applies an XP delta and optional badge, re-derives the level
// and publishes the change when anything moved.
func (s *GamificationService) award(user string, xp int, badge string) {
	profile := s.state.Profile(user)

	changed := false
	if xp > 0 {
		profile.XP += xp
		changed = true
	}
	if badge != "" && !profile.HasBadge(badge) {
		profile.Badges = append(profile.Badges, badge)
		changed = true
	}
	if !changed {
		return
	}

	newLevel := domain.ProfileLevelForXP(profile.XP)
	leveledUp := newLevel > profile.Level
	profile.Level = newLevel

	s.state.SaveProfile(user, profile)

	if leveledUp {
		s.logger.Info("profile level up",
			zap.String("user", user),
			zap.Int("level", profile.Level),
			zap.Int("xp", profile.XP),
		)
	}

	s.events.Publish(bus.Event{
		Topic:   bus.TopicProfileChanged,
		User:    user,
		Payload: profile,
	})
	s.metrics.IncrEventPublished(string(bus.TopicProfileChanged))
}
