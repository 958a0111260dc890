package domain

import "time"

// XP awards for budget-discipline events.
const (
	XPGoalCompleted     = 100
	XPUnderBudgetMonth  = 50
	XPReminderCompleted = 10
	XPGoalAllocation    = 5
)

// Badge identifiers.
const (
	BadgeFirstGoal     = "first_goal"
	BadgeGoalFinisher  = "goal_finisher"
	BadgeZakatPaid     = "zakat_paid"
	BadgeBudgetKeeper  = "budget_keeper"
	BadgeStreakFighter = "streak_fighter"
)

// GamificationProfile is the per-user XP/level/badge record kept in the
// local state store, not on the finance server.
type GamificationProfile struct {
	XP          int       `json:"xp"`
	Level       int       `json:"level"`
	Badges      []string  `json:"badges"`
	Streak      int       `json:"streak"`
	LastEventAt time.Time `json:"last_event_at"`
}

// profileLevelThresholds holds the cumulative XP needed to reach each
// profile level, starting at level 2.
var profileLevelThresholds = []int{100, 300, 700, 1500, 3000}

// ProfileLevelForXP derives the profile level from cumulative XP.
// Level 1 is the floor; thresholds are inclusive.
func ProfileLevelForXP(xp int) int {
	level := 1
	for _, threshold := range profileLevelThresholds {
		if xp < threshold {
			break
		}
		level++
	}
	return level
}

// HasBadge reports whether the profile already holds a badge.
func (p GamificationProfile) HasBadge(badge string) bool {
	for _, b := range p.Badges {
		if b == badge {
			return true
		}
	}
	return false
}
