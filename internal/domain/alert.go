package domain

import "github.com/shopspring/decimal"

// AlertTier is one of the seven mutually exclusive buckets a budget
// category falls into based on its spend-to-allocation ratio.
type AlertTier string

const (
	AlertTierNew      AlertTier = "new"
	AlertTierCritical AlertTier = "critical"
	AlertTierWarning  AlertTier = "warning"
	AlertTierCaution  AlertTier = "caution"
	AlertTierProgress AlertTier = "progress"
	AlertTierEarly    AlertTier = "early"
	AlertTierLow      AlertTier = "low"
)

// ClassifyAlertTier assigns exactly one tier to a (spent, allocated)
// pair. Evaluation order matters: the first matching rule wins, which is
// what makes the tiers mutually exclusive.
// Categories with a non-positive allocation produce no alert; callers
// skip them before synthesizing a reminder.
func ClassifyAlertTier(spent, allocated decimal.Decimal) (AlertTier, bool) {
	if !allocated.IsPositive() {
		return "", false
	}

	pct, _ := spent.Div(allocated).Mul(decimal.NewFromInt(100)).Float64()

	switch {
	case spent.IsZero():
		return AlertTierNew, true
	case spent.GreaterThan(allocated):
		return AlertTierCritical, true
	case pct >= 85:
		return AlertTierWarning, true
	case pct >= 75:
		return AlertTierCaution, true
	case pct >= 50:
		return AlertTierProgress, true
	case pct >= 25:
		return AlertTierEarly, true
	default:
		return AlertTierLow, true
	}
}

// alertCopy maps a tier to the title and description template used when
// synthesizing a budget reminder.
type alertCopy struct {
	Title  string
	Body   string
	Status string
}

var alertCopies = map[AlertTier]alertCopy{
	AlertTierNew:      {"New Budget Created", "No spending recorded yet for %s.", ReminderStatusInfo},
	AlertTierCritical: {"Budget Exceeded", "Spending in %s has gone over the allocation.", ReminderStatusPending},
	AlertTierWarning:  {"Budget Almost Exhausted", "%s has used 85%% or more of its allocation.", ReminderStatusPending},
	AlertTierCaution:  {"Budget Running High", "%s has used three quarters of its allocation.", ReminderStatusInfo},
	AlertTierProgress: {"Budget Halfway", "%s has passed the halfway mark.", ReminderStatusInfo},
	AlertTierEarly:    {"Budget In Use", "%s has used a quarter of its allocation.", ReminderStatusInfo},
	AlertTierLow:      {"Budget Started", "First expenses recorded for %s.", ReminderStatusInfo},
}

// CopyFor returns the reminder title, description template and status
// for a tier.
func (t AlertTier) CopyFor() (title, body, status string) {
	c, ok := alertCopies[t]
	if !ok {
		return "Budget Update", "Budget activity in %s.", ReminderStatusInfo
	}
	return c.Title, c.Body, c.Status
}
