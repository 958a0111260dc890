package domain

import "math"

// Level is the six-tier gamified classification of budget usage.
// It is derived from the raw usage percentage and never stored.
type Level struct {
	Level      int    `json:"level"`
	Name       string `json:"name"`
	BarColor   string `json:"bar_color"`
	TrackColor string `json:"track_color"`
	Hint       string `json:"hint"`
	Note       string `json:"note"`
}

var levels = [6]Level{
	{1, "Warm-Up", "#4ade80", "#dcfce7", "Plenty of room left", "You've barely touched this budget."},
	{2, "Saver", "#22c55e", "#dcfce7", "Comfortably on track", "Solid pace, keep it steady."},
	{3, "Strategist", "#facc15", "#fef9c3", "Past the halfway mark", "Time to plan the rest of the month."},
	{4, "Pro Planner", "#fb923c", "#ffedd5", "Approaching the limit", "Larger purchases deserve a second look."},
	{5, "Edge Walker", "#f87171", "#fee2e2", "Right at the edge", "One more expense could tip this over."},
	{6, "Overrun", "#dc2626", "#fee2e2", "Over budget", "Spending has exceeded the allocation."},
}

// LevelForPercent classifies a raw usage percentage into one of the six
// levels. The input is the unclamped spent/allocated ratio in percent;
// callers clamp separately for display. Total over all reals: non-finite
// or negative input is treated as 0.
func LevelForPercent(pct float64) Level {
	if math.IsNaN(pct) || math.IsInf(pct, 0) || pct < 0 {
		pct = 0
	}

	switch {
	case pct < 25:
		return levels[0]
	case pct < 50:
		return levels[1]
	case pct < 75:
		return levels[2]
	case pct < 90:
		return levels[3]
	case pct <= 100:
		return levels[4]
	default:
		return levels[5]
	}
}

// ClampPercent bounds a usage percentage to [0,100] for display. The
// classification above always receives the raw value instead.
func ClampPercent(pct float64) float64 {
	if math.IsNaN(pct) || pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
