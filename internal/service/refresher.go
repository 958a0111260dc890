package service

import (
	"context"
	"sync"
	"time"

	"github.com/azkafin/finmate-bfa-go/internal/domain"
	"github.com/azkafin/finmate-bfa-go/internal/infra/observability"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Refresher periodically re-loads the budget overview and reminder
// feed for every tracked user so clients see fresh data without
// manual reloads. A tick that fires while the previous refresh for
// the same user is still in flight coalesces into it instead of
// stacking a second upstream fetch.
type Refresher struct {
	budgets   *BudgetService
	reminders *ReminderService
	interval  time.Duration
	metrics   *observability.Metrics
	logger    *zap.Logger

	group singleflight.Group

	mu      sync.Mutex
	tracked map[string]struct{}

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewRefresher creates the background refresher. It does not start
// polling until Run is called.
func NewRefresher(budgets *BudgetService, reminders *ReminderService, interval time.Duration, metrics *observability.Metrics, logger *zap.Logger) *Refresher {
	return &Refresher{
		budgets:   budgets,
		reminders: reminders,
		interval:  interval,
		metrics:   metrics,
		logger:    logger,
		tracked:   make(map[string]struct{}),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Track registers a user for periodic refresh. Tracking is idempotent.
func (r *Refresher) Track(user string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tracked[user] = struct{}{}
}

// Untrack stops refreshing a user.
func (r *Refresher) Untrack(user string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tracked, user)
}

// Run polls until the context is cancelled or Stop is called. It is
// meant to be started once, as a goroutine, from main.
func (r *Refresher) Run(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stop:
			return
		case <-ticker.C:
			r.refreshAll(ctx)
		}
	}
}

// Stop terminates the poll loop and waits for the current pass to end.
func (r *Refresher) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
	<-r.done
}

func (r *Refresher) refreshAll(ctx context.Context) {
	r.mu.Lock()
	users := make([]string, 0, len(r.tracked))
	for u := range r.tracked {
		users = append(users, u)
	}
	r.mu.Unlock()

	for _, user := range users {
		r.refreshUser(ctx, user)
	}
}

// refreshUser runs one refresh pass for a user. Concurrent calls for
// the same user share a single execution via singleflight; the extra
// callers are counted as coalesced and return without fetching.
func (r *Refresher) refreshUser(ctx context.Context, user string) {
	_, err, shared := r.group.Do(user, func() (interface{}, error) {
		month := r.budgets.ViewedMonth(user)
		if _, err := r.budgets.Overview(ctx, user, month); err != nil {
			return nil, err
		}
		if _, err := r.reminders.Feed(ctx, user, domain.FeedQuery{}); err != nil {
			return nil, err
		}
		return nil, nil
	})

	switch {
	case shared:
		r.metrics.IncrRefresh("coalesced")
	case err != nil:
		r.metrics.IncrRefresh("error")
		r.logger.Warn("background refresh failed",
			zap.String("user", user),
			zap.Error(err),
		)
	default:
		r.metrics.IncrRefresh("ok")
	}
}
