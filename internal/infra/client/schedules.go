package client

import (
	"context"
	"net/url"

	"github.com/azkafin/finmate-bfa-go/internal/domain"
)

// ListActiveSchedules fetches the user's recurring schedules and keeps
// only the active ones. The finance server owns schedule lifecycle; the
// BFA reads them solely to synthesize schedule reminders.
func (c *FinanceClient) ListActiveSchedules(ctx context.Context, user string) ([]domain.Schedule, error) {
	ctx, span := tracer.Start(ctx, "FinanceClient.ListActiveSchedules")
	defer span.End()

	var schedules []domain.Schedule
	if err := c.get(ctx, "schedules", "/schedules/"+url.PathEscape(user), &schedules); err != nil {
		return nil, err
	}

	active := schedules[:0]
	for _, s := range schedules {
		if s.Active {
			active = append(active, s)
		}
	}
	return active, nil
}
