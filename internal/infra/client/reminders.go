package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/azkafin/finmate-bfa-go/internal/domain"
)

// ListReminders fetches the persisted reminders for a user. Synthetic
// reminders (budget alerts, schedule projections) are built by the
// reminder service, never fetched.
func (c *FinanceClient) ListReminders(ctx context.Context, user string) ([]domain.Reminder, error) {
	ctx, span := tracer.Start(ctx, "FinanceClient.ListReminders")
	defer span.End()

	var reminders []domain.Reminder
	if err := c.get(ctx, "reminders", "/reminders/"+url.PathEscape(user), &reminders); err != nil {
		return nil, err
	}
	return reminders, nil
}

// CompleteReminder patches a persisted reminder's status to completed.
func (c *FinanceClient) CompleteReminder(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "FinanceClient.CompleteReminder")
	defer span.End()

	payload := map[string]string{"status": domain.ReminderStatusCompleted}
	return c.mutate(ctx, "reminders", http.MethodPatch, "/reminders/"+url.PathEscape(id), payload, nil)
}

// DeleteReminder removes a persisted reminder.
func (c *FinanceClient) DeleteReminder(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "FinanceClient.DeleteReminder")
	defer span.End()

	return c.mutate(ctx, "reminders", http.MethodDelete, "/reminders/"+url.PathEscape(id), nil, nil)
}
