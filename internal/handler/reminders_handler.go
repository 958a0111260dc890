package handler

import (
	"encoding/json"
	"net/http"

	"github.com/azkafin/finmate-bfa-go/internal/domain"
	"github.com/azkafin/finmate-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Reminders — /v1/users/{user}/reminders
// ============================================================

func reminderFeedHandler(svc *service.ReminderService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/users/{user}/reminders")
		defer span.End()

		user := chi.URLParam(r, "user")
		query := domain.FeedQuery{
			Tab:    r.URL.Query().Get("tab"),
			SortBy: r.URL.Query().Get("sort"),
		}
		span.SetAttributes(attribute.String("feed.tab", query.Tab))

		feed, err := svc.Feed(ctx, user, query)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"reminders": feed,
			"count":     len(feed),
		})
	}
}

func dismissReminderHandler(svc *service.ReminderService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/users/{user}/reminders/{reminderId}/dismiss")
		defer span.End()

		user := chi.URLParam(r, "user")
		reminderID := chi.URLParam(r, "reminderId")

		if err := svc.Dismiss(ctx, user, reminderID); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func completeReminderHandler(svc *service.ReminderService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/users/{user}/reminders/{reminderId}/complete")
		defer span.End()

		user := chi.URLParam(r, "user")
		reminderID := chi.URLParam(r, "reminderId")

		if err := svc.Complete(ctx, user, reminderID); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// ============================================================
// Notification preferences — /v1/users/{user}/preferences
// ============================================================

func getPreferencesHandler(svc *service.ReminderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := chi.URLParam(r, "user")
		writeJSON(w, http.StatusOK, svc.Preferences(user))
	}
}

func putPreferencesHandler(svc *service.ReminderService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "PUT /v1/users/{user}/preferences")
		defer span.End()

		user := chi.URLParam(r, "user")

		var prefs domain.NotificationPreferences
		if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		svc.SetPreferences(user, prefs)
		logger.Info("preferences updated", zap.String("user", user))
		writeJSON(w, http.StatusOK, prefs)
	}
}
