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
// Goals — /v1/users/{user}/goals
// ============================================================

func listGoalsHandler(svc *service.GoalService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/users/{user}/goals")
		defer span.End()

		user := chi.URLParam(r, "user")
		goals, err := svc.ListGoals(ctx, user)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"goals": goals})
	}
}

func createGoalHandler(svc *service.GoalService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/users/{user}/goals")
		defer span.End()

		user := chi.URLParam(r, "user")

		var req domain.GoalRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		goal, err := svc.CreateGoal(ctx, user, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, goal)
	}
}

func updateGoalHandler(svc *service.GoalService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/users/{user}/goals/{goalId}")
		defer span.End()

		user := chi.URLParam(r, "user")
		goalID := chi.URLParam(r, "goalId")
		span.SetAttributes(attribute.String("goal.id", goalID))

		var req domain.GoalRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		goal, err := svc.UpdateGoal(ctx, user, goalID, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, goal)
	}
}

func deleteGoalHandler(svc *service.GoalService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/users/{user}/goals/{goalId}")
		defer span.End()

		user := chi.URLParam(r, "user")
		goalID := chi.URLParam(r, "goalId")

		if err := svc.DeleteGoal(ctx, user, goalID, confirmed(r)); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func allocateGoalHandler(svc *service.GoalService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/users/{user}/goals/allocate")
		defer span.End()

		user := chi.URLParam(r, "user")

		var req domain.AllocationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.GoalID == "" {
			writeError(w, http.StatusBadRequest, "goal_id is required")
			return
		}
		span.SetAttributes(attribute.String("goal.id", req.GoalID))

		goal, err := svc.Allocate(ctx, user, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, goal)
	}
}

func balanceHandler(svc *service.GoalService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/users/{user}/balance")
		defer span.End()

		user := chi.URLParam(r, "user")
		summary, err := svc.AvailableBalance(ctx, user)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, summary)
	}
}
