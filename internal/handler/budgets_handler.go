package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/azkafin/finmate-bfa-go/internal/domain"
	"github.com/azkafin/finmate-bfa-go/internal/service"
	"github.com/azkafin/finmate-bfa-go/internal/types"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Budgets — /v1/users/{user}/budgets
// ============================================================

func budgetOverviewHandler(svc *service.BudgetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/users/{user}/budgets/overview")
		defer span.End()

		user := chi.URLParam(r, "user")
		month := svc.ViewedMonth(user)
		if v := r.URL.Query().Get("month"); v != "" {
			parsed, err := types.ParseMonth(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "month must be YYYY-MM")
				return
			}
			month = parsed
		}
		span.SetAttributes(attribute.String("budget.month", month.String()))

		overview, err := svc.Overview(ctx, user, month)
		if err != nil {
			// A failed refresh with prior state still renders: the stale
			// overview ships with the error message.
			if overview != nil {
				writeJSON(w, http.StatusOK, map[string]any{
					"overview": overview,
					"stale":    true,
					"error":    err.Error(),
				})
				return
			}
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"overview": overview})
	}
}

func budgetShiftMonthHandler(svc *service.BudgetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/users/{user}/budgets/shift-month")
		defer span.End()

		user := chi.URLParam(r, "user")

		var req struct {
			Delta int `json:"delta"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Delta == 0 {
			writeError(w, http.StatusBadRequest, "delta must be non-zero")
			return
		}

		overview, err := svc.ShiftMonth(ctx, user, req.Delta)
		if err != nil {
			if overview != nil {
				writeJSON(w, http.StatusOK, map[string]any{
					"overview": overview,
					"stale":    true,
					"error":    err.Error(),
				})
				return
			}
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"overview": overview})
	}
}

func createBudgetCategoryHandler(svc *service.BudgetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/users/{user}/budgets/categories")
		defer span.End()

		user := chi.URLParam(r, "user")

		var req domain.CreateCategoryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		created, err := svc.AddCategory(ctx, user, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, created)
	}
}

func updateBudgetAllocationHandler(svc *service.BudgetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/users/{user}/budgets/categories/{categoryId}")
		defer span.End()

		user := chi.URLParam(r, "user")
		categoryID := chi.URLParam(r, "categoryId")

		var req struct {
			Allocated decimal.Decimal `json:"allocated"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		updated, err := svc.UpdateAllocation(ctx, user, categoryID, req.Allocated)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, updated)
	}
}

func deleteBudgetCategoryHandler(svc *service.BudgetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/users/{user}/budgets/categories/{categoryId}")
		defer span.End()

		user := chi.URLParam(r, "user")
		categoryID := chi.URLParam(r, "categoryId")

		if err := svc.DeleteCategory(ctx, user, categoryID, confirmed(r)); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// levelForPercentHandler exposes the raw percentage-to-level mapping,
// mainly for the frontend's progress bar preview while a form is being
// edited.
func levelForPercentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := r.URL.Query().Get("percent")
		pct, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "percent must be a number")
			return
		}
		writeJSON(w, http.StatusOK, domain.LevelForPercent(pct))
	}
}
